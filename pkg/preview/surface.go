package preview

import (
	"fmt"
	"slices"
	"sync"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/registry"
)

// Surface keeps one cell per selected device for a single URL.
//
// Sync reconciles the cell set against a registry snapshot: cells for
// deselected devices are destroyed, new selections get fresh cells, and a
// URL change or a changed descriptor recreates the affected cells. Cells
// whose device and URL are unchanged keep their status.
type Surface struct {
	mu      sync.Mutex
	factory FrameFactory
	opts    []CellOption
	url     string
	order   []string
	cells   map[string]*Cell
	version uint64
	closed  bool
}

// NewSurface creates an empty surface. opts are applied to every cell.
func NewSurface(factory FrameFactory, opts ...CellOption) *Surface {
	return &Surface{
		factory: factory,
		opts:    opts,
		cells:   make(map[string]*Cell),
	}
}

// Sync brings the surface in line with the selected devices of state and the
// target url. An empty url leaves the surface without cells.
func (s *Surface) Sync(state registry.State, url string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	var stale []*Cell
	if url != s.url {
		for _, c := range s.cells {
			stale = append(stale, c)
		}
		s.cells = make(map[string]*Cell)
		s.url = url
	}

	var selected []device.Descriptor
	if url != "" {
		selected = state.Selected()
	}
	want := make(map[string]device.Descriptor, len(selected))
	order := make([]string, 0, len(selected))
	for _, d := range selected {
		want[d.Name] = d
		order = append(order, d.Name)
	}

	for name, c := range s.cells {
		d, ok := want[name]
		if !ok || d != c.Device() {
			stale = append(stale, c)
			delete(s.cells, name)
		}
	}

	var missing []device.Descriptor
	for _, d := range selected {
		if _, ok := s.cells[d.Name]; !ok {
			missing = append(missing, d)
		}
	}
	s.order = order
	s.version = state.Version()
	s.mu.Unlock()

	// Frames are torn down and opened without the surface lock; observers
	// may call back into Reports.
	for _, c := range stale {
		c.Destroy()
	}
	created := make(map[string]*Cell, len(missing))
	for _, d := range missing {
		created[d.Name] = s.newCell(d, url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range created {
		// A concurrent Sync or Close may have moved on.
		if s.closed || s.url != url || !slices.Contains(s.order, name) || s.cells[name] != nil {
			go c.Destroy()
			continue
		}
		s.cells[name] = c
	}
}

func (s *Surface) newCell(d device.Descriptor, url string) *Cell {
	frame, err := s.factory(d)
	if err != nil {
		frame = brokenFrame{err: fmt.Errorf("create frame for %s: %w", d.Name, err)}
	}
	return NewCell(d, url, frame, s.opts...)
}

// URL returns the current target URL.
func (s *Surface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Version returns the registry version last synced.
func (s *Surface) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Cell returns the cell for the named device.
func (s *Surface) Cell(name string) (*Cell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cells[name]
	return c, ok
}

// Reports returns the state of every cell in registry order.
func (s *Surface) Reports() []Report {
	s.mu.Lock()
	cells := make([]*Cell, 0, len(s.order))
	for _, name := range s.order {
		if c, ok := s.cells[name]; ok {
			cells = append(cells, c)
		}
	}
	s.mu.Unlock()

	reports := make([]Report, 0, len(cells))
	for _, c := range cells {
		reports = append(reports, c.Report())
	}
	return reports
}

// Close destroys every cell. The surface ignores later Syncs.
func (s *Surface) Close() {
	s.mu.Lock()
	s.closed = true
	cells := s.cells
	s.cells = make(map[string]*Cell)
	s.order = nil
	s.mu.Unlock()

	for _, c := range cells {
		c.Destroy()
	}
}
