package preview

import (
	"errors"
	"sync"
	"testing"

	"github.com/entrhq/devpreview/pkg/clock"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameFactory struct {
	mu     sync.Mutex
	frames map[string][]*scriptedFrame
	fail   map[string]bool
}

func newFrameFactory() *frameFactory {
	return &frameFactory{frames: map[string][]*scriptedFrame{}, fail: map[string]bool{}}
}

func (f *frameFactory) create(d device.Descriptor) (Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[d.Name] {
		return nil, errors.New("too many frames")
	}
	frame := &scriptedFrame{}
	f.frames[d.Name] = append(f.frames[d.Name], frame)
	return frame, nil
}

func (f *frameFactory) latest(name string) *scriptedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := f.frames[name]
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

func (f *frameFactory) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames[name])
}

func testState(t *testing.T, selected ...string) registry.State {
	t.Helper()
	state := registry.NewState(device.Builtins())
	for _, name := range selected {
		var err error
		state, err = registry.Apply(state, registry.Toggle{Name: name})
		require.NoError(t, err)
	}
	return state
}

func reportNames(reports []Report) []string {
	names := make([]string, 0, len(reports))
	for _, r := range reports {
		names = append(names, r.Device.Name)
	}
	return names
}

func TestSurface_SyncCreatesCellsInRegistryOrder(t *testing.T) {
	factory := newFrameFactory()
	s := NewSurface(factory.create, WithClock(clock.NewFake()))
	defer s.Close()

	state := testState(t, "Laptop", "iPhone SE", "iPad Mini")
	s.Sync(state, "https://example.com")

	assert.Equal(t, []string{"iPhone SE", "iPad Mini", "Laptop"}, reportNames(s.Reports()))
	assert.Equal(t, "https://example.com", s.URL())
	assert.Equal(t, state.Version(), s.Version())
	for _, r := range s.Reports() {
		assert.Equal(t, StatusLoading, r.Status)
	}
}

func TestSurface_SyncKeepsUnchangedCells(t *testing.T) {
	factory := newFrameFactory()
	clk := clock.NewFake()
	s := NewSurface(factory.create, WithClock(clk))
	defer s.Close()

	state := testState(t, "iPhone SE", "Laptop")
	s.Sync(state, "https://example.com")
	before, ok := s.Cell("iPhone SE")
	require.True(t, ok)

	factory.latest("iPhone SE").load()
	clk.Advance(DefaultSettleDelay)
	require.Equal(t, StatusReady, before.Status())

	state, err := registry.Apply(state, registry.Toggle{Name: "Laptop"})
	require.NoError(t, err)
	s.Sync(state, "https://example.com")

	after, ok := s.Cell("iPhone SE")
	require.True(t, ok)
	assert.Same(t, before, after)
	assert.Equal(t, StatusReady, after.Status())
	assert.Equal(t, 1, factory.count("iPhone SE"))

	_, ok = s.Cell("Laptop")
	assert.False(t, ok)
	assert.Equal(t, 1, factory.latest("Laptop").closeCount())
}

func TestSurface_URLChangeRecreatesCells(t *testing.T) {
	factory := newFrameFactory()
	s := NewSurface(factory.create, WithClock(clock.NewFake()))
	defer s.Close()

	state := testState(t, "iPhone SE")
	s.Sync(state, "https://example.com")
	old := factory.latest("iPhone SE")

	s.Sync(state, "https://example.org")

	assert.Equal(t, 1, old.closeCount())
	assert.Equal(t, 2, factory.count("iPhone SE"))
	assert.Equal(t, "https://example.org", factory.latest("iPhone SE").url)
	assert.Equal(t, "https://example.org", s.URL())
}

func TestSurface_FactoryFailureBlocksCell(t *testing.T) {
	factory := newFrameFactory()
	factory.fail["Desktop HD"] = true
	s := NewSurface(factory.create, WithClock(clock.NewFake()))
	defer s.Close()

	s.Sync(testState(t, "Desktop HD"), "https://example.com")

	reports := s.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, StatusBlocked, reports[0].Status)
	assert.Equal(t, ReasonOpenFailed, reports[0].Reason)
}

func TestSurface_Close(t *testing.T) {
	factory := newFrameFactory()
	s := NewSurface(factory.create, WithClock(clock.NewFake()))

	s.Sync(testState(t, "iPhone SE", "Pixel 7"), "https://example.com")
	s.Close()

	assert.Empty(t, s.Reports())
	assert.Equal(t, 1, factory.latest("iPhone SE").closeCount())
	assert.Equal(t, 1, factory.latest("Pixel 7").closeCount())

	s.Sync(testState(t, "Laptop"), "https://example.com")
	assert.Empty(t, s.Reports())
	assert.Zero(t, factory.count("Laptop"))
}
