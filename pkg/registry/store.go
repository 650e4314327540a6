// Package registry holds the device registry: the ordered list of built-in and
// custom device presets, each with a selection flag, and its persistence.
//
// Transitions are pure (see Apply) and produce new immutable State snapshots.
// Store owns the current snapshot, serializes mutations, writes the affected
// storage keys synchronously, and notifies subscribers.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/storage"
)

// Logger is the subset of logging.Logger the registry uses.
type Logger interface {
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load fallbacks and write failures.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store is the stateful registry. All methods are safe for concurrent use;
// each mutation completes, including its storage writes, before the next one
// starts.
type Store struct {
	mu       sync.Mutex
	state    State
	kv       storage.Store
	builtins []device.Descriptor
	logger   Logger

	subs    map[int]func(State)
	nextSub int
}

// Load builds a Store from builtins and the state persisted in kv.
//
// Load never fails. If the persisted state cannot be parsed or violates the
// registry invariants, the failure is logged and the registry starts from the
// built-ins with nothing selected and no custom devices.
func Load(kv storage.Store, builtins []device.Descriptor, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		builtins: clone(builtins),
		logger:   nopLogger{},
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}

	state, err := restore(kv, s.builtins)
	if err != nil {
		s.logger.Warnf("registry: falling back to built-in devices: %v", err)
		fallback := clone(s.builtins)
		for i := range fallback {
			fallback[i].Selected = false
		}
		state = NewState(fallback)
	}
	s.state = state
	s.logger.Debugf("registry: loaded %d devices (%d custom, %d selected)",
		state.Len(), len(state.Custom()), len(state.Selected()))
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsBuiltin reports whether name is one of the shipped presets.
func (s *Store) IsBuiltin(name string) bool {
	for _, b := range s.builtins {
		if b.Name == name {
			return true
		}
	}
	return false
}

// SetSelection replaces the device list and persists the selected names.
func (s *Store) SetSelection(devices []device.Descriptor) error {
	return s.dispatch(SetSelection{Devices: devices}, KeySelected)
}

// Select selects exactly names, in registry order, and persists the
// selected names. It returns a *NotFoundError for the first unknown name and
// then changes nothing.
func (s *Store) Select(names []string) error {
	return s.dispatch(Select{Names: names}, KeySelected)
}

// Toggle flips the selection of the named device and persists the selected
// names. It returns a *NotFoundError if no device has that name.
func (s *Store) Toggle(name string) error {
	return s.dispatch(Toggle{Name: name}, KeySelected)
}

// AddCustom registers a new unselected custom device and persists the custom
// device list. It returns a *DuplicateNameError if the name is taken and an
// *InvalidDeviceError if the spec is out of bounds.
func (s *Store) AddCustom(spec device.Spec) error {
	return s.dispatch(AddCustom{Spec: spec}, KeyCustom)
}

// RemoveCustom deletes a custom device and persists both the custom device
// list and the selected names. It returns a *NotFoundError or a
// *NotRemovableError for built-in devices.
func (s *Store) RemoveCustom(name string) error {
	return s.dispatch(RemoveCustom{Name: name}, KeyCustom, KeySelected)
}

// Subscribe registers fn to receive every new snapshot after a successful
// mutation. fn runs on the mutating goroutine after the store lock is released.
// The returned function unregisters fn.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) dispatch(ev Event, keys ...string) error {
	s.mu.Lock()

	next, err := Apply(s.state, ev)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next

	var errs []error
	for _, key := range keys {
		if err := s.persist(next, key); err != nil {
			s.logger.Errorf("registry: %v", err)
			errs = append(errs, err)
		}
	}

	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return errors.Join(errs...)
}

func (s *Store) persist(state State, key string) error {
	var (
		value string
		err   error
	)
	switch key {
	case KeySelected:
		value, err = encodeSelected(state)
	case KeyCustom:
		value, err = encodeCustom(state)
	default:
		return fmt.Errorf("unknown storage key %q", key)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.SetItem(key, value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}
