package registry

import (
	"fmt"

	"github.com/entrhq/devpreview/pkg/device"
)

// State is an immutable snapshot of the registry: the ordered device list and
// a version that increases on every successful transition. Two snapshots with
// the same version hold the same devices.
//
// The zero State is an empty registry at version 0.
type State struct {
	devices []device.Descriptor
	version uint64
}

// NewState returns a version-0 snapshot holding a copy of devices.
func NewState(devices []device.Descriptor) State {
	return State{devices: clone(devices)}
}

// Version returns the snapshot version.
func (s State) Version() uint64 { return s.version }

// Len returns the number of registered devices.
func (s State) Len() int { return len(s.devices) }

// Devices returns a copy of the ordered device list.
func (s State) Devices() []device.Descriptor { return clone(s.devices) }

// Find returns the device named name.
func (s State) Find(name string) (device.Descriptor, bool) {
	if i := s.index(name); i >= 0 {
		return s.devices[i], true
	}
	return device.Descriptor{}, false
}

// Selected returns the selected devices in registry order.
func (s State) Selected() []device.Descriptor {
	var out []device.Descriptor
	for _, d := range s.devices {
		if d.Selected {
			out = append(out, d)
		}
	}
	return out
}

// SelectedNames returns the names of the selected devices in registry order.
// The result is never nil so it encodes as a JSON array.
func (s State) SelectedNames() []string {
	names := []string{}
	for _, d := range s.devices {
		if d.Selected {
			names = append(names, d.Name)
		}
	}
	return names
}

// Custom returns the user-created devices in registry order.
func (s State) Custom() []device.Descriptor {
	var out []device.Descriptor
	for _, d := range s.devices {
		if d.IsCustom() {
			out = append(out, d)
		}
	}
	return out
}

func (s State) index(name string) int {
	for i, d := range s.devices {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// next wraps devices as the successor of s. devices must not be shared with
// any existing snapshot.
func (s State) next(devices []device.Descriptor) State {
	return State{devices: devices, version: s.version + 1}
}

func clone(devices []device.Descriptor) []device.Descriptor {
	if devices == nil {
		return nil
	}
	out := make([]device.Descriptor, len(devices))
	copy(out, devices)
	return out
}

// Event is a registry transition. The concrete types are SetSelection,
// Select, Toggle, AddCustom and RemoveCustom.
type Event interface {
	isEvent()
}

// SetSelection replaces the full device list. The caller guarantees name
// uniqueness; no validation is performed.
type SetSelection struct {
	Devices []device.Descriptor
}

// Select selects exactly the named devices and deselects the rest. Every
// name must be registered.
type Select struct {
	Names []string
}

// Toggle flips the selection flag of the named device.
type Toggle struct {
	Name string
}

// AddCustom appends a new unselected custom device.
type AddCustom struct {
	Spec device.Spec
}

// RemoveCustom deletes a custom device.
type RemoveCustom struct {
	Name string
}

func (SetSelection) isEvent() {}
func (Select) isEvent()       {}
func (Toggle) isEvent()       {}
func (AddCustom) isEvent()    {}
func (RemoveCustom) isEvent() {}

// Apply returns the state that results from applying ev to s. It never
// modifies s; on error it returns s unchanged.
func Apply(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case SetSelection:
		return s.next(clone(ev.Devices)), nil

	case Select:
		want := make(map[string]bool, len(ev.Names))
		for _, name := range ev.Names {
			if s.index(name) < 0 {
				return s, &NotFoundError{Name: name}
			}
			want[name] = true
		}
		devices := clone(s.devices)
		for i := range devices {
			devices[i].Selected = want[devices[i].Name]
		}
		return s.next(devices), nil

	case Toggle:
		i := s.index(ev.Name)
		if i < 0 {
			return s, &NotFoundError{Name: ev.Name}
		}
		devices := clone(s.devices)
		devices[i].Selected = !devices[i].Selected
		return s.next(devices), nil

	case AddCustom:
		d := ev.Spec.Descriptor()
		if s.index(d.Name) >= 0 {
			return s, &DuplicateNameError{Name: d.Name}
		}
		if err := d.Validate(); err != nil {
			return s, &InvalidDeviceError{Name: d.Name, Err: err}
		}
		devices := make([]device.Descriptor, 0, len(s.devices)+1)
		devices = append(devices, s.devices...)
		devices = append(devices, d)
		return s.next(devices), nil

	case RemoveCustom:
		i := s.index(ev.Name)
		if i < 0 {
			return s, &NotFoundError{Name: ev.Name}
		}
		if !s.devices[i].IsCustom() {
			return s, &NotRemovableError{Name: ev.Name}
		}
		devices := make([]device.Descriptor, 0, len(s.devices)-1)
		devices = append(devices, s.devices[:i]...)
		devices = append(devices, s.devices[i+1:]...)
		return s.next(devices), nil

	default:
		return s, fmt.Errorf("unknown registry event %T", ev)
	}
}
