package registry

import (
	"encoding/json"
	"fmt"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/storage"
)

// Storage keys. Both values are JSON arrays: device names in registry order,
// and full custom descriptors.
const (
	KeySelected = "selectedScreens"
	KeyCustom   = "customScreens"
)

func encodeSelected(s State) (string, error) {
	data, err := json.Marshal(s.SelectedNames())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeCustom(s State) (string, error) {
	custom := []device.Descriptor{}
	for _, d := range s.Custom() {
		d.Selected = false
		d.Origin = device.OriginCustom
		custom = append(custom, d)
	}
	data, err := json.Marshal(custom)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// restore rebuilds the registry from builtins plus whatever kv holds.
// Any unusable content is reported as a *StorageCorruptError.
func restore(kv storage.Store, builtins []device.Descriptor) (State, error) {
	devices := clone(builtins)
	for i := range devices {
		devices[i].Selected = false
	}
	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		seen[d.Name] = true
	}

	raw, ok, err := kv.GetItem(KeyCustom)
	if err != nil {
		return State{}, &StorageCorruptError{Key: KeyCustom, Err: err}
	}
	if ok {
		var custom []device.Descriptor
		if err := json.Unmarshal([]byte(raw), &custom); err != nil {
			return State{}, &StorageCorruptError{Key: KeyCustom, Err: err}
		}
		for _, d := range custom {
			d.Origin = device.OriginCustom
			d.Selected = false
			if err := d.Validate(); err != nil {
				return State{}, &StorageCorruptError{Key: KeyCustom, Err: err}
			}
			if seen[d.Name] {
				return State{}, &StorageCorruptError{Key: KeyCustom, Err: fmt.Errorf("duplicate device name %q", d.Name)}
			}
			seen[d.Name] = true
			devices = append(devices, d)
		}
	}

	raw, ok, err = kv.GetItem(KeySelected)
	if err != nil {
		return State{}, &StorageCorruptError{Key: KeySelected, Err: err}
	}
	if ok {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return State{}, &StorageCorruptError{Key: KeySelected, Err: err}
		}
		selected := make(map[string]bool, len(names))
		for _, n := range names {
			selected[n] = true
		}
		for i := range devices {
			devices[i].Selected = selected[devices[i].Name]
		}
	}

	return NewState(devices), nil
}
