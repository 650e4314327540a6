package registry

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each typed error below matches exactly one.
var (
	ErrDuplicateName  = errors.New("duplicate device name")
	ErrNotFound       = errors.New("device not found")
	ErrNotRemovable   = errors.New("device is not removable")
	ErrInvalidDevice  = errors.New("invalid device")
	ErrStorageCorrupt = errors.New("persisted device state is corrupt")
)

// DuplicateNameError reports an attempt to add a device whose name is taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("device %q already exists", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// NotFoundError reports an operation on a device name that is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("device %q not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotRemovableError reports an attempt to delete a built-in device.
type NotRemovableError struct {
	Name string
}

func (e *NotRemovableError) Error() string {
	return fmt.Sprintf("device %q is built in and cannot be removed", e.Name)
}

func (e *NotRemovableError) Is(target error) bool { return target == ErrNotRemovable }

// InvalidDeviceError reports a custom device spec outside the allowed bounds.
type InvalidDeviceError struct {
	Name string
	Err  error
}

func (e *InvalidDeviceError) Error() string {
	return fmt.Sprintf("invalid device %q: %v", e.Name, e.Err)
}

func (e *InvalidDeviceError) Unwrap() error { return e.Err }

func (e *InvalidDeviceError) Is(target error) bool { return target == ErrInvalidDevice }

// StorageCorruptError reports persisted state that could not be used.
// It is logged during Load and never returned to callers.
type StorageCorruptError struct {
	Key string
	Err error
}

func (e *StorageCorruptError) Error() string {
	return fmt.Sprintf("stored %s is unusable: %v", e.Key, e.Err)
}

func (e *StorageCorruptError) Unwrap() error { return e.Err }

func (e *StorageCorruptError) Is(target error) bool { return target == ErrStorageCorrupt }
