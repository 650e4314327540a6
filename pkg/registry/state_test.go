package registry

import (
	"testing"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_DoesNotAliasPreviousSnapshot(t *testing.T) {
	s0 := NewState(device.Builtins())

	s1, err := Apply(s0, Toggle{Name: "Laptop"})
	require.NoError(t, err)
	s2, err := Apply(s1, AddCustom{Spec: device.Spec{Name: "Watch", Width: 198, Height: 242}})
	require.NoError(t, err)
	s3, err := Apply(s2, RemoveCustom{Name: "Watch"})
	require.NoError(t, err)

	laptop0, _ := s0.Find("Laptop")
	laptop1, _ := s1.Find("Laptop")
	assert.False(t, laptop0.Selected, "earlier snapshot must not observe later toggles")
	assert.True(t, laptop1.Selected)

	assert.Equal(t, uint64(0), s0.Version())
	assert.Equal(t, uint64(1), s1.Version())
	assert.Equal(t, uint64(2), s2.Version())
	assert.Equal(t, uint64(3), s3.Version())

	_, ok := s2.Find("Watch")
	assert.True(t, ok)
	_, ok = s3.Find("Watch")
	assert.False(t, ok)
}

func TestApply_ErrorsReturnInputState(t *testing.T) {
	s := NewState(device.Builtins())

	tests := []struct {
		name string
		ev   Event
		is   error
	}{
		{"toggle unknown", Toggle{Name: "x"}, ErrNotFound},
		{"add duplicate", AddCustom{Spec: device.Spec{Name: "Laptop", Width: 1, Height: 1}}, ErrDuplicateName},
		{"add duplicate with invalid size", AddCustom{Spec: device.Spec{Name: "Laptop"}}, ErrDuplicateName},
		{"add invalid", AddCustom{Spec: device.Spec{Name: "x"}}, ErrInvalidDevice},
		{"remove unknown", RemoveCustom{Name: "x"}, ErrNotFound},
		{"remove builtin", RemoveCustom{Name: "Laptop"}, ErrNotRemovable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(s, tt.ev)
			assert.ErrorIs(t, err, tt.is)
			assert.Equal(t, s, got)
		})
	}
}

func TestState_Accessors(t *testing.T) {
	var zero State
	assert.Equal(t, 0, zero.Len())
	assert.Equal(t, []string{}, zero.SelectedNames())
	assert.Nil(t, zero.Devices())

	s := NewState([]device.Descriptor{
		{Name: "a", Width: 1, Height: 1, Origin: device.OriginBuiltin, Selected: true},
		{Name: "b", Width: 1, Height: 1, Origin: device.OriginCustom},
		{Name: "c", Width: 1, Height: 1, Origin: device.OriginCustom, Selected: true},
	})

	assert.Equal(t, []string{"a", "c"}, s.SelectedNames())
	assert.Equal(t, []string{"a", "c"}, device.Names(s.Selected()))
	assert.Equal(t, []string{"b", "c"}, device.Names(s.Custom()))

	devices := s.Devices()
	devices[0].Name = "changed"
	_, ok := s.Find("a")
	assert.True(t, ok, "Devices returns a copy")
}
