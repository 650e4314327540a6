package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	builtins := Builtins()
	require.NotEmpty(t, builtins)

	seen := make(map[string]bool)
	for _, d := range builtins {
		assert.False(t, seen[d.Name], "duplicate builtin %q", d.Name)
		seen[d.Name] = true

		assert.Equal(t, OriginBuiltin, d.Origin)
		assert.False(t, d.Selected)
		assert.Equal(t, DefaultPixelRatio, d.PixelRatio)
		assert.Empty(t, d.UserAgent)
		assert.NoError(t, d.Validate(), d.Name)
	}

	t.Run("returns an independent copy", func(t *testing.T) {
		first := Builtins()
		first[0].Selected = true
		first[0].Name = "mutated"

		second := Builtins()
		assert.False(t, second[0].Selected)
		assert.NotEqual(t, "mutated", second[0].Name)
	})
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr string
	}{
		{name: "minimal", spec: Spec{Name: "Watch", Width: 198, Height: 242}},
		{name: "bounds inclusive", spec: Spec{Name: "Edge", Width: 1, Height: 4000, PixelRatio: 4}},
		{name: "half ratio", spec: Spec{Name: "Low", Width: 100, Height: 100, PixelRatio: 0.5}},
		{name: "blank name", spec: Spec{Name: "   ", Width: 10, Height: 10}, wantErr: "name is required"},
		{name: "zero width", spec: Spec{Name: "a", Width: 0, Height: 10}, wantErr: "width"},
		{name: "huge height", spec: Spec{Name: "a", Width: 10, Height: 4001}, wantErr: "height"},
		{name: "ratio too small", spec: Spec{Name: "a", Width: 10, Height: 10, PixelRatio: 0.25}, wantErr: "pixel ratio"},
		{name: "ratio too large", spec: Spec{Name: "a", Width: 10, Height: 10, PixelRatio: 5}, wantErr: "pixel ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSpec_Descriptor(t *testing.T) {
	d := Spec{Name: "  Kiosk ", Width: 1080, Height: 1920, UserAgent: " kiosk/1.0 "}.Descriptor()

	assert.Equal(t, "Kiosk", d.Name)
	assert.Equal(t, DefaultPixelRatio, d.PixelRatio)
	assert.Equal(t, "kiosk/1.0", d.UserAgent)
	assert.Equal(t, OriginCustom, d.Origin)
	assert.False(t, d.Selected)
	assert.True(t, d.IsCustom())
	assert.Equal(t, "1080x1920", d.Size())
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		device Descriptor
		want   Category
	}{
		{Descriptor{Name: "iPhone SE", Origin: OriginBuiltin}, CategoryMobile},
		{Descriptor{Name: "Pixel 7", Origin: OriginBuiltin}, CategoryMobile},
		{Descriptor{Name: "Samsung Galaxy S20 Ultra", Origin: OriginBuiltin}, CategoryMobile},
		{Descriptor{Name: "Samsung Galaxy A51/71", Origin: OriginBuiltin}, CategoryMobile},
		{Descriptor{Name: "Galaxy Tab S7", Origin: OriginBuiltin}, CategoryTablet},
		{Descriptor{Name: "Surface Pro 7", Origin: OriginBuiltin}, CategoryTablet},
		{Descriptor{Name: "Nest Hub", Origin: OriginBuiltin}, CategoryDesktop},
		{Descriptor{Name: "iPad Air", Origin: OriginBuiltin}, CategoryTablet},
		{Descriptor{Name: "MacBook Air", Origin: OriginBuiltin}, CategoryDesktop},
		{Descriptor{Name: "Desktop HD", Origin: OriginBuiltin}, CategoryDesktop},
		{Descriptor{Name: "Smart Fridge", Origin: OriginCustom}, CategoryCustom},
		{Descriptor{Name: "my iphone clone", Origin: OriginCustom}, CategoryMobile},
	}

	for _, tt := range tests {
		t.Run(tt.device.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.device))
		})
	}
}

func TestFilter(t *testing.T) {
	devices := Builtins()

	t.Run("empty pattern returns everything", func(t *testing.T) {
		assert.Len(t, Filter(devices, "  "), len(devices))
	})

	t.Run("substring is case insensitive", func(t *testing.T) {
		got := Names(Filter(devices, "IPAD"))
		assert.Equal(t, []string{"iPad Mini", "iPad Air", "iPad Pro"}, got)
	})

	t.Run("glob pattern", func(t *testing.T) {
		got := Names(Filter(devices, "iphone*max"))
		assert.Equal(t, []string{"iPhone 14 Pro Max"}, got)
	})

	t.Run("glob alternatives", func(t *testing.T) {
		got := Names(Filter(devices, "{pixel*,laptop}"))
		assert.Equal(t, []string{"Pixel 7", "Laptop"}, got)
	})

	t.Run("invalid glob falls back to substring", func(t *testing.T) {
		assert.Empty(t, Filter(devices, "[unclosed"))
	})

	t.Run("does not alias input", func(t *testing.T) {
		out := Filter(devices, "")
		out[0].Name = "changed"
		assert.NotEqual(t, "changed", devices[0].Name)
	})
}
