// Package device describes the simulated viewports a preview can be rendered in.
//
// A Descriptor is one device preset: a unique name, pixel dimensions, a pixel
// ratio and an optional user agent override. Built-in presets ship with the
// binary (see Builtins); custom presets are created by the user and persisted
// by the registry package.
package device

import (
	"fmt"
	"strings"
)

// Origin tags where a descriptor came from.
type Origin string

const (
	// OriginBuiltin marks a shipped, non-deletable preset.
	OriginBuiltin Origin = "builtin"

	// OriginCustom marks a user-created, deletable preset.
	OriginCustom Origin = "custom"
)

// Dimension and pixel ratio bounds.
const (
	MinDimension = 1
	MaxDimension = 4000

	MinPixelRatio     = 0.5
	MaxPixelRatio     = 4.0
	DefaultPixelRatio = 1.0
)

// Descriptor is one simulated viewport.
type Descriptor struct {
	Name       string  `json:"name"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	UserAgent  string  `json:"userAgentOverride"`
	Selected   bool    `json:"selected"`
	Origin     Origin  `json:"origin"`
}

// IsCustom reports whether the descriptor was created by the user.
func (d Descriptor) IsCustom() bool {
	return d.Origin == OriginCustom
}

// EffectivePixelRatio returns the pixel ratio, substituting the default for zero.
func (d Descriptor) EffectivePixelRatio() float64 {
	if d.PixelRatio == 0 {
		return DefaultPixelRatio
	}
	return d.PixelRatio
}

// Size formats the dimensions as "WxH".
func (d Descriptor) Size() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Validate checks the descriptor against the dimension and ratio bounds.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("device name is required")
	}
	if d.Width < MinDimension || d.Width > MaxDimension {
		return fmt.Errorf("width must be between %d and %d, got %d", MinDimension, MaxDimension, d.Width)
	}
	if d.Height < MinDimension || d.Height > MaxDimension {
		return fmt.Errorf("height must be between %d and %d, got %d", MinDimension, MaxDimension, d.Height)
	}
	if r := d.EffectivePixelRatio(); r < MinPixelRatio || r > MaxPixelRatio {
		return fmt.Errorf("pixel ratio must be between %g and %g, got %g", MinPixelRatio, MaxPixelRatio, r)
	}
	switch d.Origin {
	case OriginBuiltin, OriginCustom:
	default:
		return fmt.Errorf("unknown device origin %q", d.Origin)
	}
	return nil
}

// Spec is the user input for a new custom device.
// PixelRatio and UserAgent are optional.
type Spec struct {
	Name       string  `json:"name"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio,omitempty"`
	UserAgent  string  `json:"userAgentOverride,omitempty"`
}

// Descriptor builds the unselected custom descriptor for the spec.
func (s Spec) Descriptor() Descriptor {
	ratio := s.PixelRatio
	if ratio == 0 {
		ratio = DefaultPixelRatio
	}
	return Descriptor{
		Name:       strings.TrimSpace(s.Name),
		Width:      s.Width,
		Height:     s.Height,
		PixelRatio: ratio,
		UserAgent:  strings.TrimSpace(s.UserAgent),
		Selected:   false,
		Origin:     OriginCustom,
	}
}

// Validate checks the spec against the descriptor bounds.
func (s Spec) Validate() error {
	return s.Descriptor().Validate()
}

// Names returns the names of the given descriptors in order.
func Names(devices []Descriptor) []string {
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	return names
}
