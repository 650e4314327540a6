package device

import "strings"

// Category is a coarse device class used for badges and icons.
type Category string

const (
	CategoryMobile  Category = "Mobile"
	CategoryTablet  Category = "Tablet"
	CategoryDesktop Category = "Desktop"
	CategoryCustom  Category = "Custom"
)

// Categorize classifies a device by its name. Custom devices whose names
// carry no recognizable hint fall into CategoryCustom.
func Categorize(d Descriptor) Category {
	name := strings.ToLower(d.Name)
	switch {
	case containsAny(name, "iphone", "galaxy s", "galaxy a", "pixel"):
		return CategoryMobile
	case containsAny(name, "ipad", "tab", "surface"):
		return CategoryTablet
	case containsAny(name, "laptop", "desktop", "macbook"):
		return CategoryDesktop
	}
	if d.IsCustom() {
		return CategoryCustom
	}
	return CategoryDesktop
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
