package device

// builtinTable is the shipped preset list, in display order.
var builtinTable = []struct {
	name          string
	width, height int
}{
	{"iPhone SE", 375, 667},
	{"iPhone 12 Pro", 390, 844},
	{"iPhone 14 Pro Max", 430, 932},
	{"Pixel 7", 412, 915},
	{"Samsung Galaxy S20 Ultra", 412, 915},
	{"Samsung Galaxy A51/71", 412, 914},
	{"iPad Mini", 768, 1024},
	{"iPad Air", 820, 1180},
	{"iPad Pro", 1024, 1366},
	{"Galaxy Tab S7", 800, 1280},
	{"Surface Pro 7", 912, 1368},
	{"Laptop", 1366, 768},
	{"MacBook Air", 1440, 900},
	{"Desktop HD", 1920, 1080},
}

// Builtins returns a fresh copy of the built-in presets, all unselected.
func Builtins() []Descriptor {
	out := make([]Descriptor, 0, len(builtinTable))
	for _, b := range builtinTable {
		out = append(out, Descriptor{
			Name:       b.name,
			Width:      b.width,
			Height:     b.height,
			PixelRatio: DefaultPixelRatio,
			Origin:     OriginBuiltin,
		})
	}
	return out
}
