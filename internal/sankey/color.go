package sankey

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// DefaultCycle is the fill palette used, in order, for stages without an explicit colour
var DefaultCycle = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var namedColors = map[string]string{
	"black":     "#000000",
	"white":     "#ffffff",
	"red":       "#ff0000",
	"green":     "#008000",
	"blue":      "#0000ff",
	"yellow":    "#ffff00",
	"orange":    "#ffa500",
	"purple":    "#800080",
	"pink":      "#ffc0cb",
	"brown":     "#a52a2a",
	"gray":      "#808080",
	"grey":      "#808080",
	"lightgray": "#d3d3d3",
	"lightgrey": "#d3d3d3",
	"darkgray":  "#a9a9a9",
	"darkgrey":  "#a9a9a9",
	"navy":      "#000080",
	"teal":      "#008080",
	"olive":     "#808000",
	"maroon":    "#800000",
	"gold":      "#ffd700",
	"tan":       "#d2b48c",
	"salmon":    "#fa8072",
	"coral":     "#ff7f50",
	"tomato":    "#ff6347",
	"crimson":   "#dc143c",
	"indigo":    "#4b0082",
	"violet":    "#ee82ee",
	"cyan":      "#00ffff",
	"magenta":   "#ff00ff",
	"skyblue":   "#87ceeb",
	"steelblue": "#4682b4",
	"seagreen":  "#2e8b57",
	"khaki":     "#f0e68c",
	"beige":     "#f5f5dc",
	"wheat":     "#f5deb3",
	"lime":      "#00ff00",
	"silver":    "#c0c0c0",
	// single-letter shorthands
	"k": "#000000",
	"w": "#ffffff",
	"r": "#ff0000",
	"g": "#008000",
	"b": "#0000ff",
	"y": "#bfbf00",
	"c": "#00bfbf",
	"m": "#bf00bf",
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, a named colour, or a cycle
// reference "C0".."C9".
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if len(s) == 2 && s[0] == 'c' && s[1] >= '0' && s[1] <= '9' {
		s = DefaultCycle[s[1]-'0']
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("unknown color %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("malformed hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("malformed hex color %q: %w", s, err)
	}
	r, g, b, a := uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)
	// image/color wants alpha-premultiplied components
	return color.RGBA{
		R: uint8(uint16(r) * uint16(a) / 255),
		G: uint8(uint16(g) * uint16(a) / 255),
		B: uint8(uint16(b) * uint16(a) / 255),
		A: a,
	}, nil
}

// Hex formats c (premultiplied) back to #rrggbb, ignoring alpha
func Hex(c color.RGBA) string {
	if c.A == 0 {
		return "none"
	}
	un := func(v uint8) uint8 { return uint8(uint16(v) * 255 / uint16(c.A)) }
	return fmt.Sprintf("#%02x%02x%02x", un(c.R), un(c.G), un(c.B))
}
