package style

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned for a color string that cannot be parsed.
var ErrInvalidColor = errors.New("style: invalid color")

// RGBA represents a color with red, green, blue, and alpha components.
// Each component is in the range [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// Premultiply returns a premultiplied color.
func (c RGBA) Premultiply() RGBA {
	return RGBA{
		R: c.R * c.A,
		G: c.G * c.A,
		B: c.B * c.A,
		A: c.A,
	}
}

// Vec returns the components as a paint value.
func (c RGBA) Vec() []float64 {
	return []float64{c.R, c.G, c.B, c.A}
}

var namedColors = map[string]RGBA{
	"black":       {0, 0, 0, 1},
	"white":       {1, 1, 1, 1},
	"red":         {1, 0, 0, 1},
	"green":       {0, 128.0 / 255, 0, 1},
	"blue":        {0, 0, 1, 1},
	"yellow":      {1, 1, 0, 1},
	"gray":        {128.0 / 255, 128.0 / 255, 128.0 / 255, 1},
	"grey":        {128.0 / 255, 128.0 / 255, 128.0 / 255, 1},
	"transparent": {0, 0, 0, 0},
}

// ParseColor parses "#rgb", "#rgba", "#rrggbb", "#rrggbbaa", "rgb(...)",
// "rgba(...)" and a few CSS color names. The result is not premultiplied.
func ParseColor(s string) (RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}
	if args, ok := strings.CutPrefix(s, "rgba("); ok {
		return parseRGBFunc(s, args, 4)
	}
	if args, ok := strings.CutPrefix(s, "rgb("); ok {
		return parseRGBFunc(s, args, 3)
	}
	return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

func parseHexColor(hex string) (RGBA, error) {
	var r, g, b, a uint32
	a = 255

	var ok bool
	switch len(hex) {
	case 3: // RGB
		ok = parseHex(hex[0:1], &r) && parseHex(hex[1:2], &g) && parseHex(hex[2:3], &b)
		r, g, b = r*17, g*17, b*17
	case 4: // RGBA
		ok = parseHex(hex[0:1], &r) && parseHex(hex[1:2], &g) &&
			parseHex(hex[2:3], &b) && parseHex(hex[3:4], &a)
		r, g, b, a = r*17, g*17, b*17, a*17
	case 6: // RRGGBB
		ok = parseHex(hex[0:2], &r) && parseHex(hex[2:4], &g) && parseHex(hex[4:6], &b)
	case 8: // RRGGBBAA
		ok = parseHex(hex[0:2], &r) && parseHex(hex[2:4], &g) &&
			parseHex(hex[4:6], &b) && parseHex(hex[6:8], &a)
	}
	if !ok {
		return RGBA{}, fmt.Errorf("%w: #%s", ErrInvalidColor, hex)
	}

	return RGBA{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: float64(a) / 255,
	}, nil
}

// parseHex reports false on a non-hex digit.
func parseHex(s string, val *uint32) bool {
	*val = 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		*val *= 16
		switch {
		case '0' <= c && c <= '9':
			*val += uint32(c - '0')
		case 'a' <= c && c <= 'f':
			*val += uint32(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			*val += uint32(c - 'A' + 10)
		default:
			return false
		}
	}
	return true
}

func parseRGBFunc(s, args string, n int) (RGBA, error) {
	args, ok := strings.CutSuffix(args, ")")
	if !ok {
		return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	parts := strings.Split(args, ",")
	if len(parts) != n {
		return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v := [4]float64{0, 0, 0, 1}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		if i < 3 {
			f /= 255
		}
		v[i] = clamp01(f)
	}
	return RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
