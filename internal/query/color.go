package query

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an immutable ARGB color with 8-bit channels.
type Color struct {
	alpha, red, green, blue uint8
}

// Transparent is the sentinel stored for colors that failed to parse.
var Transparent = Color{}

// NewColor builds a color from its alpha, red, green and blue channels.
func NewColor(alpha, red, green, blue uint8) Color {
	return Color{alpha: alpha, red: red, green: green, blue: blue}
}

// Opaque builds a fully opaque color.
func Opaque(red, green, blue uint8) Color {
	return NewColor(255, red, green, blue)
}

func (c Color) Alpha() uint8 { return c.alpha }
func (c Color) Red() uint8   { return c.red }
func (c Color) Green() uint8 { return c.green }
func (c Color) Blue() uint8  { return c.blue }

// IsTransparent reports whether the alpha channel is zero.
func (c Color) IsTransparent() bool {
	return c.alpha == 0
}

// IsOpaque reports whether the alpha channel is fully set.
func (c Color) IsOpaque() bool {
	return c.alpha == 255
}

// RGBA returns the channels in red, green, blue, alpha order.
func (c Color) RGBA() []float64 {
	return []float64{float64(c.red), float64(c.green), float64(c.blue), float64(c.alpha)}
}

// RGB returns the color channels without alpha.
func (c Color) RGB() []float64 {
	return []float64{float64(c.red), float64(c.green), float64(c.blue)}
}

// NRGBA converts the color for the image engine.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.red, G: c.green, B: c.blue, A: c.alpha}
}

// whiteRef is the D65 white point as produced by the sRGB matrix, so that
// white maps to exactly (100,0,0).
var whiteRef = func() [3]float64 {
	x, y, z := colorful.Color{R: 1, G: 1, B: 1}.Xyz()
	return [3]float64{x, y, z}
}()

// LAB converts the color to CIE L*a*b* (D65) with L in [0,100].
func (c Color) LAB() [3]float64 {
	l, a, b := c.colorful().LabWhiteRef(whiteRef)
	return [3]float64{l * 100, a * 100, b * 100}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.red) / 255,
		G: float64(c.green) / 255,
		B: float64(c.blue) / 255,
	}
}

// String renders the color as rgba(r,g,b,a) with alpha as a fraction.
func (c Color) String() string {
	alpha := strconv.FormatFloat(float64(c.alpha)/255, 'f', 3, 64)
	alpha = strings.TrimRight(strings.TrimRight(alpha, "0"), ".")
	if alpha == "" {
		alpha = "0"
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.red, c.green, c.blue, alpha)
}

// ParseColor parses a named color or a 3, 4, 6 or 8 digit hex value with an
// optional leading "#" or "%23". Shorter forms are expanded and left-padded
// with "f" so that the alpha channel defaults to opaque.
func ParseColor(value string) (Color, error) {
	hexValue, ok := strings.CutPrefix(value, "#")
	if !ok {
		hexValue, _ = strings.CutPrefix(value, "%23")
	}
	hexValue = strings.ToLower(hexValue)

	if named, ok := namedColors[hexValue]; ok {
		hexValue = named
	}

	for _, r := range hexValue {
		if !isHexDigit(r) {
			return Transparent, fmt.Errorf("%w: %q is not a hex color", ErrInvalidValue, value)
		}
	}

	switch len(hexValue) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range hexValue {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		hexValue = expanded.String()
	case 6, 8:
	default:
		return Transparent, fmt.Errorf("%w: %q has an unsupported length", ErrInvalidValue, value)
	}

	hexValue = strings.Repeat("f", 8-len(hexValue)) + hexValue

	channels, err := hex.DecodeString(hexValue)
	if err != nil {
		return Transparent, fmt.Errorf("%w: %q: %v", ErrInvalidValue, value, err)
	}
	return NewColor(channels[0], channels[1], channels[2], channels[3]), nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}

// namedColors holds the 140 CSS color names supported by all browsers.
var namedColors = map[string]string{
	"aliceblue":            "f0f8ff",
	"antiquewhite":         "faebd7",
	"aqua":                 "00ffff",
	"aquamarine":           "7fffd4",
	"azure":                "f0ffff",
	"beige":                "f5f5dc",
	"bisque":               "ffe4c4",
	"black":                "000000",
	"blanchedalmond":       "ffebcd",
	"blue":                 "0000ff",
	"blueviolet":           "8a2be2",
	"brown":                "a52a2a",
	"burlywood":            "deb887",
	"cadetblue":            "5f9ea0",
	"chartreuse":           "7fff00",
	"chocolate":            "d2691e",
	"coral":                "ff7f50",
	"cornflowerblue":       "6495ed",
	"cornsilk":             "fff8dc",
	"crimson":              "dc143c",
	"cyan":                 "00ffff",
	"darkblue":             "00008b",
	"darkcyan":             "008b8b",
	"darkgoldenrod":        "b8860b",
	"darkgray":             "a9a9a9",
	"darkgreen":            "006400",
	"darkkhaki":            "bdb76b",
	"darkmagenta":          "8b008b",
	"darkolivegreen":       "556b2f",
	"darkorange":           "ff8c00",
	"darkorchid":           "9932cc",
	"darkred":              "8b0000",
	"darksalmon":           "e9967a",
	"darkseagreen":         "8fbc8f",
	"darkslateblue":        "483d8b",
	"darkslategray":        "2f4f4f",
	"darkturquoise":        "00ced1",
	"darkviolet":           "9400d3",
	"deeppink":             "ff1493",
	"deepskyblue":          "00bfff",
	"dimgray":              "696969",
	"dodgerblue":           "1e90ff",
	"firebrick":            "b22222",
	"floralwhite":          "fffaf0",
	"forestgreen":          "228b22",
	"fuchsia":              "ff00ff",
	"gainsboro":            "dcdcdc",
	"ghostwhite":           "f8f8ff",
	"gold":                 "ffd700",
	"goldenrod":            "daa520",
	"gray":                 "808080",
	"green":                "008000",
	"greenyellow":          "adff2f",
	"honeydew":             "f0fff0",
	"hotpink":              "ff69b4",
	"indianred":            "cd5c5c",
	"indigo":               "4b0082",
	"ivory":                "fffff0",
	"khaki":                "f0e68c",
	"lavender":             "e6e6fa",
	"lavenderblush":        "fff0f5",
	"lawngreen":            "7cfc00",
	"lemonchiffon":         "fffacd",
	"lightblue":            "add8e6",
	"lightcoral":           "f08080",
	"lightcyan":            "e0ffff",
	"lightgoldenrodyellow": "fafad2",
	"lightgray":            "d3d3d3",
	"lightgreen":           "90ee90",
	"lightpink":            "ffb6c1",
	"lightsalmon":          "ffa07a",
	"lightseagreen":        "20b2aa",
	"lightskyblue":         "87cefa",
	"lightslategray":       "778899",
	"lightsteelblue":       "b0c4de",
	"lightyellow":          "ffffe0",
	"lime":                 "00ff00",
	"limegreen":            "32cd32",
	"linen":                "faf0e6",
	"magenta":              "ff00ff",
	"maroon":               "800000",
	"mediumaquamarine":     "66cdaa",
	"mediumblue":           "0000cd",
	"mediumorchid":         "ba55d3",
	"mediumpurple":         "9370db",
	"mediumseagreen":       "3cb371",
	"mediumslateblue":      "7b68ee",
	"mediumspringgreen":    "00fa9a",
	"mediumturquoise":      "48d1cc",
	"mediumvioletred":      "c71585",
	"midnightblue":         "191970",
	"mintcream":            "f5fffa",
	"mistyrose":            "ffe4e1",
	"moccasin":             "ffe4b5",
	"navajowhite":          "ffdead",
	"navy":                 "000080",
	"oldlace":              "fdf5e6",
	"olive":                "808000",
	"olivedrab":            "6b8e23",
	"orange":               "ffa500",
	"orangered":            "ff4500",
	"orchid":               "da70d6",
	"palegoldenrod":        "eee8aa",
	"palegreen":            "98fb98",
	"paleturquoise":        "afeeee",
	"palevioletred":        "db7093",
	"papayawhip":           "ffefd5",
	"peachpuff":            "ffdab9",
	"peru":                 "cd853f",
	"pink":                 "ffc0cb",
	"plum":                 "dda0dd",
	"powderblue":           "b0e0e6",
	"purple":               "800080",
	"red":                  "ff0000",
	"rosybrown":            "bc8f8f",
	"royalblue":            "4169e1",
	"saddlebrown":          "8b4513",
	"salmon":               "fa8072",
	"sandybrown":           "f4a460",
	"seagreen":             "2e8b57",
	"seashell":             "fff5ee",
	"sienna":               "a0522d",
	"silver":               "c0c0c0",
	"skyblue":              "87ceeb",
	"slateblue":            "6a5acd",
	"slategray":            "708090",
	"snow":                 "fffafa",
	"springgreen":          "00ff7f",
	"steelblue":            "4682b4",
	"tan":                  "d2b48c",
	"teal":                 "008080",
	"thistle":              "d8bfd8",
	"tomato":               "ff6347",
	"turquoise":            "40e0d0",
	"violet":               "ee82ee",
	"wheat":                "f5deb3",
	"white":                "ffffff",
	"whitesmoke":           "f5f5f5",
	"yellow":               "ffff00",
	"yellowgreen":          "9acd32",
}
