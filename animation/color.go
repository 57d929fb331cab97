package animation

// Color model used by the animation functions and the compositor. Colors are
// authored in logical RGB order and only permuted into the order the strip
// expects when the compositor fills its device buffer.

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a triple of 8 bit channel intensities
type Color struct {
	R, G, B uint8
}

// Hsl is the derived hue, saturation, lightness representation of a Color.
// H is in degrees [0,360), S and L are in [0,1]
type Hsl struct {
	H, S, L float64
}

// Order identifies the channel order used on the wire by a strip
type Order int

const (
	// GRB is the order used by WS2812 style NeoPixels
	GRB Order = iota
	// RGB is the order expected by Open Pixel Control servers such as fadecandy
	RGB
	// BGR is used by some APA102 strips
	BGR
)

func (o Order) String() string {
	switch o {
	case GRB:
		return "grb"
	case RGB:
		return "rgb"
	case BGR:
		return "bgr"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder maps the textual name of an order, as found in scene files, to
// an Order
func ParseOrder(name string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "grb":
		return GRB, nil
	case "rgb":
		return RGB, nil
	case "bgr":
		return BGR, nil
	}
	return GRB, fmt.Errorf("%q is not a known channel order", name)
}

// Device permutes a logical color into the channel order o
func (o Order) Device(c Color) Color {
	switch o {
	case RGB:
		return c
	case BGR:
		return Color{c.B, c.G, c.R}
	}
	return Color{c.G, c.R, c.B}
}

// Logical is the inverse of Device
func (o Order) Logical(c Color) Color {
	switch o {
	case RGB:
		return c
	case BGR:
		return Color{c.B, c.G, c.R}
	}
	return Color{c.G, c.R, c.B}
}

// ToDevice permutes an RGB color into the GRB order used by the LEDs
func ToDevice(c Color) Color {
	return GRB.Device(c)
}

// ToLogical permutes a GRB device color back into RGB order
func ToLogical(c Color) Color {
	return GRB.Logical(c)
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

func fromColorful(col colorful.Color) Color {
	r, g, b := col.Clamped().RGB255()
	return Color{r, g, b}
}

// RGBToHSL decomposes a color using the max/min channel method. Grays have no
// meaningful hue and are reported with a hue and saturation of 0
func RGBToHSL(c Color) Hsl {
	h, s, l := c.colorful().Hsl()
	if h >= 360 {
		h = 0
	}
	return Hsl{H: h, S: s, L: l}
}

// HSLToRGB converts back to a Color. The hue is wrapped into [0,360) and the
// saturation and lightness are clamped into [0,1], the conversion never fails
func HSLToRGB(hsl Hsl) Color {
	return fromColorful(colorful.Hsl(wrapHue(hsl.H), clampUnit(hsl.S), clampUnit(hsl.L)))
}

func wrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Scale dims a color by an intensity in [0,1]
func (c Color) Scale(intensity float64) Color {
	intensity = clampUnit(intensity)
	return Color{
		R: uint8(float64(c.R) * intensity),
		G: uint8(float64(c.G) * intensity),
		B: uint8(float64(c.B) * intensity),
	}
}

// Lerp linearly interpolates every channel from c to to, with t clamped to [0,1]
func (c Color) Lerp(to Color, t float64) Color {
	return fromColorful(c.colorful().BlendRgb(to.colorful(), clampUnit(t)))
}

// Hex returns the html style representation, for instance #ff6603
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// The named colors, in logical order
var (
	Orange  = Color{252, 102, 3}
	Black   = Color{0, 0, 0}
	Off     = Black
	White   = Color{255, 255, 255}
	Red     = Color{255, 0, 0}
	DarkRed = Color{68, 0, 0}
	Blue    = Color{0, 0, 255}
	Yellow  = Color{255, 255, 0}
	Green   = Color{0, 255, 0}
	Cyan    = Color{0, 255, 255}
	Violet  = Color{127, 127, 255}
	Magenta = Color{255, 0, 255}
	Gray    = Color{127, 127, 127}
)

var palette = map[string]Color{
	"orange":   Orange,
	"black":    Black,
	"none":     Black,
	"off":      Off,
	"white":    White,
	"red":      Red,
	"dark_red": DarkRed,
	"darkred":  DarkRed,
	"blue":     Blue,
	"yellow":   Yellow,
	"green":    Green,
	"cyan":     Cyan,
	"violet":   Violet,
	"magenta":  Magenta,
	"gray":     Gray,
	"grey":     Gray,
}

// ParseColor accepts a palette name or a #rgb / #rrggbb hex string
func ParseColor(name string) (Color, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if c, isPresent := palette[key]; isPresent {
		return c, nil
	}
	if strings.HasPrefix(key, "#") {
		col, err := colorful.Hex(key)
		if err != nil {
			return Black, fmt.Errorf("%q is not a valid hex color: %w", name, err)
		}
		return fromColorful(col), nil
	}
	return Black, fmt.Errorf("%q is not a known color", name)
}
