package animation

// The animation function library. Every function here maps an elapsed time,
// and its parameters, to a color or an intensity. They are total: out of range
// times wrap or clamp and nonsensical parameters degrade to a dark or no-effect
// result rather than an error, as a stalled tick is worse than a dark LED.

import (
	"math"
	"strings"
	"time"
)

// Side selects which indicators are blinking
type Side int

const (
	// SideNone means no indicator is requested
	SideNone Side = iota
	SideLeft
	SideRight
	// SideHazard blinks both sides
	SideHazard
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideHazard:
		return "hazard"
	}
	return "off"
}

// ParseSide maps an input value to a Side, anything not understood is SideNone
func ParseSide(name string) Side {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left", "l":
		return SideLeft
	case "right", "r":
		return SideRight
	case "hazard", "hazards", "both":
		return SideHazard
	}
	return SideNone
}

// wrap reduces d into [0, period)
func wrap(d, period time.Duration) time.Duration {
	d %= period
	if d < 0 {
		d += period
	}
	return d
}

// phase is the fraction of period that d has progressed through, in [0,1)
func phase(d, period time.Duration) float64 {
	return float64(wrap(d, period)) / float64(period)
}

// HueShift returns a fully saturated color whose hue advances by speed degrees
// per second of elapsed time
func HueShift(elapsed time.Duration, speed float64) Color {
	return HSLToRGB(Hsl{H: speed * elapsed.Seconds(), S: 1, L: 0.5})
}

// HueCycle is HueShift expressed as the time taken for one full trip around
// the color wheel. The hue is computed from whole nanoseconds so that
// HueCycle(t, p) == HueCycle(t+p, p) exactly
func HueCycle(elapsed, period time.Duration) Color {
	if period <= 0 {
		return HSLToRGB(Hsl{H: 0, S: 1, L: 0.5})
	}
	return HSLToRGB(Hsl{H: phase(elapsed, period) * 360, S: 1, L: 0.5})
}

// Pulse is a sinusoidal envelope oscillating between min and max once every
// period. Bounds are clamped to [0,1] and swapped when given in reverse. A
// non-positive period is a steady max
func Pulse(elapsed, period time.Duration, min, max float64) float64 {
	min, max = clampUnit(min), clampUnit(max)
	if min > max {
		min, max = max, min
	}
	if period <= 0 {
		return max
	}
	v := min + (max-min)*(math.Sin(2*math.Pi*phase(elapsed, period))+1)/2
	return math.Max(min, math.Min(max, v))
}

// Switch is on for elapsed in [onAt, offAt)
func Switch(elapsed, onAt, offAt time.Duration) bool {
	return elapsed >= onAt && elapsed < offAt
}

// DelayedSwitch is a Switch whose transitions only take effect once delay has
// passed since onAt or offAt, modelling the start up lag of a debounced signal
func DelayedSwitch(elapsed, onAt, offAt, delay time.Duration) bool {
	if delay < 0 {
		delay = 0
	}
	return Switch(elapsed, onAt+delay, offAt+delay)
}

// Indicators blinks orange for the requested side, on for the first half of
// every blinkPeriod and dark for the second half. An unknown side reports no
// effect
func Indicators(elapsed time.Duration, side Side, blinkPeriod time.Duration) (c Color, ok bool) {
	switch side {
	case SideLeft, SideRight, SideHazard:
	default:
		return Off, false
	}
	if blinkPeriod <= 0 {
		return Orange, true
	}
	if Switch(wrap(elapsed, blinkPeriod), 0, blinkPeriod/2) {
		return Orange, true
	}
	return Off, true
}

// BrakeLights is full red while braking and a dim red tail light otherwise
func BrakeLights(elapsed time.Duration, isBraking bool) Color {
	if isBraking {
		return Red
	}
	return DarkRed
}

// KnightRiderPosition is the fractional position of the bright pixel of a
// scanner sweeping 0 -> n-1 -> 0 once every period, following a triangle wave
func KnightRiderPosition(elapsed time.Duration, nLeds int, period time.Duration) float64 {
	if nLeds <= 1 || period <= 0 {
		return 0
	}
	p := phase(elapsed, period)
	tri := 2 * p
	if p >= 0.5 {
		tri = 2 - 2*p
	}
	return tri * float64(nLeds-1)
}

// KnightRider returns the intensity of each of nLeds pixels, a single pixel at
// full intensity sweeping back and forth
func KnightRider(elapsed time.Duration, nLeds int, period time.Duration) []float64 {
	if nLeds <= 0 {
		return nil
	}
	levels := make([]float64, nLeds)
	idx := int(math.Round(KnightRiderPosition(elapsed, nLeds, period)))
	if idx >= nLeds {
		idx = nLeds - 1
	}
	levels[idx] = 1
	return levels
}

// knightRiderSpread is the KnightRider sweep with a bell shaped falloff of
// the given width around the bright pixel
func knightRiderSpread(elapsed time.Duration, nLeds int, period time.Duration, width float64) []float64 {
	if width <= 0 {
		return KnightRider(elapsed, nLeds, period)
	}
	levels := make([]float64, nLeds)
	center := KnightRiderPosition(elapsed, nLeds, period)
	for i := range levels {
		d := float64(i) - center
		levels[i] = math.Pow(2, -1.5/width*d*d)
	}
	return levels
}
