package animation

// Effects are the parameterised animation functions a layer of the function
// matrix can carry. The set is closed, every effect is one of the types in
// this file and all of them are evaluated by render.

import (
	"fmt"
	"strings"
	"time"
)

// Effect is implemented only by the effect types of this package
type Effect interface {
	effect()
}

// SolidEffect is a steady color
type SolidEffect struct {
	Color Color
}

// HueShiftEffect cycles through the color wheel, either once per Period or,
// when Period is zero, at Speed degrees per second
type HueShiftEffect struct {
	Speed  float64
	Period time.Duration
	Offset time.Duration
}

// PulseEffect breathes Color between the Min and Max intensities once per
// Period
type PulseEffect struct {
	Color  Color
	Period time.Duration
	Offset time.Duration
	Min    float64
	Max    float64
}

// SwitchEffect shows On while the switch is on. The switch also follows the
// input named by Input, "switch" by default, which counts as on when absent. A zero OffAt
// never switches off. While off Off is shown, or nothing at all when Off is nil
type SwitchEffect struct {
	On    Color
	Off   *Color
	Input string
	OnAt  time.Duration
	OffAt time.Duration
}

// DelayedSwitchEffect is a SwitchEffect whose edges lag by Delay
type DelayedSwitchEffect struct {
	On    Color
	Off   *Color
	OnAt  time.Duration
	OffAt time.Duration
	Delay time.Duration
}

// IndicatorEffect blinks the LEDs of one Side of a vehicle while the Input,
// "indicators" by default, requests that side or the hazards. The input may
// be a side name or, for a layer dedicated to one side, a boolean
type IndicatorEffect struct {
	Side   Side
	On     Color // Orange when left zero
	Period time.Duration
	Input  string
}

// BrakeLightsEffect follows the "braking" input, or Input when named, and the
// "speed" input: reverse while the speed is negative, brake while braking or
// stationary and drive otherwise. Zero colors select the defaults of DarkRed,
// Red and White
type BrakeLightsEffect struct {
	Drive   Color
	Brake   Color
	Reverse Color
	Input   string
}

// KnightRiderEffect sweeps a bright pixel across the LEDs of its layer. A
// positive Width adds a bell shaped glow around the pixel
type KnightRiderEffect struct {
	Color  Color // Red when left zero
	Period time.Duration
	Width  float64
}

// ScannerEffect is the step driven sweep. The compositor advances State once
// per tick rather than deriving it from the elapsed time
type ScannerEffect struct {
	Color Color // Red when left zero
	State ScannerState
}

// KeyframesEffect shows one keyframe track on every LED of its layer
type KeyframesEffect struct {
	Track Track
}

// KeyframesDictEffect gives LEDs of its layer their own track, keyed by
// position within the layer. LEDs without a track are left untouched
type KeyframesDictEffect struct {
	Tracks map[int]Track
}

// SelectEffect chooses one of several effects by the name held in Input,
// "animation" by default. An unknown name has no effect
type SelectEffect struct {
	Input   string
	Options map[string]Effect
}

// GradientEffect spreads a blend from From to To across the LEDs of its layer
type GradientEffect struct {
	From Color
	To   Color
}

func (SolidEffect) effect()         {}
func (HueShiftEffect) effect()      {}
func (PulseEffect) effect()         {}
func (SwitchEffect) effect()        {}
func (DelayedSwitchEffect) effect() {}
func (IndicatorEffect) effect()     {}
func (BrakeLightsEffect) effect()   {}
func (KnightRiderEffect) effect()   {}
func (ScannerEffect) effect()       {}
func (KeyframesEffect) effect()     {}
func (KeyframesDictEffect) effect() {}
func (SelectEffect) effect()        {}
func (GradientEffect) effect()      {}

// sample is the result of an effect for one LED, ok is false when the effect
// has nothing to say about that LED on this tick
type sample struct {
	c  Color
	ok bool
}

func some(c Color) []sample {
	return []sample{{c, true}}
}

const forever = time.Duration(1<<63 - 1)

func orDefault(c, def Color) Color {
	if c == (Color{}) {
		return def
	}
	return c
}

func offSample(off *Color) []sample {
	if off == nil {
		return nil
	}
	return some(*off)
}

func scaled(c Color, levels []float64) []sample {
	samples := make([]sample, len(levels))
	for i, level := range levels {
		samples[i] = sample{c.Scale(level), true}
	}
	return samples
}

// inputActive reports whether a named input is asserted, booleans and numbers
// by value and strings when they name anything other than an off state
func inputActive(in Inputs, name string) bool {
	if s, ok := in[name].(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "off", "none", "false", "0", "no":
			return false
		}
		return true
	}
	return in.Bool(name, false)
}

// render evaluates an effect at time t for a layer of n LEDs. A single sample
// applies to every LED of the layer, longer results are cycled over the
// layer. An empty result means no effect at all
func render(e Effect, t time.Duration, in Inputs, n int) []sample {
	switch fx := e.(type) {
	case SolidEffect:
		return some(fx.Color)

	case HueShiftEffect:
		if fx.Period > 0 {
			return some(HueCycle(t+fx.Offset, fx.Period))
		}
		return some(HueShift(t+fx.Offset, fx.Speed))

	case PulseEffect:
		return some(fx.Color.Scale(Pulse(t+fx.Offset, fx.Period, fx.Min, fx.Max)))

	case SwitchEffect:
		offAt := fx.OffAt
		if offAt <= 0 {
			offAt = forever
		}
		input := fx.Input
		if input == "" {
			input = "switch"
		}
		on := Switch(t, fx.OnAt, offAt) && in.Bool(input, true)
		if on {
			return some(fx.On)
		}
		return offSample(fx.Off)

	case DelayedSwitchEffect:
		delay := fx.Delay
		if delay < 0 {
			delay = 0
		}
		offAt := fx.OffAt
		if offAt <= 0 {
			offAt = forever - delay
		}
		if DelayedSwitch(t, fx.OnAt, offAt, delay) {
			return some(fx.On)
		}
		return offSample(fx.Off)

	case IndicatorEffect:
		input := fx.Input
		if input == "" {
			input = "indicators"
		}
		requested := SideNone
		switch v := in[input].(type) {
		case string:
			requested = ParseSide(v)
		case bool:
			if v {
				requested = fx.Side
			}
		}
		if requested != SideHazard && (requested == SideNone || requested != fx.Side) {
			return nil
		}
		c, ok := Indicators(t, requested, fx.Period)
		if !ok {
			return nil
		}
		if c == Off {
			return some(Off)
		}
		return some(orDefault(fx.On, Orange))

	case BrakeLightsEffect:
		input := fx.Input
		if input == "" {
			input = "braking"
		}
		drive := orDefault(fx.Drive, DarkRed)
		brake := orDefault(fx.Brake, Red)
		reverse := orDefault(fx.Reverse, White)
		if in.Has("speed") {
			speed := in.Float("speed", 0)
			switch {
			case speed < 0:
				return some(reverse)
			case speed == 0:
				return some(brake)
			}
		}
		if c := BrakeLights(t, in.Bool(input, false)); c == Red {
			return some(brake)
		}
		return some(drive)

	case KnightRiderEffect:
		if n <= 0 {
			return nil
		}
		return scaled(orDefault(fx.Color, Red), knightRiderSpread(t, n, fx.Period, fx.Width))

	case ScannerEffect:
		return scaled(orDefault(fx.Color, Red), fx.State.Levels())

	case KeyframesEffect:
		return some(Keyframes(t, fx.Track))

	case KeyframesDictEffect:
		if n <= 0 {
			return nil
		}
		samples := make([]sample, n)
		for pos, c := range KeyframesDict(t, fx.Tracks) {
			if pos >= 0 && pos < n {
				samples[pos] = sample{c, true}
			}
		}
		return samples

	case SelectEffect:
		input := fx.Input
		if input == "" {
			input = "animation"
		}
		chosen, isPresent := fx.Options[in.String(input, "")]
		if !isPresent || chosen == nil {
			return nil
		}
		return render(chosen, t, in, n)

	case GradientEffect:
		if n <= 1 {
			return some(fx.From)
		}
		from, to := fx.From.colorful(), fx.To.colorful()
		samples := make([]sample, n)
		for i := range samples {
			samples[i] = sample{fromColorful(from.BlendLab(to, float64(i)/float64(n-1))), true}
		}
		return samples
	}
	return nil
}

// validateEffect checks the parameters of an effect that can be wrong at
// construction time, chiefly the ordering of keyframe tracks
func validateEffect(e Effect) error {
	switch fx := e.(type) {
	case nil:
		return ErrNilEffect
	case KeyframesEffect:
		return fx.Track.Validate()
	case KeyframesDictEffect:
		for pos, track := range fx.Tracks {
			if err := track.Validate(); err != nil {
				return fmt.Errorf("track for position %d: %w", pos, err)
			}
		}
	case SelectEffect:
		for name, option := range fx.Options {
			if err := validateEffect(option); err != nil {
				return fmt.Errorf("option %q: %w", name, err)
			}
		}
	}
	return nil
}
