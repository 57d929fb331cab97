package animation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLEDCount is returned when the strip length is negative, or cannot be
	// derived from the matrix
	ErrLEDCount = errors.New("the number of LEDs must be positive")
	// ErrLEDIndex is returned when a layer addresses an LED beyond the strip
	ErrLEDIndex = errors.New("LED index out of range")
	// ErrEmptyMatrix is returned for a matrix without layers
	ErrEmptyMatrix = errors.New("the function matrix has no layers")
	// ErrNilEffect is returned for a layer without an effect
	ErrNilEffect = errors.New("layer has no effect")
	// ErrNilSink is returned when no sink is supplied
	ErrNilSink = errors.New("a sink is required")
)

// State of the compositor
type State int

const (
	// Idle is the state after construction and after Stop
	Idle State = iota
	// Running is entered by the first tick
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Sink transmits a finished buffer, in device order, to the strip. The buffer
// is only valid for the duration of the call and must not be retained.
// Failures are reported by the sink and handed back to the caller of Tick.
type Sink interface {
	Write(buf []Color) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(buf []Color) error

// Write calls f
func (f SinkFunc) Write(buf []Color) error {
	return f(buf)
}

// Option configures an NPAnimation
type Option func(*NPAnimation)

// WithOrder selects the channel order of the device buffer, GRB by default
func WithOrder(order Order) Option {
	return func(a *NPAnimation) {
		a.order = order
	}
}

// WithBrightness scales every LED by brightness, clamped into [0,1]
func WithBrightness(brightness float64) Option {
	return func(a *NPAnimation) {
		a.brightness = clampUnit(brightness)
	}
}

// WithClock replaces the monotonic clock, chiefly for tests
func WithClock(now func() time.Time) Option {
	return func(a *NPAnimation) {
		if now != nil {
			a.now = now
		}
	}
}

// NPAnimation composites a function matrix onto a strip. It is driven by the
// caller, one Tick per iteration of the caller's loop, and never blocks,
// sleeps or spawns goroutines. It is not safe for concurrent use, callers with
// more than one goroutine must serialize their calls.
type NPAnimation struct {
	matrix     Matrix
	sink       Sink
	order      Order
	brightness float64
	now        func() time.Time

	state   State
	start   time.Time
	working []Color // logical colors being composed
	buf     []Color // device ordered output
	last    Inputs  // inputs of the previous tick, for trigger edges
	base    Matrix  // layers as constructed, restored by Stop
}

// New creates a compositor for a strip of nLeds driven through sink. An nLeds
// of 0 sizes the strip to the highest LED index used by the matrix.
func New(matrix Matrix, nLeds int, sink Sink, opts ...Option) (a *NPAnimation, err error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if nLeds < 0 {
		return nil, fmt.Errorf("%d LEDs: %w", nLeds, ErrLEDCount)
	}
	if nLeds == 0 {
		if nLeds = matrix.MaxIndex() + 1; nLeds == 0 {
			return nil, fmt.Errorf("no LEDs referenced by the matrix: %w", ErrLEDCount)
		}
	}
	if err = matrix.Validate(nLeds); err != nil {
		return nil, err
	}

	a = &NPAnimation{
		matrix:     matrix.clone(),
		sink:       sink,
		order:      GRB,
		brightness: 1.0,
		now:        time.Now,
		working:    make([]Color, nLeds),
		buf:        make([]Color, nLeds),
		last:       Inputs{},
	}
	for _, opt := range opts {
		opt(a)
	}

	// Generators left unsized sweep the LEDs of their layer
	for i, layer := range a.matrix {
		n := len(layer.LEDs)
		a.matrix[i].Effect, _ = mapEffects(layer.Effect, func(e Effect) (Effect, bool) {
			if fx, ok := e.(ScannerEffect); ok && fx.State.N == 0 {
				fx.State = NewScanner(n, fx.State.Tail)
				return fx, true
			}
			return e, false
		})
	}
	a.base = a.matrix.clone()
	return a, nil
}

// Len is the number of LEDs on the strip
func (a *NPAnimation) Len() int {
	return len(a.buf)
}

// State reports whether the tick loop has started
func (a *NPAnimation) State() State {
	return a.state
}

// Order is the channel order of the device buffer
func (a *NPAnimation) Order() Order {
	return a.order
}

// Matrix returns a copy of the current layers, including the start offsets
// moved by triggers and the current generator states
func (a *NPAnimation) Matrix() Matrix {
	return a.matrix.clone()
}

// Elapsed is the monotonic time since the first tick, zero while idle
func (a *NPAnimation) Elapsed() time.Duration {
	if a.state != Running {
		return 0
	}
	return a.now().Sub(a.start)
}

// Tick renders the strip for the current time and writes it to the sink. The
// first tick starts the clock.
func (a *NPAnimation) Tick(in Inputs) error {
	now := a.now()
	if a.state != Running {
		a.state = Running
		a.start = now
	}
	return a.TickAt(now.Sub(a.start), in)
}

// TickAt renders the strip for an explicit elapsed time and writes it to the
// sink. Triggers fire and generators advance exactly as they do for Tick.
func (a *NPAnimation) TickAt(elapsed time.Duration, in Inputs) error {
	if a.state != Running {
		a.state = Running
		a.start = a.now().Add(-elapsed)
	}
	if in == nil {
		in = Inputs{}
	}
	a.fireTriggers(elapsed, in)
	a.Render(elapsed, in)
	err := a.sink.Write(a.buf)
	a.advance()
	return err
}

// Render composes the matrix at elapsed into the device buffer without
// writing it. The result depends only on elapsed, the inputs and the matrix
// so rendering twice gives the same buffer. The returned slice is reused by
// the next call.
func (a *NPAnimation) Render(elapsed time.Duration, in Inputs) []Color {
	for i := range a.working {
		a.working[i] = Off
	}

	for _, layer := range a.matrix {
		t := elapsed - layer.Start
		if t < 0 {
			// Not started yet
			continue
		}
		samples := render(layer.Effect, t, in, len(layer.LEDs))
		if len(samples) == 0 {
			continue
		}
		for pos, led := range layer.LEDs {
			if s := samples[pos%len(samples)]; s.ok {
				a.working[led] = s.c
			}
		}
	}

	for i, c := range a.working {
		if a.brightness < 1 {
			c = c.Scale(a.brightness)
		}
		a.buf[i] = a.order.Device(c)
	}
	return a.buf
}

// Off blanks the strip with one final write, leaving the state untouched
func (a *NPAnimation) Off() error {
	for i := range a.buf {
		a.buf[i] = a.order.Device(Off)
	}
	return a.sink.Write(a.buf)
}

// Stop blanks the strip and returns to Idle, the next tick restarts the clock.
// Start offsets moved by triggers and generator cursors are put back as they
// were constructed.
func (a *NPAnimation) Stop() error {
	a.state = Idle
	a.last = Inputs{}
	a.matrix = a.base.clone()
	return a.Off()
}

func (a *NPAnimation) fireTriggers(elapsed time.Duration, in Inputs) {
	for i, layer := range a.matrix {
		if layer.Trigger == "" {
			continue
		}
		if inputActive(in, layer.Trigger) && !inputActive(a.last, layer.Trigger) {
			a.matrix[i].Start = elapsed
		}
	}
	a.last = in.Merge(nil)
}

// advance moves every generator on by one step, including those held as
// options of a selection whether or not they are selected
func (a *NPAnimation) advance() {
	for i, layer := range a.matrix {
		a.matrix[i].Effect, _ = mapEffects(layer.Effect, func(e Effect) (Effect, bool) {
			if fx, ok := e.(ScannerEffect); ok {
				fx.State = fx.State.Advance()
				return fx, true
			}
			return e, false
		})
	}
}

// mapEffects applies fn to e and to every effect nested in it. A selection
// whose options change gets a new options map, the original map is never
// written to since copies of a matrix share it.
func mapEffects(e Effect, fn func(Effect) (Effect, bool)) (Effect, bool) {
	nested := false
	if sel, ok := e.(SelectEffect); ok {
		var options map[string]Effect
		for name, option := range sel.Options {
			next, changed := mapEffects(option, fn)
			if !changed {
				continue
			}
			if options == nil {
				options = make(map[string]Effect, len(sel.Options))
				for k, v := range sel.Options {
					options[k] = v
				}
			}
			options[name] = next
		}
		if options != nil {
			sel.Options = options
			e, nested = sel, true
		}
	}
	next, changed := fn(e)
	return next, changed || nested
}
