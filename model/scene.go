package model

// This module defines the scene file, the implementation neutral description
// of a strip and the function matrix animating it, and its conversion into
// the structures used by the animation engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/antonvh/np-animation/animation"
)

var (
	// ErrUnknownEffect is returned for a layer naming an effect that does not exist
	ErrUnknownEffect = errors.New("unknown effect")
	// ErrBadLayer is returned for a layer whose parameters do not fit its effect
	ErrBadLayer = errors.New("invalid layer")
)

// KeyframeSpec is one keyframe of a track
type KeyframeSpec struct {
	At    Duration  `yaml:"at" json:"at"`
	Color ColorSpec `yaml:"color" json:"color"`
}

// LayerSpec describes one layer of the function matrix. Which fields apply
// depends upon the effect
type LayerSpec struct {
	LEDs    []int    `yaml:"leds,omitempty" json:"leds,omitempty"`
	Span    []int    `yaml:"span,omitempty" json:"span,omitempty"` // [from, to) appended to LEDs
	Effect  string   `yaml:"effect" json:"effect"`
	Start   Duration `yaml:"start,omitempty" json:"start,omitempty"`
	Trigger string   `yaml:"trigger,omitempty" json:"trigger,omitempty"`

	Color   *ColorSpec `yaml:"color,omitempty" json:"color,omitempty"`
	Off     *ColorSpec `yaml:"off,omitempty" json:"off,omitempty"`
	From    *ColorSpec `yaml:"from,omitempty" json:"from,omitempty"`
	To      *ColorSpec `yaml:"to,omitempty" json:"to,omitempty"`
	Drive   *ColorSpec `yaml:"drive,omitempty" json:"drive,omitempty"`
	Brake   *ColorSpec `yaml:"brake,omitempty" json:"brake,omitempty"`
	Reverse *ColorSpec `yaml:"reverse,omitempty" json:"reverse,omitempty"`

	Period Duration `yaml:"period,omitempty" json:"period,omitempty"`
	Offset Duration `yaml:"offset,omitempty" json:"offset,omitempty"`
	OnAt   Duration `yaml:"on_at,omitempty" json:"on_at,omitempty"`
	OffAt  Duration `yaml:"off_at,omitempty" json:"off_at,omitempty"`
	Delay  Duration `yaml:"delay,omitempty" json:"delay,omitempty"`

	Speed float64  `yaml:"speed,omitempty" json:"speed,omitempty"` // Degrees per second
	Min   *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max   *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Width float64  `yaml:"width,omitempty" json:"width,omitempty"`
	Tail  int      `yaml:"tail,omitempty" json:"tail,omitempty"`
	Side  string   `yaml:"side,omitempty" json:"side,omitempty"`
	Input string   `yaml:"input,omitempty" json:"input,omitempty"`

	Keyframes []KeyframeSpec         `yaml:"keyframes,omitempty" json:"keyframes,omitempty"`
	Tracks    map[int][]KeyframeSpec `yaml:"tracks,omitempty" json:"tracks,omitempty"`
	Preset    string                 `yaml:"preset,omitempty" json:"preset,omitempty"`
	Cyclic    bool                   `yaml:"cyclic,omitempty" json:"cyclic,omitempty"`
	Step      bool                   `yaml:"step,omitempty" json:"step,omitempty"`

	Options map[string]LayerSpec `yaml:"options,omitempty" json:"options,omitempty"`
}

// Scene is a strip and its function matrix
type Scene struct {
	Name       string      `yaml:"name,omitempty" json:"name,omitempty"`
	LEDs       int         `yaml:"leds" json:"leds"` // 0 sizes the strip from the layers
	Order      string      `yaml:"order,omitempty" json:"order,omitempty"`
	Brightness *float64    `yaml:"brightness,omitempty" json:"brightness,omitempty"`
	FPS        float64     `yaml:"fps,omitempty" json:"fps,omitempty"`
	Layers     []LayerSpec `yaml:"layers" json:"layers"`
}

// LoadScene reads a scene from a YAML or, for files ending in .json, a JSON file
func LoadScene(path string) (scene *Scene, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseSceneJSON(data)
	}
	return ParseScene(data)
}

// ParseScene decodes a YAML scene, rejecting unknown fields
func ParseScene(data []byte) (scene *Scene, err error) {
	scene = &Scene{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(scene); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	return scene, nil
}

// ParseSceneJSON decodes a JSON scene, rejecting unknown fields
func ParseSceneJSON(data []byte) (scene *Scene, err error) {
	scene = &Scene{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(scene); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	return scene, nil
}

// DeepCopy deepcopies a scene using json marshaling
func (scene *Scene) DeepCopy() (cpy *Scene) {
	if scene == nil {
		return nil
	}
	cpy = &Scene{}

	byt, _ := json.Marshal(scene)
	json.Unmarshal(byt, cpy)
	return cpy
}

// Options are the compositor options described by the scene
func (scene *Scene) Options() (opts []animation.Option, err error) {
	order, err := animation.ParseOrder(scene.Order)
	if err != nil {
		return nil, err
	}
	opts = []animation.Option{animation.WithOrder(order)}
	if scene.Brightness != nil {
		opts = append(opts, animation.WithBrightness(*scene.Brightness))
	}
	return opts, nil
}

// Matrix converts the layers into a function matrix. LED indices are checked
// against the strip when the compositor is created
func (scene *Scene) Matrix() (m animation.Matrix, err error) {
	m = make(animation.Matrix, 0, len(scene.Layers))
	for i, spec := range scene.Layers {
		leds, err := spec.leds()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		fx, err := spec.effect()
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, spec.Effect, err)
		}
		m = append(m, animation.Layer{
			LEDs:    leds,
			Effect:  fx,
			Start:   spec.Start.D(),
			Trigger: spec.Trigger,
		})
	}
	return m, nil
}

// NewAnimation builds the compositor for the scene, extra options are applied
// after those of the scene
func (scene *Scene) NewAnimation(sink animation.Sink, extra ...animation.Option) (npa *animation.NPAnimation, err error) {
	m, err := scene.Matrix()
	if err != nil {
		return nil, err
	}
	opts, err := scene.Options()
	if err != nil {
		return nil, err
	}
	return animation.New(m, scene.LEDs, sink, append(opts, extra...)...)
}

func (spec LayerSpec) leds() ([]int, error) {
	leds := append([]int{}, spec.LEDs...)
	switch len(spec.Span) {
	case 0:
	case 2:
		leds = append(leds, animation.Span(spec.Span[0], spec.Span[1])...)
	default:
		return nil, fmt.Errorf("span needs [from, to], got %v: %w", spec.Span, ErrBadLayer)
	}
	return leds, nil
}

func colorOr(c *ColorSpec, def animation.Color) animation.Color {
	if c == nil {
		return def
	}
	return c.C()
}

func optionalColor(c *ColorSpec) *animation.Color {
	if c == nil {
		return nil
	}
	col := c.C()
	return &col
}

func (spec LayerSpec) track(frames []KeyframeSpec) (track animation.Track, err error) {
	kfs := make([]animation.Keyframe, 0, len(frames))
	for _, kf := range frames {
		kfs = append(kfs, animation.Keyframe{At: kf.At.D(), Color: kf.Color.C()})
	}
	if track, err = animation.NewTrack(kfs, spec.Cyclic); err != nil {
		return track, err
	}
	track.Step = spec.Step
	return track, nil
}

func (spec LayerSpec) effect() (fx animation.Effect, err error) {
	switch strings.ToLower(strings.TrimSpace(spec.Effect)) {
	case "solid", "color":
		return animation.SolidEffect{Color: colorOr(spec.Color, animation.White)}, nil

	case "hue_shift", "rainbow":
		if spec.Period <= 0 && spec.Speed == 0 {
			return nil, fmt.Errorf("hue_shift needs a period or a speed: %w", ErrBadLayer)
		}
		return animation.HueShiftEffect{Speed: spec.Speed, Period: spec.Period.D(), Offset: spec.Offset.D()}, nil

	case "pulse":
		min, max := 0.0, 1.0
		if spec.Min != nil {
			min = *spec.Min
		}
		if spec.Max != nil {
			max = *spec.Max
		}
		return animation.PulseEffect{
			Color:  colorOr(spec.Color, animation.White),
			Period: spec.Period.D(),
			Offset: spec.Offset.D(),
			Min:    min,
			Max:    max,
		}, nil

	case "switch":
		return animation.SwitchEffect{
			On:    colorOr(spec.Color, animation.White),
			Off:   optionalColor(spec.Off),
			Input: spec.Input,
			OnAt:  spec.OnAt.D(),
			OffAt: spec.OffAt.D(),
		}, nil

	case "delayed_switch":
		return animation.DelayedSwitchEffect{
			On:    colorOr(spec.Color, animation.White),
			Off:   optionalColor(spec.Off),
			OnAt:  spec.OnAt.D(),
			OffAt: spec.OffAt.D(),
			Delay: spec.Delay.D(),
		}, nil

	case "indicator", "indicators":
		side := animation.ParseSide(spec.Side)
		if side == animation.SideNone {
			return nil, fmt.Errorf("side %q is not left, right or hazard: %w", spec.Side, ErrBadLayer)
		}
		return animation.IndicatorEffect{
			Side:   side,
			On:     colorOr(spec.Color, animation.Orange),
			Period: spec.Period.D(),
			Input:  spec.Input,
		}, nil

	case "brake_lights":
		return animation.BrakeLightsEffect{
			Drive:   colorOr(spec.Drive, animation.DarkRed),
			Brake:   colorOr(spec.Brake, animation.Red),
			Reverse: colorOr(spec.Reverse, animation.White),
			Input:   spec.Input,
		}, nil

	case "knight_rider":
		return animation.KnightRiderEffect{
			Color:  colorOr(spec.Color, animation.Red),
			Period: spec.Period.D(),
			Width:  spec.Width,
		}, nil

	case "knight_rider_gen", "scanner":
		// Sized to the layer by the compositor
		return animation.ScannerEffect{
			Color: colorOr(spec.Color, animation.Red),
			State: animation.ScannerState{Dir: 1, Tail: spec.Tail},
		}, nil

	case "keyframes":
		track, err := spec.track(spec.Keyframes)
		if err != nil {
			return nil, err
		}
		return animation.KeyframesEffect{Track: track}, nil

	case "keyframes_dict":
		if strings.EqualFold(spec.Preset, "emergency") {
			return animation.KeyframesDictEffect{Tracks: animation.Emergency()}, nil
		}
		if spec.Preset != "" {
			return nil, fmt.Errorf("preset %q: %w", spec.Preset, ErrBadLayer)
		}
		tracks := make(map[int]animation.Track, len(spec.Tracks))
		for pos, frames := range spec.Tracks {
			if tracks[pos], err = spec.track(frames); err != nil {
				return nil, fmt.Errorf("track %d: %w", pos, err)
			}
		}
		return animation.KeyframesDictEffect{Tracks: tracks}, nil

	case "emergency":
		return animation.KeyframesDictEffect{Tracks: animation.Emergency()}, nil

	case "select":
		if len(spec.Options) == 0 {
			return nil, fmt.Errorf("select needs options: %w", ErrBadLayer)
		}
		names := make([]string, 0, len(spec.Options))
		for name := range spec.Options {
			names = append(names, name)
		}
		sort.Strings(names)
		options := make(map[string]animation.Effect, len(spec.Options))
		for _, name := range names {
			if options[name], err = spec.Options[name].effect(); err != nil {
				return nil, fmt.Errorf("option %q: %w", name, err)
			}
		}
		return animation.SelectEffect{Input: spec.Input, Options: options}, nil

	case "gradient":
		return animation.GradientEffect{
			From: colorOr(spec.From, animation.Black),
			To:   colorOr(spec.To, animation.White),
		}, nil
	}
	return nil, fmt.Errorf("%q: %w", spec.Effect, ErrUnknownEffect)
}
