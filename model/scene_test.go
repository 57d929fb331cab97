package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/antonvh/np-animation/animation"
)

const carScene = `
name: car
leds: 24
order: grb
brightness: 0.5
layers:
  - span: [0, 6]
    effect: hue_shift
    period: 5s
  - leds: [18, 19, 21, 22]
    effect: brake_lights
  - leds: [12, 23]
    effect: indicator
    side: right
    period: 0.5
    trigger: indicators
  - leds: [0, 1]
    effect: keyframes
    cyclic: true
    keyframes:
      - {at: 0s, color: black}
      - {at: 2, color: [255, 255, 255]}
`

func TestParseScene(t *testing.T) {
	scene, err := ParseScene([]byte(carScene))
	if err != nil {
		t.Fatalf("ParseScene failed: %v", err)
	}
	if scene.Name != "car" || scene.LEDs != 24 || scene.Brightness == nil || *scene.Brightness != 0.5 {
		t.Errorf("unexpected scene header %+v", scene)
	}

	m, err := scene.Matrix()
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	want := animation.Matrix{
		{LEDs: []int{0, 1, 2, 3, 4, 5}, Effect: animation.HueShiftEffect{Period: 5 * time.Second}},
		{LEDs: []int{18, 19, 21, 22}, Effect: animation.BrakeLightsEffect{
			Drive: animation.DarkRed, Brake: animation.Red, Reverse: animation.White,
		}},
		{LEDs: []int{12, 23}, Trigger: "indicators", Effect: animation.IndicatorEffect{
			Side: animation.SideRight, On: animation.Orange, Period: 500 * time.Millisecond,
		}},
		{LEDs: []int{0, 1}, Effect: animation.KeyframesEffect{Track: animation.Track{
			Frames: []animation.Keyframe{{At: 0, Color: animation.Black}, {At: 2 * time.Second, Color: animation.White}},
			Cyclic: true,
		}}},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("matrix mismatch (-want +got):\n%s", diff)
	}
}

func TestSceneNewAnimation(t *testing.T) {
	scene, err := ParseScene([]byte(carScene))
	if err != nil {
		t.Fatalf("ParseScene failed: %v", err)
	}
	var frame []animation.Color
	sink := animation.SinkFunc(func(buf []animation.Color) error {
		frame = append([]animation.Color(nil), buf...)
		return nil
	})
	npa, err := scene.NewAnimation(sink)
	if err != nil {
		t.Fatalf("NewAnimation failed: %v", err)
	}
	if npa.Len() != 24 || npa.Order() != animation.GRB {
		t.Errorf("compositor has %d LEDs in %v order", npa.Len(), npa.Order())
	}
	if err = npa.TickAt(0, animation.Inputs{"braking": true}); err != nil {
		t.Fatalf("TickAt failed: %v", err)
	}
	// Half brightness full red, in device order
	if got := frame[18]; got != (animation.Color{R: 0, G: 127, B: 0}) {
		t.Errorf("brake light is %v", got)
	}

	scene.LEDs = 20
	if _, err = scene.NewAnimation(sink); !errors.Is(err, animation.ErrLEDIndex) {
		t.Errorf("short strip gave %v, want %v", err, animation.ErrLEDIndex)
	}
	scene.LEDs = 24
	scene.Order = "rgbw"
	if _, err = scene.NewAnimation(sink); err == nil {
		t.Error("an unknown order was accepted")
	}
}

func TestSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown effect", "leds: 2\nlayers:\n  - {leds: [0], effect: disco}\n", ErrUnknownEffect},
		{"bad side", "leds: 2\nlayers:\n  - {leds: [0], effect: indicator, side: up}\n", ErrBadLayer},
		{"bad span", "leds: 2\nlayers:\n  - {span: [0], effect: solid}\n", ErrBadLayer},
		{"no hue rate", "leds: 2\nlayers:\n  - {leds: [0], effect: hue_shift}\n", ErrBadLayer},
		{"bad preset", "leds: 2\nlayers:\n  - {leds: [0], effect: keyframes_dict, preset: fire}\n", ErrBadLayer},
		{"empty select", "leds: 2\nlayers:\n  - {leds: [0], effect: select}\n", ErrBadLayer},
		{"empty track", "leds: 2\nlayers:\n  - {leds: [0], effect: keyframes}\n", animation.ErrTrackEmpty},
		{"unordered track", "leds: 2\nlayers:\n  - leds: [0]\n    effect: keyframes\n    keyframes: [{at: 2, color: red}, {at: 1, color: blue}]\n", animation.ErrTrackOrder},
		{"bad option", "leds: 2\nlayers:\n  - leds: [0]\n    effect: select\n    options: {a: {effect: nope}}\n", ErrUnknownEffect},
	}
	for _, test := range tests {
		scene, err := ParseScene([]byte(test.yaml))
		if err != nil {
			t.Errorf("%s: ParseScene failed: %v", test.name, err)
			continue
		}
		if _, err = scene.Matrix(); !errors.Is(err, test.want) {
			t.Errorf("%s: Matrix gave %v, want %v", test.name, err, test.want)
		}
	}

	for _, bad := range []string{
		"leds: 2\nlayers:\n  - {leds: [0], effect: solid, colour: red}\n",
		"leds: 2\nlayers:\n  - {leds: [0], effect: solid, color: mauve}\n",
		"leds: 2\nlayers:\n  - {leds: [0], effect: solid, color: [1, 2]}\n",
		"leds: 2\nlayers:\n  - {leds: [0], effect: solid, color: [256, 0, 0]}\n",
		"leds: 2\nlayers:\n  - {leds: [0], effect: pulse, period: soon}\n",
	} {
		if _, err := ParseScene([]byte(bad)); err == nil {
			t.Errorf("ParseScene accepted %q", bad)
		}
	}
}

func TestSceneEffects(t *testing.T) {
	yml := `
leds: 8
layers:
  - {leds: [0], effect: solid, color: "#102030"}
  - {leds: [1], effect: pulse, color: blue, period: 2s, min: 0.2}
  - {leds: [2], effect: switch, color: green, off: [1, 2, 3, 4], on_at: 1s, off_at: 2s, input: lights}
  - {leds: [3], effect: delayed_switch, on_at: 1s, delay: 250ms}
  - {leds: [4, 5], effect: scanner, tail: 1}
  - {span: [0, 6], effect: emergency, trigger: siren}
  - leds: [6]
    effect: select
    options:
      police: {effect: solid, color: blue}
      rainbow: {effect: hue_shift, speed: 90}
  - {leds: [6, 7], effect: gradient, from: red, to: blue}
`
	scene, err := ParseScene([]byte(yml))
	if err != nil {
		t.Fatalf("ParseScene failed: %v", err)
	}
	m, err := scene.Matrix()
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	off := animation.Color{R: 1, G: 2, B: 3}
	want := []animation.Effect{
		animation.SolidEffect{Color: animation.Color{R: 0x10, G: 0x20, B: 0x30}},
		animation.PulseEffect{Color: animation.Blue, Period: 2 * time.Second, Min: 0.2, Max: 1},
		animation.SwitchEffect{On: animation.Green, Off: &off, Input: "lights", OnAt: time.Second, OffAt: 2 * time.Second},
		animation.DelayedSwitchEffect{On: animation.White, OnAt: time.Second, Delay: 250 * time.Millisecond},
		animation.ScannerEffect{Color: animation.Red, State: animation.ScannerState{Dir: 1, Tail: 1}},
		animation.KeyframesDictEffect{Tracks: animation.Emergency()},
		animation.SelectEffect{Options: map[string]animation.Effect{
			"police":  animation.SolidEffect{Color: animation.Blue},
			"rainbow": animation.HueShiftEffect{Speed: 90},
		}},
		animation.GradientEffect{From: animation.Red, To: animation.Blue},
	}
	got := []animation.Effect{}
	for _, layer := range m {
		got = append(got, layer.Effect)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
	if m[5].Trigger != "siren" || len(m[5].LEDs) != 6 {
		t.Errorf("emergency layer %+v", m[5])
	}
}

func TestKeyframesDictTracks(t *testing.T) {
	yml := `
leds: 4
layers:
  - leds: [0, 1, 2, 3]
    effect: keyframes_dict
    step: true
    tracks:
      1: [{at: 0, color: red}, {at: 1, color: blue}]
      3: [{at: 0.5, color: green}]
`
	scene, err := ParseScene([]byte(yml))
	if err != nil {
		t.Fatalf("ParseScene failed: %v", err)
	}
	m, err := scene.Matrix()
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	want := animation.KeyframesDictEffect{Tracks: map[int]animation.Track{
		1: {Frames: []animation.Keyframe{{At: 0, Color: animation.Red}, {At: time.Second, Color: animation.Blue}}, Step: true},
		3: {Frames: []animation.Keyframe{{At: 500 * time.Millisecond, Color: animation.Green}}, Step: true},
	}}
	if diff := cmp.Diff(animation.Effect(want), m[0].Effect); diff != "" {
		t.Errorf("tracks mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSceneFormats(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "car.yaml")
	if err := os.WriteFile(yamlPath, []byte(carScene), 0o600); err != nil {
		t.Fatal(err)
	}
	fromYAML, err := LoadScene(yamlPath)
	if err != nil {
		t.Fatalf("LoadScene(yaml) failed: %v", err)
	}

	jsonDoc := `{
		"name": "car", "leds": 24, "order": "grb", "brightness": 0.5,
		"layers": [
			{"span": [0, 6], "effect": "hue_shift", "period": "5s"},
			{"leds": [18, 19, 21, 22], "effect": "brake_lights"},
			{"leds": [12, 23], "effect": "indicator", "side": "right", "period": 0.5, "trigger": "indicators"},
			{"leds": [0, 1], "effect": "keyframes", "cyclic": true, "keyframes": [
				{"at": "0s", "color": "black"}, {"at": 2, "color": [255, 255, 255]}
			]}
		]
	}`
	jsonPath := filepath.Join(dir, "car.json")
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	fromJSON, err := LoadScene(jsonPath)
	if err != nil {
		t.Fatalf("LoadScene(json) failed: %v", err)
	}

	if diff := cmp.Diff(fromYAML, fromJSON); diff != "" {
		t.Errorf("yaml and json scenes differ (-yaml +json):\n%s", diff)
	}
	if diff := cmp.Diff(fromYAML, fromYAML.DeepCopy()); diff != "" {
		t.Errorf("DeepCopy differs (-want +got):\n%s", diff)
	}

	if _, err := LoadScene(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file gave %v", err)
	}
	if _, err := ParseSceneJSON([]byte(`{"leds": 1, "layer": []}`)); err == nil {
		t.Error("unknown json field accepted")
	}
}

func TestDurationForms(t *testing.T) {
	tests := map[string]time.Duration{
		"1.5s":  1500 * time.Millisecond,
		"2":     2 * time.Second,
		"0.25":  250 * time.Millisecond,
		"100ms": 100 * time.Millisecond,
		"1m":    time.Minute,
	}
	for in, want := range tests {
		got, err := parseDuration(in)
		if err != nil {
			t.Errorf("parseDuration(%q) failed: %v", in, err)
			continue
		}
		if got.D() != want {
			t.Errorf("parseDuration(%q) = %v, want %v", in, got.D(), want)
		}
	}
}

func TestInputMsgDeepCopy(t *testing.T) {
	msg := &InputMsg{
		Source: "poll",
		At:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Inputs: animation.Inputs{"braking": true, "speed": 12.5, "indicators": "left"},
	}
	cpy := msg.DeepCopy()
	if diff := cmp.Diff(msg, cpy); diff != "" {
		t.Errorf("DeepCopy differs (-want +got):\n%s", diff)
	}
	cpy.Inputs["braking"] = false
	if msg.Inputs["braking"] != true {
		t.Error("the copy shares its inputs with the original")
	}
	if (*InputMsg)(nil).DeepCopy() != nil {
		t.Error("copy of nil should be nil")
	}
}
