package model

// Scalar value types used by scene files. Each accepts the forms people write
// by hand in YAML or JSON and marshals back to a canonical string.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/antonvh/np-animation/animation"
)

// Duration is a time.Duration written either as a Go duration string, "1.5s",
// or as a number of seconds
type Duration time.Duration

// D returns the duration as a time.Duration
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a duration nor a number of seconds", s)
	}
	return Duration(d), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) (err error) {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: a duration must be a scalar", node.Line)
	}
	if *d, err = parseDuration(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalJSON(b []byte) (err error) {
	var v any
	if err = json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(val * float64(time.Second))
		return nil
	case string:
		*d, err = parseDuration(val)
		return err
	}
	return fmt.Errorf("%s is not a duration", string(b))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ColorSpec is a color written as a palette name, a hex string or a list of
// 3 or 4 channel values. A fourth, white, channel is accepted and ignored
type ColorSpec animation.Color

// C returns the logical color
func (c ColorSpec) C() animation.Color {
	return animation.Color(c)
}

func colorFromChannels(channels []int) (ColorSpec, error) {
	if len(channels) != 3 && len(channels) != 4 {
		return ColorSpec{}, fmt.Errorf("a color needs 3 or 4 channels, got %d", len(channels))
	}
	for _, ch := range channels {
		if ch < 0 || ch > 255 {
			return ColorSpec{}, fmt.Errorf("channel value %d is outside 0-255", ch)
		}
	}
	return ColorSpec{uint8(channels[0]), uint8(channels[1]), uint8(channels[2])}, nil
}

func (c *ColorSpec) UnmarshalYAML(node *yaml.Node) (err error) {
	switch node.Kind {
	case yaml.ScalarNode:
		col, errGo := animation.ParseColor(node.Value)
		if errGo != nil {
			return fmt.Errorf("line %d: %w", node.Line, errGo)
		}
		*c = ColorSpec(col)
		return nil
	case yaml.SequenceNode:
		channels := []int{}
		if err = node.Decode(&channels); err != nil {
			return err
		}
		if *c, err = colorFromChannels(channels); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		return nil
	}
	return fmt.Errorf("line %d: a color must be a name, a hex string or a list of channels", node.Line)
}

func (c ColorSpec) MarshalYAML() (any, error) {
	return c.C().Hex(), nil
}

func (c *ColorSpec) UnmarshalJSON(b []byte) (err error) {
	name := ""
	if errGo := json.Unmarshal(b, &name); errGo == nil {
		col, errGo := animation.ParseColor(name)
		if errGo != nil {
			return errGo
		}
		*c = ColorSpec(col)
		return nil
	}
	channels := []int{}
	if err = json.Unmarshal(b, &channels); err != nil {
		return fmt.Errorf("%s is not a color", string(b))
	}
	*c, err = colorFromChannels(channels)
	return err
}

func (c ColorSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.C().Hex())
}
