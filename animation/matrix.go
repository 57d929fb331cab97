package animation

import (
	"fmt"
	"time"
)

// Layer assigns an effect to a group of LEDs. Within a Matrix, layers are
// evaluated in order and a later layer overrides an earlier one for every
// LED it has an effect on.
type Layer struct {
	LEDs   []int         // Strip indices, the order defines position within the layer
	Effect Effect        // What to show
	Start  time.Duration // Offset of this layer's time base from the compositor start

	// Trigger optionally names an input, the layer's Start is reset to the
	// current elapsed time whenever that input becomes asserted
	Trigger string
}

// Matrix is the function matrix, the ordered layers of an animation
type Matrix []Layer

// Span lists the LED indices in [from, to)
func Span(from, to int) []int {
	if to <= from {
		return []int{}
	}
	leds := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		leds = append(leds, i)
	}
	return leds
}

// Add appends a layer starting with the animation and returns the matrix
func (m Matrix) Add(leds []int, e Effect) Matrix {
	return append(m, Layer{LEDs: leds, Effect: e})
}

// AddAt appends a layer whose time base starts at start
func (m Matrix) AddAt(leds []int, e Effect, start time.Duration) Matrix {
	return append(m, Layer{LEDs: leds, Effect: e, Start: start})
}

// Layers is the per LED view of the matrix, the layers covering led in the
// order they are applied
func (m Matrix) Layers(led int) []Layer {
	layers := []Layer{}
	for _, layer := range m {
		for _, idx := range layer.LEDs {
			if idx == led {
				layers = append(layers, layer)
				break
			}
		}
	}
	return layers
}

// MaxIndex is the highest LED index referenced, -1 for a matrix without LEDs
func (m Matrix) MaxIndex() int {
	max := -1
	for _, layer := range m {
		for _, idx := range layer.LEDs {
			if idx > max {
				max = idx
			}
		}
	}
	return max
}

// Validate checks every layer against a strip of nLeds
func (m Matrix) Validate(nLeds int) error {
	if len(m) == 0 {
		return ErrEmptyMatrix
	}
	for i, layer := range m {
		for _, idx := range layer.LEDs {
			if idx < 0 || idx >= nLeds {
				return fmt.Errorf("layer %d references LED %d on a strip of %d: %w", i, idx, nLeds, ErrLEDIndex)
			}
		}
		if err := validateEffect(layer.Effect); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// clone copies the layers and their LED lists so the compositor owns them
func (m Matrix) clone() Matrix {
	cpy := make(Matrix, len(m))
	for i, layer := range m {
		layer.LEDs = append([]int(nil), layer.LEDs...)
		cpy[i] = layer
	}
	return cpy
}
