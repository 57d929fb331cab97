package model

import (
	"encoding/json"
	"time"

	"github.com/antonvh/np-animation/animation"
)

// InputMsg carries a set of runtime inputs, switch states, speed and the
// like, from one source to the animation player
type InputMsg struct {
	Source string           `json:"source"`
	At     time.Time        `json:"at"`
	Inputs animation.Inputs `json:"inputs"`
}

// DeepCopy deepcopies a message using json marshaling, numeric inputs come
// back as float64
func (msg *InputMsg) DeepCopy() (cpy *InputMsg) {
	if msg == nil {
		return nil
	}
	cpy = &InputMsg{}

	byt, _ := json.Marshal(msg)
	json.Unmarshal(byt, cpy)
	return cpy
}
