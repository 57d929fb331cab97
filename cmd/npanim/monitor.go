package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antonvh/np-animation/model"
)

// This file implements a monitor that subscribes to the input messages and
// reports every change in the inputs

func describe(msg *model.InputMsg) string {
	names := make([]string, 0, len(msg.Inputs))
	for name := range msg.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", name, msg.Inputs[name]))
	}
	return fmt.Sprintf("%s %s", msg.Source, strings.Join(parts, " "))
}

func runMonitoring(subscribeC chan chan *model.InputMsg, msgC chan<- string, quitC <-chan struct{}) {

	statusC := make(chan *model.InputMsg, 1)
	defer close(statusC)
	select {
	case subscribeC <- statusC:
	case <-quitC:
		return
	}

	last := ""
	for {
		select {
		case msg := <-statusC:
			logger.Debug(fmt.Sprintf("%+v", msg))
			text := describe(msg)
			if text == last {
				continue
			}
			last = text
			select {
			case msgC <- text:
			default:
			}
		case <-quitC:
			return
		}
	}
}
