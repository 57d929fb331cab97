// Package npanimation contains the gateway that plays scenes from the
// animation engine on physical strips: the OPC sink for fadecandy boards,
// the input poller and fan out, the player tick loop and the scene watcher.
package npanimation

import (
	log "github.com/mgutz/logxi/v1"
)

var logger = log.New("npanimation")
