package npanimation

// This module wires the parts of the gateway together: input sources publish
// to a fan out, the player listens to the fan out and drives the strip, and an
// optional watcher swaps in edited scenes.

import (
	"sync"
	"time"

	"github.com/go-stack/stack"

	"github.com/antonvh/np-animation/animation"
	"github.com/antonvh/np-animation/internal/kverr"
	"github.com/antonvh/np-animation/model"
)

// Gateway plays a scene file on a sink
type Gateway struct {
	ScenePath string
	Sink      animation.Sink
	FPS       float64            // Overrides the scene when positive
	Watch     bool               // Reload the scene when the file changes
	Options   []animation.Option // Applied after the options of the scene

	player *Player
	doneC  chan struct{}
	once   sync.Once
}

func (gw *Gateway) done() chan struct{} {
	gw.once.Do(func() {
		gw.doneC = make(chan struct{})
	})
	return gw.doneC
}

// Start loads the scene and starts playing it. Input messages sent to inputC
// reach the player, and any other listener added through subscribeC. The
// strip is blanked once quitC is closed, after which Done is closed.
func (gw *Gateway) Start(errorC chan<- kverr.Error, quitC <-chan struct{}) (inputC chan *model.InputMsg, subscribeC chan chan *model.InputMsg, err kverr.Error) {

	// A failed start is done at once
	defer func() {
		if err != nil {
			close(gw.done())
		}
	}()

	scene, errGo := model.LoadScene(gw.ScenePath)
	if errGo != nil {
		return nil, nil, kverr.Wrap(errGo).With("path", gw.ScenePath).With("stack", stack.Trace().TrimRuntime())
	}

	if gw.player, err = NewPlayer(scene, gw.Sink, gw.FPS, gw.Options...); err != nil {
		return nil, nil, err.With("path", gw.ScenePath)
	}

	if gw.Watch {
		sceneC := make(chan *model.Scene, 1)
		if err = WatchScene(gw.ScenePath, SceneDebounce, sceneC, errorC, quitC); err != nil {
			return nil, nil, err
		}
		go func() {
			for {
				select {
				case scene := <-sceneC:
					if err := gw.player.Reload(scene); err != nil {
						sendErr(errorC, err.With("path", gw.ScenePath))
						continue
					}
					logger.Info("scene reloaded", "path", gw.ScenePath, "at", time.Now().Format(time.RFC3339))
				case <-quitC:
					return
				}
			}
		}()
	}

	inputC, subscribeC = startFanOut(quitC)

	// After creating the broadcast channel the player is added as a listener
	// so that it sees every input message
	gw.player.Subscribe(subscribeC, quitC)

	doneC := gw.done()
	go func() {
		defer close(doneC)
		gw.player.Run(errorC, quitC)
	}()

	return inputC, subscribeC, nil
}

// Player is the player started by Start
func (gw *Gateway) Player() *Player {
	return gw.player
}

// Done is closed once the player has blanked the strip and stopped, or once
// Start has failed. It may be called before Start.
func (gw *Gateway) Done() <-chan struct{} {
	return gw.done()
}
