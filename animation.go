package npanimation

// This file contains the player, the single tick loop that drives the
// animation engine. Input messages arriving from the fan out are merged into
// the last known inputs, which the loop lifts on every frame, and reloaded
// scenes are swapped in between frames.

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"

	"github.com/antonvh/np-animation/animation"
	"github.com/antonvh/np-animation/internal/kverr"
	"github.com/antonvh/np-animation/model"
)

// DefaultFPS is the frame rate used when neither the scene nor the caller
// chooses one
const DefaultFPS = 50

// LastInputs holds the merged inputs of every source seen so far
type LastInputs struct {
	inputs animation.Inputs
	sync.Mutex
}

// Update merges the inputs of msg over those already known
func (last *LastInputs) Update(msg *model.InputMsg) {
	if msg == nil {
		return
	}
	last.Lock()
	last.inputs = last.inputs.Merge(msg.Inputs)
	last.Unlock()
}

// Copy returns a snapshot of the inputs
func (last *LastInputs) Copy() (inputs animation.Inputs) {
	last.Lock()
	defer last.Unlock()
	return last.inputs.Merge(nil)
}

// Player ticks a compositor at a fixed frame rate
type Player struct {
	sink  animation.Sink
	extra []animation.Option
	fps   float64
	clock func() time.Time

	inputs LastInputs

	npa      *animation.NPAnimation
	interval time.Duration
	sync.Mutex
}

// NewPlayer builds the compositor for scene. The fps argument overrides the
// frame rate of the scene when positive. Extra options are applied after the
// scene's own, and again on every reload
func NewPlayer(scene *model.Scene, sink animation.Sink, fps float64, extra ...animation.Option) (player *Player, err kverr.Error) {
	player = &Player{
		sink:  sink,
		extra: extra,
		fps:   fps,
		clock: time.Now,
	}
	if err = player.Reload(scene); err != nil {
		return nil, err
	}
	return player, nil
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

// Reload replaces the compositor with one built from scene. The current one
// keeps running if the scene is invalid. The clock of the new compositor
// starts with the next frame
func (player *Player) Reload(scene *model.Scene) (err kverr.Error) {
	if scene == nil {
		return kverr.New("no scene supplied").With("stack", stack.Trace().TrimRuntime())
	}
	extra := append([]animation.Option{animation.WithClock(player.clock)}, player.extra...)
	npa, errGo := scene.NewAnimation(player.sink, extra...)
	if errGo != nil {
		return kverr.Wrap(errGo).With("scene", scene.Name).With("stack", stack.Trace().TrimRuntime())
	}

	fps := scene.FPS
	if player.fps > 0 {
		fps = player.fps
	}

	player.Lock()
	player.npa = npa
	player.interval = frameInterval(fps)
	player.Unlock()

	logger.Debug("scene loaded", "scene", scene.Name, "leds", npa.Len(), "order", npa.Order())
	return nil
}

// Update merges an input message into the inputs handed to the next frame
func (player *Player) Update(msg *model.InputMsg) {
	player.inputs.Update(msg)
}

// Inputs returns a snapshot of the current inputs
func (player *Player) Inputs() animation.Inputs {
	return player.inputs.Copy()
}

func (player *Player) current() (npa *animation.NPAnimation, interval time.Duration) {
	player.Lock()
	defer player.Unlock()
	return player.npa, player.interval
}

// Frame renders and writes one frame with the current inputs
func (player *Player) Frame() (err kverr.Error) {
	npa, _ := player.current()
	if errGo := npa.Tick(player.inputs.Copy()); errGo != nil {
		return kverr.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}
	return nil
}

// Subscribe adds the player as a listener to the input fan out
func (player *Player) Subscribe(subscribeC chan chan *model.InputMsg, quitC <-chan struct{}) {
	statusC := make(chan *model.InputMsg, 1)
	subscribeC <- statusC

	go func() {
		for {
			select {
			case msg := <-statusC:
				player.Update(msg)
			case <-quitC:
				return
			}
		}
	}()
}

func sendErr(errorC chan<- kverr.Error, err kverr.Error) {
	select {
	case errorC <- err:
	case <-time.After(100 * time.Millisecond):
		fmt.Fprintln(os.Stderr, err.Error())
	}
}

// Run ticks the compositor until quitC is closed, then blanks the strip.
// Write failures are reported on errorC and the loop carries on, the sink
// reconnecting as it sees fit
func (player *Player) Run(errorC chan<- kverr.Error, quitC <-chan struct{}) {
	_, interval := player.current()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			if err := player.Frame(); err != nil {
				sendErr(errorC, err)
			}
			// Scenes may change the frame rate
			if _, next := player.current(); next != interval {
				interval = next
				tick.Reset(interval)
			}
		case <-quitC:
			npa, _ := player.current()
			if errGo := npa.Stop(); errGo != nil {
				sendErr(errorC, kverr.Wrap(errGo).With("stack", stack.Trace().TrimRuntime()))
			}
			logger.Debug("player stopped")
			return
		}
	}
}
