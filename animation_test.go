package npanimation

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/antonvh/np-animation/animation"
	"github.com/antonvh/np-animation/internal/kverr"
	"github.com/antonvh/np-animation/model"
)

// memorySink keeps the frames written to it, in logical order for an RGB
// compositor, and is safe for use by the player goroutine
type memorySink struct {
	frames [][]animation.Color
	sync.Mutex
}

func (s *memorySink) Write(buf []animation.Color) error {
	s.Lock()
	defer s.Unlock()
	s.frames = append(s.frames, append([]animation.Color(nil), buf...))
	return nil
}

func (s *memorySink) last() []animation.Color {
	s.Lock()
	defer s.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *memorySink) count() int {
	s.Lock()
	defer s.Unlock()
	return len(s.frames)
}

func brakeScene() *model.Scene {
	return &model.Scene{
		Name:  "brake",
		LEDs:  2,
		Order: "rgb",
		Layers: []model.LayerSpec{
			{LEDs: []int{0, 1}, Effect: "brake_lights"},
		},
	}
}

func TestPlayerFrameFollowsInputs(t *testing.T) {
	sink := &memorySink{}
	player, err := NewPlayer(brakeScene(), sink, 0)
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}

	steps := []struct {
		msg  *model.InputMsg
		want animation.Color
	}{
		{nil, animation.DarkRed},
		{&model.InputMsg{Source: "a", Inputs: animation.Inputs{"braking": true}}, animation.Red},
		{&model.InputMsg{Source: "b", Inputs: animation.Inputs{"speed": -1.0}}, animation.White},
		{&model.InputMsg{Source: "b", Inputs: animation.Inputs{"speed": 20.0, "braking": false}}, animation.DarkRed},
	}
	for i, step := range steps {
		player.Update(step.msg)
		if err := player.Frame(); err != nil {
			t.Fatalf("Frame %d failed: %v", i, err)
		}
		want := []animation.Color{step.want, step.want}
		if diff := cmp.Diff(want, sink.last()); diff != "" {
			t.Errorf("frame %d (-want +got):\n%s", i, diff)
		}
	}
	want := animation.Inputs{"braking": false, "speed": 20.0}
	if diff := cmp.Diff(want, player.Inputs()); diff != "" {
		t.Errorf("merged inputs (-want +got):\n%s", diff)
	}
}

func TestPlayerReload(t *testing.T) {
	sink := &memorySink{}
	player, err := NewPlayer(brakeScene(), sink, 25)
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}
	if _, interval := player.current(); interval != 40*time.Millisecond {
		t.Errorf("frame interval %v, want 40ms", interval)
	}

	solid := &model.Scene{
		LEDs:   3,
		Order:  "rgb",
		FPS:    100,
		Layers: []model.LayerSpec{{Span: []int{0, 3}, Effect: "solid", Color: &model.ColorSpec{R: 0, G: 0, B: 255}}},
	}
	if err = player.Reload(solid); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if err = player.Frame(); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	want := []animation.Color{animation.Blue, animation.Blue, animation.Blue}
	if diff := cmp.Diff(want, sink.last()); diff != "" {
		t.Errorf("reloaded frame (-want +got):\n%s", diff)
	}
	if _, interval := player.current(); interval != 40*time.Millisecond {
		t.Errorf("the caller's frame rate should survive a reload, got %v", interval)
	}

	bad := &model.Scene{LEDs: 1, Layers: []model.LayerSpec{{LEDs: []int{4}, Effect: "solid"}}}
	if err = player.Reload(bad); err == nil {
		t.Fatal("an invalid scene was accepted")
	}
	if err = player.Frame(); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if len(sink.last()) != 3 {
		t.Errorf("an invalid scene replaced the running one")
	}
	if err = player.Reload(nil); err == nil {
		t.Error("a nil scene was accepted")
	}
}

func TestPlayerRunBlanksOnQuit(t *testing.T) {
	sink := &memorySink{}
	scene := brakeScene()
	scene.FPS = 200
	player, err := NewPlayer(scene, sink, 0)
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}

	errorC := make(chan kverr.Error, 1)
	quitC := make(chan struct{})
	doneC := make(chan struct{})
	go func() {
		defer close(doneC)
		player.Run(errorC, quitC)
	}()

	deadline := time.After(5 * time.Second)
	for sink.count() < 3 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for frames")
		case err := <-errorC:
			t.Fatalf("player failed: %v", err)
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(quitC)

	select {
	case <-doneC:
	case <-time.After(5 * time.Second):
		t.Fatal("player did not stop")
	}
	if diff := cmp.Diff([]animation.Color{animation.Off, animation.Off}, sink.last()); diff != "" {
		t.Errorf("strip not blanked on quit (-want +got):\n%s", diff)
	}
}
