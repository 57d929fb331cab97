package main

// The simulator stands in for the vehicle while developing scenes. It replays
// a script of timed input changes, forever, and serves the inputs current at
// the time of each request as a JSON document that npanim can poll, for
// example
//
//	cycle: 12s
//	steps:
//	  - {at: 0s, inputs: {speed: 0, braking: true, indicators: off}}
//	  - {at: 2s, inputs: {braking: false, speed: 8}}
//	  - {at: 5s, inputs: {indicators: left}}
//	  - {at: 9s, inputs: {indicators: off, braking: true, speed: 0}}
//
// Each step only names the inputs it changes.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cnf/structhash"
	log "github.com/mgutz/logxi/v1"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/antonvh/np-animation/internal/envflag"
	"github.com/antonvh/np-animation/model"
)

var (
	listen     = pflag.String("listen", ":8080", "Address to bind to")
	scriptPath = pflag.String("script", "script.yaml", "YAML script of the inputs to replay")
	remote     = pflag.Bool("remote", false, "Enable remote management of the script being run")
	scale      = pflag.Int("scale", 1, "factor by which to accelerate the relative rate of the clock")
)

type scriptStep struct {
	At     model.Duration `yaml:"at"`
	Inputs map[string]any `yaml:"inputs"`
}

type script struct {
	Cycle model.Duration `yaml:"cycle"`
	Steps []scriptStep   `yaml:"steps"`
}

type testSlot struct {
	at     time.Duration  // Offset into the cycle at which the slot activates
	inputs map[string]any // Every input as it stands once the slot is active
}

type testWindow struct {
	startTime time.Time
	cycle     time.Duration
	scale     int
	slots     []*testSlot
	now       func() time.Time
	sync.Mutex
}

var (
	// create Logger interface
	logW = log.NewLogger(log.NewConcurrentWriter(os.Stdout), "npanim-simulator")

	// This channel forces an immediate reload of the script
	forcedLoad = make(chan string, 1)
)

func newTestWindow(scale int) (window *testWindow) {
	if scale < 1 {
		scale = 1
	}
	return &testWindow{
		scale: scale,
		now:   time.Now,
	}
}

func main() {

	if err := envflag.Parse(pflag.CommandLine, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if _, err := filepath.Abs(*scriptPath); err != nil {
		log.Fatal(err.Error())
		os.Exit(-1)
	}

	window := newTestWindow(*scale)

	// Load the initial schedule of inputs from the script
	if err := window.loadTest(*scriptPath); err != nil {
		log.Fatal(err.Error())
		os.Exit(-1)
	}

	// Start a service function that tracks over time the slots
	// being used
	//
	go window.auditWindow(nil)

	http.HandleFunc("/", window.serveHandler)

	if err := http.ListenAndServe(*listen, nil); err != nil {
		logW.Warn(err.Error())
	}
}

// loadTest reads a script and replaces the schedule with it, restarting the
// clock
//
func (window *testWindow) loadTest(scriptFile string) (err error) {
	data, err := os.ReadFile(scriptFile)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	s := script{}
	if err = decoder.Decode(&s); err != nil {
		return fmt.Errorf("could not load script %s due to %w", scriptFile, err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("script %s has no steps", scriptFile)
	}

	sort.SliceStable(s.Steps, func(i, j int) bool {
		return s.Steps[i].At < s.Steps[j].At
	})

	slots := []*testSlot{}
	state := map[string]any{}
	oldHash := []byte{}
	for _, step := range s.Steps {
		if step.At < 0 {
			return fmt.Errorf("script %s has a step at a negative time %v", scriptFile, step.At.D())
		}
		for k, v := range step.Inputs {
			state[k] = v
		}
		current := make(map[string]any, len(state))
		for k, v := range state {
			current[k] = v
		}

		// Steps that leave every input as it was are of no use
		newHash := structhash.Md5(current, 1)
		if bytes.Equal(newHash, oldHash) {
			logW.Info("duplicate step", "at", step.At.D())
			continue
		}
		oldHash = newHash

		// A later step at the same time wins
		if n := len(slots); n != 0 && slots[n-1].at == step.At.D() {
			slots[n-1].inputs = current
			continue
		}
		slots = append(slots, &testSlot{at: step.At.D(), inputs: current})
	}

	cycle := s.Cycle.D()
	last := slots[len(slots)-1].at
	if cycle == 0 {
		cycle = last + time.Second
	}
	if cycle <= last {
		return fmt.Errorf("script %s cycle %v ends before its last step at %v", scriptFile, cycle, last)
	}

	window.Lock()
	defer window.Unlock()

	window.startTime = window.now()
	window.cycle = cycle
	window.slots = slots

	logW.Debug(fmt.Sprintf("loaded script %s with %d steps over %v", scriptFile, len(slots), cycle))
	return nil
}

// reset restarts the script from its beginning
func (window *testWindow) reset() {
	window.Lock()
	defer window.Unlock()
	window.startTime = window.now()
}

// getSlot returns the slot active at the present moment of the cycle. Before
// the first step of a cycle the first step is used.
func (window *testWindow) getSlot() (slot int, inputs map[string]any) {
	window.Lock()
	defer window.Unlock()

	if len(window.slots) == 0 {
		return -1, map[string]any{}
	}

	offset := (window.now().Sub(window.startTime) * time.Duration(window.scale)) % window.cycle
	slot = sort.Search(len(window.slots), func(i int) bool { return window.slots[i].at > offset }) - 1
	if slot < 0 {
		slot = 0
	}
	return slot, window.slots[slot].inputs
}

func (window *testWindow) auditWindow(quitC <-chan struct{}) {
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	lastSlot := -1
	for {
		select {
		case scriptFile := <-forcedLoad:
			logW.Debug(fmt.Sprintf("forced load of %s occurring", scriptFile))
			if err := window.loadTest(scriptFile); err != nil {
				logW.Warn(err.Error())
			}
			lastSlot = -1

		case <-tick.C:
			if slot, inputs := window.getSlot(); slot != lastSlot {
				logW.Debug(fmt.Sprintf("using step %d %v", slot, inputs))
				lastSlot = slot
			}

		case <-quitC:
			return
		}
	}
}

func serveConfigure(w http.ResponseWriter, r *http.Request) {

	scriptFile := strings.TrimPrefix(r.URL.Path, "/configure")
	if !path.IsAbs(scriptFile) {
		http.Error(w, "configure paths must be absolute", http.StatusNotFound)
		return
	}

	select {
	case forcedLoad <- scriptFile:
	case <-time.After(3 * time.Second):
		http.Error(w, "configure path could not be applied immediately", http.StatusInternalServerError)
	}
}

func (window *testWindow) serveHandler(w http.ResponseWriter, r *http.Request) {

	switch {
	case *remote && strings.HasPrefix(r.URL.Path, "/configure/"):
		serveConfigure(w, r)
		return
	case r.URL.Path == "/reset":
		window.reset()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Locate from the current script which inputs are the
	// appropriate ones to serve up
	//
	slot, inputs := window.getSlot()
	logW.Debug(fmt.Sprintf("serving step %d", slot))

	body, err := json.Marshal(inputs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
