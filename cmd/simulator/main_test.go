package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const testScript = `
cycle: 10s
steps:
  - {at: 5s, inputs: {indicators: left}}
  - {at: 0s, inputs: {speed: 0, braking: true, indicators: "off"}}
  - {at: 2s, inputs: {braking: false, speed: 8}}
  - {at: 3s, inputs: {speed: 8}}
  - {at: 8s, inputs: {lights: {fog: true}}}
`

func loadScript(t *testing.T, body string) (window *testWindow, now *time.Time) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "script.yaml")
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	clock := time.Unix(1000, 0)
	window = newTestWindow(1)
	window.now = func() time.Time { return clock }
	if err := window.loadTest(file); err != nil {
		t.Fatalf("loadTest failed: %v", err)
	}
	return window, &clock
}

func TestGetSlot(t *testing.T) {
	window, clock := loadScript(t, testScript)
	start := *clock

	// The step at 3s changes nothing and is dropped
	if len(window.slots) != 4 {
		t.Fatalf("%d slots, want 4", len(window.slots))
	}

	tests := []struct {
		after time.Duration
		slot  int
		want  map[string]any
	}{
		{0, 0, map[string]any{"speed": 0, "braking": true, "indicators": "off"}},
		{2500 * time.Millisecond, 1, map[string]any{"speed": 8, "braking": false, "indicators": "off"}},
		{5 * time.Second, 2, map[string]any{"speed": 8, "braking": false, "indicators": "left"}},
		{9 * time.Second, 3, map[string]any{"speed": 8, "braking": false, "indicators": "left", "lights": map[string]any{"fog": true}}},
		{12 * time.Second, 1, map[string]any{"speed": 8, "braking": false, "indicators": "off"}},
	}
	for _, tc := range tests {
		*clock = start.Add(tc.after)
		slot, inputs := window.getSlot()
		if slot != tc.slot {
			t.Errorf("after %v slot %d, want %d", tc.after, slot, tc.slot)
		}
		if diff := cmp.Diff(tc.want, inputs); diff != "" {
			t.Errorf("after %v inputs (-want +got):\n%s", tc.after, diff)
		}
	}

	window.reset()
	if slot, _ := window.getSlot(); slot != 0 {
		t.Errorf("slot %d after a reset", slot)
	}
}

func TestLoadTestErrors(t *testing.T) {
	for _, body := range []string{
		"steps: []",
		"cycle: 1s\nsteps:\n  - {at: 2s, inputs: {a: 1}}",
		"steps:\n  - {at: -1s, inputs: {a: 1}}",
		"stepz: []",
	} {
		file := filepath.Join(t.TempDir(), "script.yaml")
		if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := newTestWindow(1).loadTest(file); err == nil {
			t.Errorf("script %q was accepted", body)
		}
	}
	if err := newTestWindow(1).loadTest(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("a missing script was accepted")
	}
}

func TestServeHandler(t *testing.T) {
	window, clock := loadScript(t, testScript)
	server := httptest.NewServer(http.HandlerFunc(window.serveHandler))
	defer server.Close()

	*clock = clock.Add(6 * time.Second)
	resp, err := http.Get(server.URL + "/inputs.json")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q", ct)
	}
	got := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	want := map[string]any{"speed": 8.0, "braking": false, "indicators": "left"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("served inputs (-want +got):\n%s", diff)
	}

	resp, err = http.Get(server.URL + "/reset")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("reset gave status %d", resp.StatusCode)
	}
	if slot, _ := window.getSlot(); slot != 0 {
		t.Errorf("slot %d after a reset", slot)
	}
}
