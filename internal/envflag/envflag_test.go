package envflag

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/antonvh/np-animation/internal/kverr"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestEnvName(t *testing.T) {
	for flag, want := range map[string]string{
		"scene":         "SCENE",
		"opc-channel":   "OPC_CHANNEL",
		"poll-interval": "POLL_INTERVAL",
	} {
		if got := EnvName(flag); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", flag, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	scene := fs.String("scene", "scene.yaml", "")
	channel := fs.Int("opc-channel", 0, "")
	interval := fs.Duration("poll-interval", time.Second, "")
	verbose := fs.BoolP("verbose", "v", false, "")

	vars := env(map[string]string{
		"SCENE":         "env.yaml",
		"OPC_CHANNEL":   "3",
		"POLL_INTERVAL": "250ms",
		"VERBOSE":       "true",
	})
	if err := parse(fs, []string{"--scene", "cli.yaml"}, vars); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if *scene != "cli.yaml" {
		t.Errorf("command line flag overridden by the environment, scene=%q", *scene)
	}
	if *channel != 3 || *interval != 250*time.Millisecond || !*verbose {
		t.Errorf("environment not applied, channel=%d interval=%v verbose=%v", *channel, *interval, *verbose)
	}
}

func TestParseBadValue(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Float64("fps", 50, "")

	err := parse(fs, nil, env(map[string]string{"FPS": "fast"}))
	if err == nil {
		t.Fatal("a bad environment value was accepted")
	}
	if v, ok := kverr.Value(err, "env"); !ok || v != "FPS" {
		t.Errorf("error does not name the variable, %v", err)
	}

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := parse(fs, []string{"--nope"}, env(nil)); err == nil {
		t.Error("an unknown flag was accepted")
	}
}
