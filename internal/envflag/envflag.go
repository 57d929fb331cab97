// Package envflag lets every command line flag also be set from the
// environment. The variable name is the flag name in upper case with dashes
// changed to underscores, so --opc-channel can be given as OPC_CHANNEL.
// Flags given on the command line take precedence over the environment.
package envflag

import (
	"os"
	"strings"

	"github.com/go-stack/stack"
	"github.com/spf13/pflag"

	"github.com/antonvh/np-animation/internal/kverr"
)

// EnvName returns the environment variable consulted for a flag
func EnvName(flag string) string {
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// Parse parses args into the flag set and then fills every flag that was not
// given on the command line from the environment
func Parse(fs *pflag.FlagSet, args []string) (err kverr.Error) {
	return parse(fs, args, os.LookupEnv)
}

func parse(fs *pflag.FlagSet, args []string, lookup func(string) (string, bool)) (err kverr.Error) {
	if errGo := fs.Parse(args); errGo != nil {
		return kverr.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}

	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		name := EnvName(f.Name)
		value, isPresent := lookup(name)
		if !isPresent {
			return
		}
		if errGo := fs.Set(f.Name, value); errGo != nil {
			err = kverr.Wrap(errGo, "bad environment value").With("env", name).With("value", value).With("stack", stack.Trace().TrimRuntime())
		}
	})
	return err
}
