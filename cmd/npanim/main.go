package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"syscall"

	log "github.com/mgutz/logxi/v1"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/go-stack/stack"

	npanimation "github.com/antonvh/np-animation"
	"github.com/antonvh/np-animation/animation"
	"github.com/antonvh/np-animation/internal/envflag"
	"github.com/antonvh/np-animation/internal/kverr"
	"github.com/antonvh/np-animation/version"
)

var (
	logger = log.New("npanim")

	scenePath    = pflag.String("scene", "scene.yaml", "scene file, YAML or JSON, describing the strip and its animations")
	opcServer    = pflag.String("opc", "", "host:port of an Open Pixel Control server, such as a fadecandy, driving the strip")
	opcChannel   = pflag.Uint8("opc-channel", 0, "OPC channel of the strip, 0 broadcasts to every channel")
	term         = pflag.Bool("term", false, "preview the strip in the terminal, the default when no OPC server is given")
	fps          = pflag.Float64("fps", 0, "frames per second, overrides the scene when positive")
	pollURL      = pflag.String("poll", "", "http, https or file URL of a JSON document holding the inputs")
	pollPath     = pflag.String("poll-path", "", "gjson path of the inputs object inside the polled document")
	pollInterval = pflag.Duration("poll-interval", npanimation.DefaultPollInterval, "interval between input polls")
	watch        = pflag.Bool("watch", false, "reload the scene whenever the file changes")
	brightness   = pflag.Float64("brightness", -1, "global brightness in [0,1], overrides the scene when not negative")
	verbose      = pflag.BoolP("verbose", "v", false, "When enabled will print internal logging for this tool")
)

func usage() {
	fmt.Fprintln(os.Stderr, path.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "usage: ", os.Args[0], "[options]       inputs → scene → OPC/terminal (npanim)      ", version.GitHash, "    ", version.BuildTime)
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "npanim plays a scene of LED animations on a NeoPixel strip driven by an OPC server, reacting to vehicle inputs")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "")
	pflag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment Variables:")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options can also be extracted from environment variables by changing dashes '-' to underscores and using upper case.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "log levels are handled by the LOGXI env variables, these are documented at https://github.com/mgutz/logxi")
}

func init() {
	pflag.Usage = usage
}

func main() {

	// Parse the CLI flags
	if !pflag.Parsed() {
		if err := envflag.Parse(pflag.CommandLine, os.Args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
	}

	// Turn off logging regardless of the default levels if the verbose flag is not enabled.
	// The terminal preview shares stdout with the log
	if *verbose {
		logger.SetLevel(log.LevelDebug)
	}

	logger.Debug(fmt.Sprintf("%s built at %s, against commit id %s\n", os.Args[0], version.BuildTime, version.GitHash))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// sinks builds the output of the player from the flags. OPC servers expect
// RGB, as does the terminal preview, so the device order is forced to RGB
func sinks() (sink animation.Sink, closer func(), opts []animation.Option) {
	outputs := []animation.Sink{}
	closer = func() {}

	if *opcServer != "" {
		opc := npanimation.NewOPCSink(*opcServer, *opcChannel)
		outputs = append(outputs, npanimation.ChangedOnly(opc))
		closer = func() { opc.Close() }
	}
	if *term || *opcServer == "" {
		outputs = append(outputs, newTermSink(msgV, termRefresh))
	}

	opts = []animation.Option{animation.WithOrder(animation.RGB)}
	if *brightness >= 0 {
		opts = append(opts, animation.WithBrightness(*brightness))
	}

	if len(outputs) == 1 {
		return outputs[0], closer, opts
	}
	return teeSink(outputs), closer, opts
}

// teeSink writes every frame to all of its sinks and returns the first failure
type teeSink []animation.Sink

func (tee teeSink) Write(buf []animation.Color) (err error) {
	for _, sink := range tee {
		if errGo := sink.Write(buf); errGo != nil && err == nil {
			err = errGo
		}
	}
	return err
}

func run(ctx context.Context) (err kverr.Error) {

	var pollFrom *url.URL
	if *pollURL != "" {
		u, errGo := url.Parse(*pollURL)
		if errGo != nil {
			return kverr.Wrap(errGo).With("url", *pollURL).With("stack", stack.Trace().TrimRuntime())
		}
		pollFrom = u
	}

	sink, closer, opts := sinks()
	defer closer()

	errorC := make(chan kverr.Error, 8)
	msgC := make(chan string, 8)

	g, ctx := errgroup.WithContext(ctx)
	quitC := ctx.Done()

	gw := &npanimation.Gateway{
		ScenePath: *scenePath,
		Sink:      sink,
		FPS:       *fps,
		Watch:     *watch,
		Options:   opts,
	}
	inputC, subscribeC, err := gw.Start(errorC, quitC)
	if err != nil {
		return err
	}
	logger.Info("playing", "scene", *scenePath, "opc", *opcServer, "fps", *fps)

	g.Go(func() error {
		msgWatch(msgC, errorC, quitC)
		return nil
	})

	g.Go(func() error {
		runMonitoring(subscribeC, msgC, quitC)
		return nil
	})

	if pollFrom != nil {
		var poller npanimation.InputMon = npanimation.NewInputPoller(*pollFrom, *pollPath, *pollInterval, inputC, errorC)
		g.Go(func() error {
			poller.Run(quitC)
			return nil
		})
	}

	g.Go(func() error {
		<-gw.Done()
		return nil
	})

	if errGo := g.Wait(); errGo != nil {
		return kverr.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}
	fmt.Fprintln(msgV, "")
	return nil
}
