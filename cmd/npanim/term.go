package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mgutz/ansi"

	"github.com/antonvh/np-animation/animation"
	"github.com/antonvh/np-animation/internal/kverr"
)

// termRefresh limits how often the terminal preview is redrawn
const termRefresh = 50 * time.Millisecond

var (
	msgV io.Writer = os.Stdout
	errV io.Writer = os.Stderr

	errColor = ansi.ColorFunc("red+b")
)

// termSink previews a strip on a 24-bit color terminal, drawing each LED as a
// swatch on a single line that is redrawn in place. It expects RGB buffers.
type termSink struct {
	out   io.Writer
	every time.Duration
	last  time.Time
	now   func() time.Time
	sync.Mutex
}

func newTermSink(out io.Writer, every time.Duration) (ts *termSink) {
	return &termSink{
		out:   out,
		every: every,
		now:   time.Now,
	}
}

func swatches(buf []animation.Color) string {
	line := strings.Builder{}
	line.WriteString("\r")
	for _, c := range buf {
		fmt.Fprintf(&line, "\x1b[48;2;%d;%d;%dm  ", c.R, c.G, c.B)
	}
	line.WriteString(ansi.Reset)
	return line.String()
}

func (ts *termSink) Write(buf []animation.Color) (err error) {
	ts.Lock()
	defer ts.Unlock()

	now := ts.now()
	if !ts.last.IsZero() && now.Sub(ts.last) < ts.every {
		return nil
	}
	ts.last = now

	if _, errGo := io.WriteString(ts.out, swatches(buf)); errGo != nil {
		return kverr.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}
	return nil
}

func msgWatch(msgsC <-chan string, errorC <-chan kverr.Error, quitC <-chan struct{}) {
	for {
		select {
		case msg := <-msgsC:
			if errV != nil {
				fmt.Fprintln(errV, msg)
			}
		case err := <-errorC:
			if errV != nil {
				fmt.Fprintln(errV, errColor(err.Error()))
			}
		case <-quitC:
			return
		}
	}
}
