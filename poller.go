package npanimation

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-stack/stack"
	"github.com/tidwall/gjson"

	"github.com/antonvh/np-animation/animation"
	"github.com/antonvh/np-animation/internal/kverr"
	"github.com/antonvh/np-animation/model"
)

// This module implements the collection of runtime inputs, such as the
// braking and indicator switches of a vehicle, from a device that publishes
// them as a JSON document. The document is fetched over HTTP or read from a
// file, for example one kept up to date by a CAN bus logger.

// DefaultPollInterval is used when no poll interval is given
const DefaultPollInterval = time.Second

// InputMon is implemented by the input sources
type InputMon interface {
	Run(quitC <-chan struct{})
}

// InputPoller regularly fetches a JSON document and publishes the inputs it
// holds. Nested objects are flattened using dotted names, so
// {"lights": {"brake": true}} yields the input "lights.brake"
type InputPoller struct {
	url      url.URL
	path     string
	interval time.Duration
	client   *http.Client
	statusC  chan<- *model.InputMsg
	errorC   chan<- kverr.Error
}

// NewInputPoller creates a poller for u, an http, https or file URL. When path
// is not empty only the object at that gjson path is used
func NewInputPoller(u url.URL, path string, interval time.Duration, statusC chan<- *model.InputMsg, errorC chan<- kverr.Error) (poller *InputPoller) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &InputPoller{
		url:      u,
		path:     path,
		interval: interval,
		client:   &http.Client{Timeout: interval},
		statusC:  statusC,
		errorC:   errorC,
	}
}

// flatten copies the members of an object into inputs. Arrays are kept as
// their raw JSON text and nulls are skipped
func flatten(prefix string, obj gjson.Result, inputs animation.Inputs) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		switch value.Type {
		case gjson.True, gjson.False:
			inputs[name] = value.Bool()
		case gjson.Number:
			inputs[name] = value.Float()
		case gjson.String:
			inputs[name] = value.Str
		case gjson.JSON:
			if value.IsObject() {
				flatten(name, value, inputs)
			} else {
				inputs[name] = value.Raw
			}
		}
		return true
	})
}

// ParseInputs extracts the inputs from a JSON document, optionally from the
// object found at a gjson path
func ParseInputs(body []byte, path string) (inputs animation.Inputs, err error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("input document is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if path != "" {
		doc = doc.Get(path)
		if !doc.Exists() {
			return nil, fmt.Errorf("path %q is not present in the input document", path)
		}
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("inputs must be a JSON object")
	}
	inputs = animation.Inputs{}
	flatten("", doc, inputs)
	return inputs, nil
}

// fetch retrieves the raw input document
func (poller *InputPoller) fetch() (body []byte, err kverr.Error) {
	switch poller.url.Scheme {
	case "http", "https":
		resp, errGo := poller.client.Get(poller.url.String())
		if errGo != nil {
			return nil, kverr.Wrap(errGo).With("url", poller.url.String()).With("stack", stack.Trace().TrimRuntime())
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errGo = fmt.Errorf("unexpected status %s", resp.Status)
			return nil, kverr.Wrap(errGo).With("url", poller.url.String()).With("stack", stack.Trace().TrimRuntime())
		}
		if body, errGo = io.ReadAll(resp.Body); errGo != nil {
			return nil, kverr.Wrap(errGo).With("url", poller.url.String()).With("stack", stack.Trace().TrimRuntime())
		}
		return body, nil

	case "file":
		body, errGo := os.ReadFile(poller.url.Path)
		if errGo != nil {
			return nil, kverr.Wrap(errGo).With("url", poller.url.String()).With("stack", stack.Trace().TrimRuntime())
		}
		return body, nil
	}

	errGo := fmt.Errorf("unknown scheme %s for the input URL", poller.url.Scheme)
	return nil, kverr.Wrap(errGo).With("url", poller.url.String()).With("stack", stack.Trace().TrimRuntime())
}

// checkInputs fetches and parses the current inputs
func (poller *InputPoller) checkInputs() (inputs animation.Inputs, err kverr.Error) {
	body, err := poller.fetch()
	if err != nil {
		return nil, err
	}
	inputs, errGo := ParseInputs(body, poller.path)
	if errGo != nil {
		return nil, kverr.Wrap(errGo).With("url", poller.url.String()).With("body", string(body)).With("stack", stack.Trace().TrimRuntime())
	}
	return inputs, nil
}

func (poller *InputPoller) reportErr(err kverr.Error, timeout time.Duration) {
	select {
	case poller.errorC <- err:
	case <-time.After(timeout):
		fmt.Fprintf(os.Stderr, "could not send error for input update %s\n", err.Error())
	}
}

func (poller *InputPoller) sendStatus() {
	inputs, err := poller.checkInputs()
	if err != nil {
		go poller.reportErr(err, 500*time.Millisecond)
		return
	}

	msg := &model.InputMsg{
		Source: poller.url.String(),
		At:     time.Now(),
		Inputs: inputs,
	}

	select {
	case poller.statusC <- msg:
	case <-time.After(750 * time.Millisecond):
		err := kverr.New("input update dropped").With("url", poller.url.String()).With("stack", stack.Trace().TrimRuntime())
		go poller.reportErr(err, 2*time.Second)
	}
}

// Run polls the input document until quitC is closed
func (poller *InputPoller) Run(quitC <-chan struct{}) {

	poller.sendStatus()

	poll := time.NewTicker(poller.interval)
	defer poll.Stop()

	for {
		select {
		case <-poll.C:
			poller.sendStatus()

		case <-quitC:
			return
		}
	}
}
