// Package kverr provides errors that carry an ordered set of key/value
// annotations, such as the URL being fetched and the call stack at the point
// of failure, in the style
//
//	kverr.Wrap(errGo).With("url", server).With("stack", stack.Trace().TrimRuntime())
package kverr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-stack/stack"
)

// Error is an error annotated with key/value pairs
type Error interface {
	error
	// With returns the error annotated with one more key/value pair
	With(key string, value any) Error
	// Values returns the annotations in the order they were added
	Values() []KV
	// Unwrap returns the wrapped error, if any
	Unwrap() error
}

// KV is a single annotation
type KV struct {
	Key   string
	Value any
}

type kvError struct {
	msg    string
	err    error
	caller stack.Call
	kv     []KV
}

// New creates an annotated error from a message
func New(msg string) Error {
	return &kvError{
		msg:    msg,
		caller: stack.Caller(1),
	}
}

// Wrap annotates an existing error. Wrapping nil returns nil, and wrapping an
// Error returns it unchanged so that annotations accumulate on one value
func Wrap(err error, msg ...string) Error {
	if err == nil {
		return nil
	}
	if kv, ok := err.(Error); ok && len(msg) == 0 {
		return kv
	}
	return &kvError{
		msg:    strings.Join(msg, " "),
		err:    err,
		caller: stack.Caller(1),
	}
}

func (e *kvError) With(key string, value any) Error {
	cpy := *e
	cpy.kv = append(append(make([]KV, 0, len(e.kv)+1), e.kv...), KV{Key: key, Value: value})
	return &cpy
}

func (e *kvError) Values() []KV {
	return append([]KV(nil), e.kv...)
}

func (e *kvError) Unwrap() error {
	return e.err
}

func (e *kvError) Error() string {
	b := strings.Builder{}
	switch {
	case e.msg != "" && e.err != nil:
		fmt.Fprintf(&b, "%s: %s", e.msg, e.err.Error())
	case e.err != nil:
		b.WriteString(e.err.Error())
	default:
		b.WriteString(e.msg)
	}
	fmt.Fprintf(&b, " caller=%+v", e.caller)
	for _, kv := range e.kv {
		fmt.Fprintf(&b, " %s=%v", kv.Key, kv.Value)
	}
	return b.String()
}

// Value looks up the first annotation named key anywhere in the chain of err
func Value(err error, key string) (value any, isPresent bool) {
	for err != nil {
		var kv Error
		if !errors.As(err, &kv) {
			return nil, false
		}
		for _, item := range kv.Values() {
			if item.Key == key {
				return item.Value, true
			}
		}
		err = kv.Unwrap()
	}
	return nil, false
}
