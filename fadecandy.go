package npanimation

// This file contains the sinks that move finished frames from the animation
// engine to one or more fadecandy device(s), or any other Open Pixel Control
// server, over TCP

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cnf/structhash"
	"github.com/go-stack/stack"

	"github.com/antonvh/np-animation/animation"
	"github.com/antonvh/np-animation/internal/kverr"
)

const (
	// opcSetPixels is the Open Pixel Control command for a frame of 8 bit RGB pixels
	opcSetPixels = 0
	opcHeaderLen = 4
)

// encodeOPC builds a set pixel colors message for channel. The buffer is
// expected in the RGB order OPC servers use
func encodeOPC(channel uint8, buf []animation.Color) []byte {
	dataLen := len(buf) * 3
	msg := make([]byte, opcHeaderLen, opcHeaderLen+dataLen)
	msg[0] = channel
	msg[1] = opcSetPixels
	msg[2] = byte(dataLen >> 8)
	msg[3] = byte(dataLen)
	for _, c := range buf {
		msg = append(msg, c.R, c.G, c.B)
	}
	return msg
}

// maxOPCPixels is the largest frame a single OPC message can carry
const maxOPCPixels = 0xFFFF / 3

// OPCSink writes frames to an Open Pixel Control server such as fadecandy.
// The connection is made on the first write and remade after a failure, so a
// server that restarts only costs the frames sent while it was away. The
// compositor feeding it must be configured with the animation.RGB order.
type OPCSink struct {
	server  string
	channel uint8
	timeout time.Duration

	conn net.Conn
	sync.Mutex
}

// NewOPCSink creates a sink for the OPC server at host:port. Channel 0
// broadcasts to every strip attached to the server
func NewOPCSink(server string, channel uint8) (sink *OPCSink) {
	return &OPCSink{
		server:  server,
		channel: channel,
		timeout: time.Second,
	}
}

func (sink *OPCSink) connect() (err kverr.Error) {
	if sink.conn != nil {
		return nil
	}
	conn, errGo := net.DialTimeout("tcp", sink.server, sink.timeout)
	if errGo != nil {
		return kverr.Wrap(errGo).With("url", sink.server).With("stack", stack.Trace().TrimRuntime())
	}
	sink.conn = conn
	logger.Debug("opc connected", "url", sink.server)
	return nil
}

// Write implements animation.Sink
func (sink *OPCSink) Write(buf []animation.Color) error {
	if len(buf) > maxOPCPixels {
		errGo := fmt.Errorf("%d pixels exceed the %d an OPC message can carry", len(buf), maxOPCPixels)
		return kverr.Wrap(errGo).With("url", sink.server).With("stack", stack.Trace().TrimRuntime())
	}

	sink.Lock()
	defer sink.Unlock()

	if err := sink.connect(); err != nil {
		return err
	}

	sink.conn.SetWriteDeadline(time.Now().Add(sink.timeout))
	if _, errGo := sink.conn.Write(encodeOPC(sink.channel, buf)); errGo != nil {
		sink.conn.Close()
		sink.conn = nil
		return kverr.Wrap(errGo).With("url", sink.server).With("stack", stack.Trace().TrimRuntime())
	}
	return nil
}

// Close drops the connection to the server
func (sink *OPCSink) Close() (err error) {
	sink.Lock()
	defer sink.Unlock()

	if sink.conn == nil {
		return nil
	}
	errGo := sink.conn.Close()
	sink.conn = nil
	if errGo != nil {
		return kverr.Wrap(errGo).With("url", sink.server).With("stack", stack.Trace().TrimRuntime())
	}
	return nil
}

type changedOnly struct {
	sink animation.Sink
	last []byte
}

// ChangedOnly wraps a sink so that a frame identical to the last one written
// successfully is not sent again. Useful for sinks, such as OPC servers, that
// hold the last frame on the strip themselves
func ChangedOnly(sink animation.Sink) animation.Sink {
	return &changedOnly{sink: sink}
}

func (co *changedOnly) Write(buf []animation.Color) error {
	hash := structhash.Md5(buf, 1)
	if bytes.Equal(co.last, hash) {
		return nil
	}
	if err := co.sink.Write(buf); err != nil {
		co.last = nil
		return err
	}
	co.last = hash
	return nil
}
