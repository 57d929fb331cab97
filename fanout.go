package npanimation

import (
	"time"

	"github.com/antonvh/np-animation/model"
)

// Subs is the set of channels listening for input messages
type Subs struct {
	subs []chan *model.InputMsg
}

// send delivers msg to ch, giving up after timeout. A closed subscription is
// reported as dead so it can be groomed out
func send(ch chan *model.InputMsg, msg *model.InputMsg, timeout time.Duration) (delivered bool, dead bool) {
	defer func() {
		if r := recover(); r != nil {
			delivered, dead = false, true
		}
	}()
	select {
	case ch <- msg:
		return true, false
	case <-time.After(timeout):
		return false, false
	}
}

// startFanOut implements a broadcast mechanism for accepting input messages
// and relaying them to subscribers. The function returns a single channel to
// which input messages get sent and a channel that can be used to add
// listeners. Every subscriber receives its own copy of a message.
func startFanOut(quitC <-chan struct{}) (inC chan *model.InputMsg, subC chan chan *model.InputMsg) {

	inC = make(chan *model.InputMsg, 1)
	subC = make(chan chan *model.InputMsg, 1)

	go func(quitC <-chan struct{}) {
		defer logger.Debug("fanout stopped")

		subs := &Subs{subs: []chan *model.InputMsg{}}
		for {
			select {
			case <-quitC:
				return
			case sub := <-subC:
				if nil != sub {
					subs.subs = append(subs.subs, sub)
					logger.Debug("subscription added", "subscribers", len(subs.subs))
				}
			case msg := <-inC:
				if nil == msg {
					continue
				}
				// Subscriptions are groomed out on unrecoverable failures using
				// https://github.com/golang/go/wiki/SliceTricks#filtering-without-allocating
				newSubs := subs.subs[:0]
				for _, ch := range subs.subs {
					delivered, dead := send(ch, msg.DeepCopy(), 250*time.Millisecond)
					if dead {
						logger.Debug("subscription dropped", "source", msg.Source)
						continue
					}
					if !delivered {
						logger.Debug("subscription failed to send", "source", msg.Source)
					}
					newSubs = append(newSubs, ch)
				}
				subs.subs = newSubs
			}
		}
	}(quitC)

	return inC, subC
}
