package main

import (
	"time"

	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// loopbackTransport is the demo's stand-in for the opaque PacketTransport a
// real host would build over brontide/TCP (spec.md §1's explicit networking
// non-goal); it moves lnwire.Messages over a pair of buffered Go channels
// instead.
type loopbackTransport struct {
	out chan<- lnwire.Message
	in  <-chan lnwire.Message
}

func (t *loopbackTransport) Send(pkt lnwire.Message) error {
	t.out <- pkt
	return nil
}

func (t *loopbackTransport) Recv() (lnwire.Message, error) {
	pkt, ok := <-t.in
	if !ok {
		return nil, lnchannel.ErrPeerGone
	}
	return pkt, nil
}

// newLoopbackPair wires two loopbackTransports back to back.
func newLoopbackPair() (a, b *loopbackTransport) {
	atob := make(chan lnwire.Message, 64)
	btoa := make(chan lnwire.Message, 64)
	return &loopbackTransport{out: atob, in: btoa}, &loopbackTransport{out: btoa, in: atob}
}

// wallClock is a Clock that schedules callbacks with the real, unmocked
// time.AfterFunc, the way a production host's Clock would.
type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) After(d time.Duration, callback func()) lnchannel.TimerHandle {
	return time.AfterFunc(d, callback)
}

func (wallClock) Cancel(h lnchannel.TimerHandle) {
	if t, ok := h.(*time.Timer); ok {
		t.Stop()
	}
}
