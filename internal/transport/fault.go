package transport

import (
	"time"

	"github.com/paxoslab/consensus/internal/paxos"
)

// FaultyEndpoint is the fault-injection hook behind the `--processo-com-erro`
// CLI flag (spec §6): it wraps a real Endpoint and delays every Send by a
// fixed duration, used to exercise the timeout paths in scenario 3 of §8.
type FaultyEndpoint struct {
	Endpoint
	Delay time.Duration
}

func NewFaultyEndpoint(inner Endpoint, delay time.Duration) *FaultyEndpoint {
	return &FaultyEndpoint{Endpoint: inner, Delay: delay}
}

func (f *FaultyEndpoint) Send(peerID int, frame paxos.Frame) error {
	time.Sleep(f.Delay)
	return f.Endpoint.Send(peerID, frame)
}
