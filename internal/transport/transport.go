// Package transport implements spec §4.2's contract: bind a deterministic
// endpoint per node id, send best-effort to a peer, and receive with a
// bounded timeout. Two implementations are provided: UDPEndpoint for real
// datagram sockets, and MemoryEndpoint for deterministic in-process tests
// (Design Notes §9).
package transport

import (
	"errors"
	"time"

	"github.com/paxoslab/consensus/internal/paxos"
)

// ErrTimeout is the distinguished result Receive returns when no frame
// arrives within the requested deadline (spec §4.2, §5).
var ErrTimeout = errors.New("transport: receive timeout")

// Endpoint is the per-node contract of spec §4.2. Each node exclusively
// owns one Endpoint for its lifetime (spec §5).
type Endpoint interface {
	// Send is best-effort: a failure is reported but never retried at
	// this layer (spec §4.2, §7).
	Send(peerID int, f paxos.Frame) error
	// Receive blocks up to timeout and returns ErrTimeout on expiry.
	Receive(timeout time.Duration) (paxos.Frame, error)
	Close() error
}
