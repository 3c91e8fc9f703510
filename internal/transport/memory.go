package transport

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/paxoslab/consensus/internal/paxos"
)

// Network is an in-process registry of MemoryEndpoints keyed by node id.
// It is the "in-memory transport implementing the same send/receive/
// timeout contract" that Design Notes §9 recommends tests target, since
// it lets property tests inject deterministic packet loss without any
// real sockets or OS scheduling jitter.
type Network struct {
	mu        sync.Mutex
	endpoints map[int]*MemoryEndpoint
	dropProb  float64
	rng       *rand.Rand
}

// NewNetwork creates a registry with the given per-datagram drop
// probability (spec §8 property test: "randomized message-drop
// probability p ∈ [0, 0.3]"). rng may be nil, in which case drops use the
// package-level math/rand source.
func NewNetwork(dropProb float64, rng *rand.Rand) *Network {
	return &Network{
		endpoints: make(map[int]*MemoryEndpoint),
		dropProb:  dropProb,
		rng:       rng,
	}
}

// Bind registers node id and returns its Endpoint, mirroring
// address(id) = (loopback, PORTA_BASE+id) in spirit: id is the sole
// addressing key (spec §4.2).
func (n *Network) Bind(id int) *MemoryEndpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	ep := &MemoryEndpoint{
		id:      id,
		network: n,
		inbox:   make(chan paxos.Frame, 256),
	}
	n.endpoints[id] = ep
	return ep
}

func (n *Network) shouldDrop() bool {
	if n.dropProb <= 0 {
		return false
	}
	if n.rng != nil {
		return n.rng.Float64() < n.dropProb
	}
	return rand.Float64() < n.dropProb
}

func (n *Network) lookup(id int) (*MemoryEndpoint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ep, ok := n.endpoints[id]
	return ep, ok
}

func (n *Network) unbind(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.endpoints, id)
}

// MemoryEndpoint is the Network-backed Endpoint implementation.
type MemoryEndpoint struct {
	id      int
	network *Network
	inbox   chan paxos.Frame
	closed  bool
	mu      sync.Mutex
}

var errEndpointClosed = errors.New("transport: endpoint closed")

func (e *MemoryEndpoint) Send(peerID int, f paxos.Frame) error {
	if e.network.shouldDrop() {
		return nil // best-effort: a dropped send is not reported as failure
	}
	peer, ok := e.network.lookup(peerID)
	if !ok {
		return errors.New("transport: unknown peer")
	}
	select {
	case peer.inbox <- f:
		return nil
	default:
		return errors.New("transport: peer inbox full")
	}
}

func (e *MemoryEndpoint) Receive(timeout time.Duration) (paxos.Frame, error) {
	select {
	case f, ok := <-e.inbox:
		if !ok {
			return paxos.Frame{}, errEndpointClosed
		}
		return f, nil
	case <-time.After(timeout):
		return paxos.Frame{}, ErrTimeout
	}
}

func (e *MemoryEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.network.unbind(e.id)
	close(e.inbox)
	return nil
}
