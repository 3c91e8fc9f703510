// Package node wires one process's roles — acceptor, learner, and
// optionally proposer — onto a single transport.Endpoint, with one
// receive loop per node (spec §4.4/§4.5, §5). Grounded directly on
// senutpal-quorum/internal/node/node.go's Start/Stop/handleMessages/
// routeMessage shape, adapted from string ids and a transport.Message
// interface to this module's int ids and typed Frame.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paxoslab/consensus/internal/apperr"
	"github.com/paxoslab/consensus/internal/logging"
	"github.com/paxoslab/consensus/internal/paxos"
	"github.com/paxoslab/consensus/internal/storage"
	"github.com/paxoslab/consensus/internal/transport"
)

// Node is one process's share of the protocol: a node with an id in the
// acceptor range (0..TotalNodes-1, spec §6) owns an Acceptor and a
// Learner, and optionally a Proposer; a node in the learner range owns
// only a Learner, with no Acceptor.
type Node struct {
	id   int
	role string // "acceptor", "proposer", or "learner" — for logging only

	acceptor *paxos.Acceptor // nil for learner-only nodes
	learner  *paxos.Learner  // set on every node; acceptor nodes track the learned value too
	proposer *paxos.Proposer // nil unless this id is a proposer

	ep transport.Endpoint

	peerAcceptorIDs   []int // all acceptor ids except self
	decideRecipients  []int // acceptor_ids ∪ learner_ids, except self (Design Notes §9)
	quorumSize        int
	timeout           time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
	mu     sync.Mutex
}

// Config bundles the pieces New needs, independent of internal/config.Config
// so tests can construct a Node without going through env loading.
type Config struct {
	ID               int
	IsProposer       bool
	IsLearner        bool // if true, this node has no Acceptor
	AcceptorIDs      []int
	LearnerIDs       []int
	QuorumSize       int
	Timeout          time.Duration
	Endpoint         transport.Endpoint
}

func New(cfg Config) *Node {
	n := &Node{
		id:         cfg.ID,
		ep:         cfg.Endpoint,
		quorumSize: cfg.QuorumSize,
		timeout:    cfg.Timeout,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	n.peerAcceptorIDs = except(cfg.AcceptorIDs, n.id)
	n.decideRecipients = except(append(append([]int{}, cfg.AcceptorIDs...), cfg.LearnerIDs...), n.id)

	if cfg.IsLearner {
		n.role = "learner"
		n.learner = paxos.NewLearner(n.id)
		return n
	}

	n.role = "acceptor"
	n.acceptor = paxos.NewAcceptor(n.id, storage.NewMemoryStorage())
	n.learner = paxos.NewLearner(n.id) // every acceptor also tracks the learned value (spec §4.5 note)

	if cfg.IsProposer {
		n.role = "proposer"
		n.proposer = paxos.NewProposer(n.id, cfg.QuorumSize, n)
	}
	return n
}

func except(ids []int, self int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

func (n *Node) log() *slogLogger { return &slogLogger{n: n} }

// slogLogger is a tiny indirection so node.go doesn't import log/slog
// directly in every call site.
type slogLogger struct{ n *Node }

func (l *slogLogger) info(msg string, args ...any) {
	logging.L().Info(msg, append([]any{"node_id", l.n.id, "role", l.n.role}, args...)...)
}

func (l *slogLogger) error(msg string, args ...any) {
	logging.L().Error(msg, append([]any{"node_id", l.n.id, "role", l.n.role}, args...)...)
}

// ID returns this node's id.
func (n *Node) ID() int { return n.id }

// Decided reports whether this node's acceptor has observed DECIDE (for
// acceptor/proposer nodes) or its learner has learned a value (for
// learner-only nodes).
func (n *Node) Decided() bool {
	if n.acceptor != nil {
		return n.acceptor.Decided()
	}
	return n.learner.Learned()
}

// LearnedValue returns the value this node has learned, if any.
func (n *Node) LearnedValue() (int, bool) {
	if n.learner != nil {
		return n.learner.Value()
	}
	if n.acceptor != nil {
		return n.acceptor.AcceptedValue()
	}
	return 0, false
}

// Run is the passive receive loop for acceptor-only and learner-only
// nodes (spec §4.3/§4.5): receive, dispatch, repeat until decided/learned
// or ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.stopCh:
			return nil
		default:
		}
		if n.Decided() {
			return nil
		}
		frame, err := n.ep.Receive(n.timeout)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			return err
		}
		n.dispatch(frame)
	}
}

// Propose runs this node's Proposer (only valid on a proposer node).
func (n *Node) Propose(ctx context.Context, value int) (int, error) {
	if n.proposer == nil {
		return 0, fmt.Errorf("node %d is not a proposer", n.id)
	}
	return n.proposer.ProposeWithTimeout(ctx, value, n.timeout)
}

// dispatch applies a received frame to the acceptor/learner and replies
// where the protocol calls for a reply. Used both by Run's passive loop
// and by NextReply's dual-role servicing while a proposer is collecting.
func (n *Node) dispatch(f paxos.Frame) {
	switch f.Kind {
	case paxos.KindPrepare:
		p := f.AsPrepare()
		if n.acceptor == nil {
			return
		}
		if resp, ok := n.acceptor.HandlePrepare(p); ok {
			if err := n.ep.Send(p.From, resp.ToFrame()); err != nil {
				n.log().error("send PROMISE failed", "to", p.From, "err", err)
			}
		}
	case paxos.KindAccept:
		a := f.AsAccept()
		if n.acceptor == nil {
			return
		}
		if resp, ok := n.acceptor.HandleAccept(a); ok {
			if err := n.ep.Send(a.From, resp.ToFrame()); err != nil {
				n.log().error("send ACCEPTED failed", "to", a.From, "err", err)
			}
		}
	case paxos.KindDecide:
		d := f.AsDecide()
		n.applyDecide(d)
	case paxos.KindPromise, paxos.KindAccepted:
		// Replies with no matching in-flight phase on this node (e.g. a
		// straggler from a ballot this node already gave up on): drop.
	default:
		n.log().error("dropping unknown frame kind", "kind", f.Kind)
	}
}

func (n *Node) applyDecide(d paxos.Decide) {
	if n.acceptor != nil {
		_ = n.acceptor.HandleDecide(d)
	}
	if n.learner != nil {
		if err := n.learner.HandleDecide(d); err != nil {
			if code, ok := apperr.Code(err); ok && apperr.IsFatal(code) {
				n.log().error("FATAL: divergent decide observed", "err", err)
				panic(err) // safety violation: must surface loudly (spec §7, §8 P1)
			}
			n.log().error("learner decide error", "err", err)
		} else {
			n.log().info("learned value", "n", d.N.String(), "v", d.V)
		}
	}
}

// --- paxos.ProposerChannel ---

func (n *Node) BroadcastPrepare(f paxos.Prepare) (paxos.Promise, bool) {
	frame := f.ToFrame()
	for _, peer := range n.peerAcceptorIDs {
		if err := n.ep.Send(peer, frame); err != nil {
			n.log().error("send PREPARE failed", "to", peer, "err", err)
		}
	}
	return n.acceptor.HandlePrepare(f)
}

func (n *Node) BroadcastAccept(f paxos.Accept) (paxos.Accepted, bool) {
	frame := f.ToFrame()
	for _, peer := range n.peerAcceptorIDs {
		if err := n.ep.Send(peer, frame); err != nil {
			n.log().error("send ACCEPT failed", "to", peer, "err", err)
		}
	}
	return n.acceptor.HandleAccept(f)
}

func (n *Node) BroadcastDecide(f paxos.Decide) {
	frame := f.ToFrame()
	for _, peer := range n.decideRecipients {
		if err := n.ep.Send(peer, frame); err != nil {
			n.log().error("send DECIDE failed", "to", peer, "err", err)
		}
	}
	n.applyDecide(f)
	n.log().info("resultado final", "n", f.N.String(), "v", f.V)
}

func (n *Node) OwnAccepted() paxos.ProposalNumber {
	return n.acceptor.AcceptedBallot()
}

// NextReply waits for a Promise/Accepted at ballot n, servicing any other
// frame received meanwhile (dual role, spec §4.4).
func (n *Node) NextReply(deadline time.Time, wantKind paxos.Kind, want paxos.ProposalNumber) (paxos.ReplyResult, error) {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return paxos.ReplyResult{}, transport.ErrTimeout
		}
		frame, err := n.ep.Receive(remaining)
		if err != nil {
			return paxos.ReplyResult{}, err
		}
		switch frame.Kind {
		case paxos.KindPromise:
			if wantKind == paxos.KindPromise && frame.N.Equal(want) {
				return paxos.ReplyResult{Matched: true, Promise: frame.AsPromise()}, nil
			}
			continue
		case paxos.KindAccepted:
			if wantKind == paxos.KindAccepted && frame.N.Equal(want) {
				return paxos.ReplyResult{Matched: true, Accepted: frame.AsAccepted()}, nil
			}
			continue
		case paxos.KindDecide:
			d := frame.AsDecide()
			n.applyDecide(d)
			return paxos.ReplyResult{Decided: &d}, nil
		case paxos.KindPrepare, paxos.KindAccept:
			n.dispatch(frame)
			continue
		default:
			continue
		}
	}
}

// Stop signals Run to exit at the next loop iteration.
func (n *Node) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	select {
	case <-n.stopCh:
	default:
		close(n.stopCh)
	}
}
