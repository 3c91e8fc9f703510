package paxos

import "github.com/paxoslab/consensus/internal/storage"

// Acceptor implements the reactive state machine of spec §4.3. It never
// initiates a message on its own; it only reacts to PREPARE, ACCEPT, and
// DECIDE. All three handlers are called from a single goroutine (the
// node's receive loop), so no locking is needed at this layer — storage
// does its own locking only because tests may share one MemoryStorage.
type Acceptor struct {
	id      int
	store   storage.Storage
	decided bool
}

func NewAcceptor(id int, store storage.Storage) *Acceptor {
	return &Acceptor{id: id, store: store}
}

// Decided reports whether this acceptor has observed a DECIDE and should
// stop its receive loop (spec §3 lifecycle).
func (a *Acceptor) Decided() bool {
	return a.decided
}

// HandlePrepare implements: if n > promised_n, promise n and report any
// previously accepted (ballot, value); otherwise drop silently (return
// ok=false) — no NACK is ever sent on the wire (spec §4.3, §7).
func (a *Acceptor) HandlePrepare(m Prepare) (resp Promise, ok bool) {
	promised, err := a.store.LoadPromised()
	if err != nil {
		return Promise{}, false
	}
	if !m.N.GreaterThan(promised) {
		return Promise{}, false
	}
	if err := a.store.SavePromised(m.N); err != nil {
		return Promise{}, false
	}

	acceptedN, acceptedV, hasValue, err := a.store.LoadAccepted()
	if err != nil {
		return Promise{}, false
	}
	resp = Promise{N: m.N, From: a.id}
	if hasValue {
		resp.N = acceptedN
		v := acceptedV
		resp.V = &v
		resp.HadPrior = true
	}
	return resp, true
}

// HandleAccept implements: if n >= promised_n, accept (n, v) and reply
// ACCEPTED(n); otherwise drop silently. The non-strict comparison is
// required (spec §4.3 rationale): a proposer whose PREPARE was just
// promised at n must be allowed to ACCEPT at that same n.
func (a *Acceptor) HandleAccept(m Accept) (resp Accepted, ok bool) {
	promised, err := a.store.LoadPromised()
	if err != nil {
		return Accepted{}, false
	}
	if !m.N.GreaterOrEqual(promised) {
		return Accepted{}, false
	}
	if err := a.store.SavePromised(m.N); err != nil {
		return Accepted{}, false
	}
	if err := a.store.SaveAccepted(m.N, m.V); err != nil {
		return Accepted{}, false
	}
	return Accepted{N: m.N, V: m.V, From: a.id}, true
}

// HandleDecide implements the terminal DECIDE transition: record the
// chosen value and stop. Invariant A2 holds because this is the only
// write path once a.decided is true, and the node's receive loop exits
// immediately after calling this.
func (a *Acceptor) HandleDecide(m Decide) error {
	if a.decided {
		return nil
	}
	if err := a.store.SaveAccepted(m.N, m.V); err != nil {
		return err
	}
	if err := a.store.SavePromised(m.N); err != nil {
		return err
	}
	a.decided = true
	return nil
}

// AcceptedValue returns the acceptor's current accepted value, if any —
// used by tests and by the DECIDE broadcast path to confirm invariant A2.
func (a *Acceptor) AcceptedValue() (int, bool) {
	_, v, hasValue, err := a.store.LoadAccepted()
	if err != nil {
		return 0, false
	}
	return v, hasValue
}

// AcceptedBallot returns the ballot of the most recently accepted
// proposal (zero value if none), used by a co-located Proposer for
// ballot generation (spec §4.4 step 1).
func (a *Acceptor) AcceptedBallot() ProposalNumber {
	n, _, _, err := a.store.LoadAccepted()
	if err != nil {
		return ProposalNumber{}
	}
	return n
}

// PromisedBallot returns the highest ballot promised so far (zero value
// if none), used by tests asserting monotonicity (spec §8 M1).
func (a *Acceptor) PromisedBallot() ProposalNumber {
	n, err := a.store.LoadPromised()
	if err != nil {
		return ProposalNumber{}
	}
	return n
}
