// Package paxos implements the single-decree Paxos protocol state machine:
// ballot numbering, the acceptor's promise/accept transitions, the
// proposer's two-phase driver, and the learner.
package paxos

import "fmt"

// ProposalNumber is a Paxos ballot number: the monotonically non-decreasing
// integer `n` of spec §3. ProposerID records which proposer minted this
// round, for logging and display only — it never participates in ordering
// or equality. Spec §3 is explicit that two proposers can land on the same
// round and that this implementation tolerates the collision by retry,
// rather than appending a proposer-id tiebreaker to avoid it; see
// DESIGN.md.
type ProposalNumber struct {
	Round      int64
	ProposerID int
}

// NewBallot builds a ballot for the given round and proposer.
func NewBallot(round int64, proposerID int) ProposalNumber {
	return ProposalNumber{Round: round, ProposerID: proposerID}
}

// IsZero reports whether n is the zero-value ballot, i.e. "nothing
// proposed/accepted yet".
func (n ProposalNumber) IsZero() bool {
	return n.Round == 0
}

// Equal reports whether n and o are the same round. Proposer id is not
// part of a ballot's identity (spec §3: `n` is a single integer).
func (n ProposalNumber) Equal(o ProposalNumber) bool {
	return n.Round == o.Round
}

// GreaterThan orders ballots by round alone. Two proposers that land on
// the same round compare equal here; the proposer driver (proposer.go)
// resolves that collision by timing out and retrying at a higher round,
// exactly as spec §3/§8 scenario 4 describes — there is no proposer-id
// tiebreaker.
func (n ProposalNumber) GreaterThan(o ProposalNumber) bool {
	return n.Round > o.Round
}

// GreaterOrEqual is GreaterThan(o) || Equal(o).
func (n ProposalNumber) GreaterOrEqual(o ProposalNumber) bool {
	return n.Round >= o.Round
}

func (n ProposalNumber) String() string {
	return fmt.Sprintf("%d.%d", n.Round, n.ProposerID)
}
