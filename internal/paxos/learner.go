package paxos

import "github.com/paxoslab/consensus/internal/apperr"

// Learner has no acceptor state (spec §4.5). It records the first DECIDE
// it observes and flags a fatal safety violation if a later DECIDE ever
// reports a different value — that would mean two values were chosen,
// which must never happen under P1 (Agreement).
type Learner struct {
	id      int
	learned bool
	n       ProposalNumber
	v       int
}

func NewLearner(id int) *Learner {
	return &Learner{id: id}
}

// HandleDecide records the chosen value on first observation. A later
// DECIDE with the same value is idempotent; one with a different value is
// a safety violation and returns an *apperr.AppError with code
// apperr.CodeDivergentDecision, which callers must treat as fatal
// (spec §7, §8 P1).
func (l *Learner) HandleDecide(m Decide) error {
	if !l.learned {
		l.learned = true
		l.n = m.N
		l.v = m.V
		return nil
	}
	if l.v != m.V {
		return apperr.New(apperr.CodeDivergentDecision,
			"learner observed two different decided values", nil)
	}
	return nil
}

// Learned reports whether this learner has observed a DECIDE yet.
func (l *Learner) Learned() bool {
	return l.learned
}

// Value returns the learned value and whether one has been learned.
func (l *Learner) Value() (int, bool) {
	return l.v, l.learned
}
