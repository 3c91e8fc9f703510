// Package storage holds an acceptor's promise/accept state behind a small
// interface, separate from the paxos package's protocol logic.
//
// Spec §6 is explicit that this system persists nothing across restart
// ("Persisted state: none") and §1 lists durable state across restart as a
// non-goal. This interface therefore only needs to outlive a single
// process's receive loop, not a crash — MemoryStorage is the only
// implementation this module ships. The interface is still worth keeping
// separate from Acceptor: it isolates the mutex-guarded state fields from
// the protocol transitions that read and write them, and it is the seam a
// durable backend would attach to if this system ever grew one.
package storage

import "github.com/paxoslab/consensus/internal/paxos"

// Storage holds one acceptor's promise/accept state for the process
// lifetime.
type Storage interface {
	// SavePromised records the highest ballot for which a PROMISE has been
	// issued.
	SavePromised(n paxos.ProposalNumber) error
	// LoadPromised returns the highest promised ballot, or the zero value
	// if none has been promised yet.
	LoadPromised() (paxos.ProposalNumber, error)
	// SaveAccepted records the most recently accepted (ballot, value) pair.
	SaveAccepted(n paxos.ProposalNumber, v int) error
	// LoadAccepted returns the most recently accepted (ballot, value) pair
	// and whether anything has been accepted yet.
	LoadAccepted() (n paxos.ProposalNumber, v int, hasValue bool, err error)
	// Close releases any resources held by the implementation.
	Close() error
}
