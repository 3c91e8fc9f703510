package storage

import (
	"sync"

	"github.com/paxoslab/consensus/internal/paxos"
)

// MemoryStorage is the only Storage implementation this module ships —
// see the package doc comment on why durability is out of scope here.
type MemoryStorage struct {
	highestPromised  paxos.ProposalNumber
	acceptedProposal paxos.ProposalNumber
	acceptedValue    int
	hasAccepted      bool
	mu               sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) SavePromised(n paxos.ProposalNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highestPromised = n
	return nil
}

func (m *MemoryStorage) LoadPromised() (paxos.ProposalNumber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.highestPromised, nil
}

func (m *MemoryStorage) SaveAccepted(n paxos.ProposalNumber, v int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptedProposal = n
	m.acceptedValue = v
	m.hasAccepted = true
	return nil
}

func (m *MemoryStorage) LoadAccepted() (paxos.ProposalNumber, int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acceptedProposal, m.acceptedValue, m.hasAccepted, nil
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highestPromised = paxos.ProposalNumber{}
	m.acceptedProposal = paxos.ProposalNumber{}
	m.acceptedValue = 0
	m.hasAccepted = false
	return nil
}

// Reset clears all state, useful for reusing one MemoryStorage across
// table-driven test cases without re-allocating.
func (m *MemoryStorage) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highestPromised = paxos.ProposalNumber{}
	m.acceptedProposal = paxos.ProposalNumber{}
	m.acceptedValue = 0
	m.hasAccepted = false
}
