package paxos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBallotOrdering(t *testing.T) {
	zero := ProposalNumber{}
	one0 := NewBallot(1, 0)
	one1 := NewBallot(1, 1)
	two0 := NewBallot(2, 0)

	assert.True(t, zero.IsZero())
	assert.False(t, one0.IsZero())

	assert.False(t, one1.GreaterThan(one0), "same round never compares greater regardless of proposer id")
	assert.False(t, one0.GreaterThan(one1))
	assert.True(t, two0.GreaterThan(one1), "round is the only thing ordering compares on")

	assert.True(t, one0.GreaterOrEqual(one0))
	assert.True(t, one1.GreaterOrEqual(one0))
	assert.True(t, one0.GreaterOrEqual(one1))

	assert.True(t, one0.Equal(NewBallot(1, 0)))
	assert.True(t, one0.Equal(one1), "same round collides regardless of proposer id; retry is what breaks the tie")
}

func TestBallotString(t *testing.T) {
	assert.Equal(t, "3.2", NewBallot(3, 2).String())
}
