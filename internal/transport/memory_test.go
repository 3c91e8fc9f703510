package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paxoslab/consensus/internal/paxos"
)

func TestMemoryEndpointSendReceive(t *testing.T) {
	net := NewNetwork(0, nil)
	a := net.Bind(0)
	b := net.Bind(1)
	defer a.Close()
	defer b.Close()

	frame := paxos.Frame{Kind: paxos.KindPrepare, SenderID: 0, N: paxos.NewBallot(1, 0)}
	require.NoError(t, a.Send(1, frame))

	got, err := b.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, frame.Kind, got.Kind)
	assert.Equal(t, frame.SenderID, got.SenderID)
}

func TestMemoryEndpointReceiveTimesOut(t *testing.T) {
	net := NewNetwork(0, nil)
	a := net.Bind(0)
	defer a.Close()

	_, err := a.Receive(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMemoryEndpointSendToUnknownPeerFails(t *testing.T) {
	net := NewNetwork(0, nil)
	a := net.Bind(0)
	defer a.Close()

	err := a.Send(99, paxos.Frame{Kind: paxos.KindPrepare, SenderID: 0})
	assert.Error(t, err)
}

func TestMemoryEndpointDropProbabilityOne(t *testing.T) {
	net := NewNetwork(1, nil)
	a := net.Bind(0)
	b := net.Bind(1)
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Send(1, paxos.Frame{Kind: paxos.KindPrepare, SenderID: 0}))

	_, err := b.Receive(30 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout, "drop probability 1 must silently lose every datagram")
}

func TestMemoryEndpointCloseUnbindsFromNetwork(t *testing.T) {
	net := NewNetwork(0, nil)
	a := net.Bind(0)
	b := net.Bind(1)
	defer b.Close()

	require.NoError(t, a.Close())
	err := b.Send(0, paxos.Frame{Kind: paxos.KindPrepare, SenderID: 1})
	assert.Error(t, err, "sending to a closed, unbound endpoint must fail")
}
