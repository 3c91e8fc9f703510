package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/paxoslab/consensus/internal/codec"
	"github.com/paxoslab/consensus/internal/paxos"
)

// UDPEndpoint is the real-socket Endpoint implementation: one node per
// process (or one per goroutine in the local demo), each bound to its own
// deterministic port (spec §4.2: address(id) = loopback, PORTA_BASE+id).
//
// Grounded on Chris-Alexander-Pop-microservices-library/pkg/network/udp.go's
// net.ListenPacket idiom, adapted from an async handler callback to the
// blocking-receive-with-timeout contract spec §4.2/§5 requires.
type UDPEndpoint struct {
	id       int
	basePort int
	conn     net.PacketConn
	buf      []byte
}

// Bind opens a UDP socket at 127.0.0.1:basePort+id.
func Bind(id, basePort int) (*UDPEndpoint, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", basePort+id)
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind node %d at %s: %w", id, addr, err)
	}
	return &UDPEndpoint{
		id:       id,
		basePort: basePort,
		conn:     conn,
		buf:      make([]byte, codec.MaxFrameSize),
	}, nil
}

// peerAddr resolves a peer id to its deterministic UDP address.
func (e *UDPEndpoint) peerAddr(peerID int) (net.Addr, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", e.basePort+peerID)
	return net.ResolveUDPAddr("udp", addr)
}

// Send encodes f and enqueues one datagram to peerID. Per spec §4.2, a
// failure here is reported but never retried at this layer.
func (e *UDPEndpoint) Send(peerID int, f paxos.Frame) error {
	raddr, err := e.peerAddr(peerID)
	if err != nil {
		return err
	}
	b, err := codec.Encode(f)
	if err != nil {
		return err
	}
	_, err = e.conn.WriteTo(b, raddr)
	return err
}

// Receive blocks up to timeout. Malformed frames are dropped and do not
// consume the caller's deadline budget beyond the time already spent
// waiting for them (spec §7: "Malformed frame ... Drop and continue").
func (e *UDPEndpoint) Receive(timeout time.Duration) (paxos.Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return paxos.Frame{}, ErrTimeout
		}
		if err := e.conn.SetReadDeadline(deadline); err != nil {
			return paxos.Frame{}, err
		}
		n, _, err := e.conn.ReadFrom(e.buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return paxos.Frame{}, ErrTimeout
			}
			return paxos.Frame{}, err
		}
		frame, err := codec.Decode(e.buf[:n])
		if err != nil {
			continue // malformed: drop and keep waiting within the same deadline
		}
		return frame, nil
	}
}

func (e *UDPEndpoint) Close() error {
	return e.conn.Close()
}
