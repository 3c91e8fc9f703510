// Package codec implements the wire framing of spec §4.1: a typed Frame
// round-trips through a single self-contained CBOR-encoded datagram, at
// most 1024 bytes, with no state carried between frames.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/paxoslab/consensus/internal/apperr"
	"github.com/paxoslab/consensus/internal/paxos"
)

// MaxFrameSize is the maximum encoded frame size allowed on the wire
// (spec §4.1, §6).
const MaxFrameSize = 1024

// wireFrame is the CBOR-serializable shape of paxos.Frame. V and HadPrior
// use pointer/omitempty so that PREPARE frames (which carry neither)
// don't pay for them on the wire.
type wireFrame struct {
	Kind     uint8 `cbor:"1,keyasint"`
	SenderID int   `cbor:"2,keyasint"`
	Round    int64 `cbor:"3,keyasint"`
	Proposer int   `cbor:"4,keyasint"`
	V        *int  `cbor:"5,keyasint,omitempty"`
	HadPrior bool  `cbor:"6,keyasint,omitempty"`
}

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: invalid cbor encoding options: %v", err))
	}
	return mode
}()

// Encode serializes a Frame into its wire bytes. It returns a
// CodeMalformedFrame AppError if the frame doesn't carry the fields
// required for its Kind, or if the encoded size would exceed
// MaxFrameSize.
func Encode(f paxos.Frame) ([]byte, error) {
	if err := validate(f); err != nil {
		return nil, err
	}
	wf := wireFrame{
		Kind:     uint8(f.Kind),
		SenderID: f.SenderID,
		Round:    f.N.Round,
		Proposer: f.N.ProposerID,
		V:        f.V,
		HadPrior: f.HadPrior,
	}
	b, err := encMode.Marshal(wf)
	if err != nil {
		return nil, apperr.New(apperr.CodeMalformedFrame, "failed to encode frame", err)
	}
	if len(b) > MaxFrameSize {
		return nil, apperr.New(apperr.CodeMalformedFrame,
			fmt.Sprintf("encoded frame exceeds %d bytes", MaxFrameSize), nil)
	}
	return b, nil
}

// Decode parses wire bytes into a Frame. Frames missing a field required
// for their kind, undecodable bytes, and oversized buffers are reported as
// CodeMalformedFrame; unknown kinds are reported as CodeUnknownKind —
// callers are expected to drop all of these and continue
// (spec §7 "Malformed frame: Drop and continue").
func Decode(b []byte) (paxos.Frame, error) {
	if len(b) > MaxFrameSize {
		return paxos.Frame{}, apperr.New(apperr.CodeMalformedFrame,
			fmt.Sprintf("frame exceeds %d bytes", MaxFrameSize), nil)
	}
	var wf wireFrame
	if err := cbor.Unmarshal(b, &wf); err != nil {
		return paxos.Frame{}, apperr.New(apperr.CodeMalformedFrame, "failed to decode frame", err)
	}
	f := paxos.Frame{
		Kind:     paxos.Kind(wf.Kind),
		SenderID: wf.SenderID,
		N:        paxos.ProposalNumber{Round: wf.Round, ProposerID: wf.Proposer},
		HadPrior: wf.HadPrior,
	}
	if wf.V != nil {
		v := *wf.V
		f.V = &v
	}
	if err := validate(f); err != nil {
		return paxos.Frame{}, err
	}
	return f, nil
}

// validate enforces spec §4.1: "reject frames with unknown kind or
// missing required fields for the given kind."
func validate(f paxos.Frame) error {
	switch f.Kind {
	case paxos.KindPrepare:
		return nil // N, SenderID only; V/HadPrior unused.
	case paxos.KindPromise:
		if f.HadPrior && f.V == nil {
			return apperr.New(apperr.CodeMalformedFrame, "PROMISE with had_prior=true missing v", nil)
		}
		return nil
	case paxos.KindAccept, paxos.KindAccepted, paxos.KindDecide:
		if f.V == nil {
			return apperr.New(apperr.CodeMalformedFrame,
				fmt.Sprintf("%s frame missing required value field", f.Kind), nil)
		}
		return nil
	default:
		return apperr.New(apperr.CodeUnknownKind, fmt.Sprintf("unknown message kind %d", f.Kind), nil)
	}
}
