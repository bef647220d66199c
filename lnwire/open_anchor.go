package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// OpenAnchor settles the anchor output once funding inputs have been
// assembled (spec.md §4.4, provide_anchor/accept_anchor), grounded on the
// teacher's SingleFundingResponse/SingleFundingComplete pair, collapsed
// into one message since this engine treats TxBuilder as the sole producer
// of the funding transaction layout.
type OpenAnchor struct {
	PendingChannelID uint64

	// AnchorOutpoint is the on-chain output the 2-of-2 multisig spends
	// from.
	AnchorOutpoint wire.OutPoint

	// CapacitySat is the anchor output's total value.
	CapacitySat int64

	// PushMsat is the amount the anchor funder pushes to the other side
	// as part of the first commitment state.
	PushMsat MilliSatoshi

	// FirstRevocationHash is the revocation_hash for commit_num 0 of the
	// sender's commitment chain.
	FirstRevocationHash chainhash.Hash
}

var _ Message = (*OpenAnchor)(nil)

// Decode is part of the lnwire.Message interface.
func (o *OpenAnchor) Decode(r io.Reader) error {
	return readElements(r,
		&o.PendingChannelID,
		&o.AnchorOutpoint,
		&o.CapacitySat,
		&o.PushMsat,
		&o.FirstRevocationHash,
	)
}

// Encode is part of the lnwire.Message interface.
func (o *OpenAnchor) Encode(w io.Writer) error {
	return writeElements(w,
		o.PendingChannelID,
		o.AnchorOutpoint,
		o.CapacitySat,
		o.PushMsat,
		o.FirstRevocationHash,
	)
}

// MsgType is part of the lnwire.Message interface.
func (o *OpenAnchor) MsgType() MessageType { return MsgOpenAnchor }

// MaxPayloadLength is part of the lnwire.Message interface.
func (o *OpenAnchor) MaxPayloadLength() uint32 {
	// 8 + (32+4) + 8 + 8 + 32
	return 92
}
