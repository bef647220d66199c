package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// Open is the first message of the open handshake (spec.md §4.3,
// OPEN_WAIT_FOR_OPEN), grounded on the teacher's SingleFundingRequest: it
// proposes the channel's protocol parameters before either side has
// committed to an anchor.
type Open struct {
	// PendingChannelID is a locally chosen identifier for this
	// not-yet-anchored channel, echoed back by the counterparty until
	// OpenComplete, at which point ChannelID (derived from the anchor
	// outpoint) takes over.
	PendingChannelID uint64

	// InitialFeeRate is the proposer's requested sat/kw fee rate for
	// both the funding and first commitment transactions. Must be
	// >= config.commitment_fee_rate_min (spec.md §6.1).
	InitialFeeRate uint64

	// MinDepth is the number of anchor confirmations the proposer
	// requires before treating the channel as open. Must be
	// <= config.anchor_confirms_max.
	MinDepth uint32

	// DelaySeconds is the proposer's requested relative CSV delay, in
	// seconds, for the pay-to-self output of their own commitment
	// transaction. Must be <= config.rel_locktime_max. Per spec.md §9,
	// block-height locktime variants are rejected outright; this engine
	// only ever sends/accepts the seconds variant.
	DelaySeconds uint32

	// DustLimit is the satoshi threshold below which no HTLC/balance
	// output is generated on the proposer's commitment transaction.
	DustLimit btcutil.Amount

	// CommitKey is the public key the proposer will use in their
	// commitment transaction's revocable/2-of-2 outputs.
	CommitKey *btcec.PublicKey

	// FinalKey is the public key the proposer will use for their
	// delivery output once it is no longer revocable.
	FinalKey *btcec.PublicKey

	// WillCreateAnchor announces that the sender intends to be the
	// anchor funder. Exactly one side of a channel may set this
	// (spec.md §6.1).
	WillCreateAnchor bool
}

var _ Message = (*Open)(nil)

// Decode is part of the lnwire.Message interface.
func (o *Open) Decode(r io.Reader) error {
	return readElements(r,
		&o.PendingChannelID,
		&o.InitialFeeRate,
		&o.MinDepth,
		&o.DelaySeconds,
		&o.DustLimit,
		&o.CommitKey,
		&o.FinalKey,
		&o.WillCreateAnchor,
	)
}

// Encode is part of the lnwire.Message interface.
func (o *Open) Encode(w io.Writer) error {
	return writeElements(w,
		o.PendingChannelID,
		o.InitialFeeRate,
		o.MinDepth,
		o.DelaySeconds,
		o.DustLimit,
		o.CommitKey,
		o.FinalKey,
		o.WillCreateAnchor,
	)
}

// MsgType is part of the lnwire.Message interface.
func (o *Open) MsgType() MessageType { return MsgOpen }

// MaxPayloadLength is part of the lnwire.Message interface.
func (o *Open) MaxPayloadLength() uint32 {
	// 8 + 8 + 4 + 4 + 8 + 33 + 33 + 1
	return 99
}
