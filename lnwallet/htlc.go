package lnwallet

import (
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// DefaultMaxHtlcsPerSide is the per-side cap of spec.md §3/§6.1/§8 property
// 8 used when a host does not override config.MaxHtlcsPerSide, grounded on
// the teacher's MaxHTLCNumber (lnwallet/channel.go).
const DefaultMaxHtlcsPerSide = 300

// ChannelHtlc is a conditional in-channel payment, spec.md §3. Grounded on
// the teacher's PaymentDescriptor (lnwallet/channel.go), stripped down to
// the fields the engine's bookkeeping itself needs — the second-level
// transaction/log-index machinery stays behind the TxBuilder capability.
type ChannelHtlc struct {
	// ID is unique within OfferedBy's additions on the channel,
	// monotonically chosen by the offering side.
	ID uint64

	// OfferedBy is the side that added this HTLC.
	OfferedBy lnchannel.Side

	// AmountMsat is the HTLC's value; must be positive.
	AmountMsat lnwire.MilliSatoshi

	// RHash is the 32-byte hash the HTLC is redeemable against.
	RHash [32]byte

	// Expiry is the absolute timelock, seconds-since-epoch (spec.md §6.1:
	// this engine refuses the block-height variant).
	Expiry uint32

	// Route is an opaque byte blob; onion packaging stays out of scope
	// (spec.md §1).
	Route []byte
}

// copy returns a deep value copy of the HTLC (the Route blob is not
// aliased), matching the value semantics spec.md §3's ownership section
// requires of ChannelHtlc snapshots.
func (h ChannelHtlc) copy() ChannelHtlc {
	out := h
	if h.Route != nil {
		out.Route = append([]byte(nil), h.Route...)
	}
	return out
}
