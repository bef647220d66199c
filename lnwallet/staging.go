package lnwallet

import lnchannel "github.com/lightningnetwork/lnchannel"

// ChangeKind discriminates the StagingChange tagged union of spec.md §3.
type ChangeKind uint8

const (
	// ChangeAdd stages a new HTLC.
	ChangeAdd ChangeKind = iota
	// ChangeFulfill settles a previously-added HTLC with its preimage.
	ChangeFulfill
	// ChangeFail removes a previously-added HTLC without payment.
	ChangeFail
)

// StagingChange is the tagged union spec.md §3 names: `Add(ChannelHtlc) |
// Fulfill(id, preimage) | Fail(id, reason)`. Grounded on the teacher's
// updateType/PaymentDescriptor pairing in lnwallet/channel.go, collapsed
// into a single exhaustively-matched struct rather than an interface
// hierarchy since the three variants carry no behavior of their own.
type StagingChange struct {
	Kind ChangeKind

	// Add fields.
	Htlc ChannelHtlc

	// Fulfill/Fail fields.
	ID        uint64
	OfferedBy lnchannel.Side

	// Fulfill-only.
	Preimage [32]byte

	// Fail-only: an opaque blob, per spec.md §9's open question on the
	// FIXME'd failure-reason payload — carried through uninterpreted.
	Reason []byte
}

// NewAddChange constructs a StagingChange of kind ChangeAdd.
func NewAddChange(htlc ChannelHtlc) StagingChange {
	return StagingChange{Kind: ChangeAdd, Htlc: htlc}
}

// NewFulfillChange constructs a StagingChange of kind ChangeFulfill.
func NewFulfillChange(id uint64, offeredBy lnchannel.Side, preimage [32]byte) StagingChange {
	return StagingChange{Kind: ChangeFulfill, ID: id, OfferedBy: offeredBy, Preimage: preimage}
}

// NewFailChange constructs a StagingChange of kind ChangeFail.
func NewFailChange(id uint64, offeredBy lnchannel.Side, reason []byte) StagingChange {
	return StagingChange{Kind: ChangeFail, ID: id, OfferedBy: offeredBy, Reason: reason}
}

// Apply exhaustively matches the change kind against a ChannelState,
// returning the resulting state — the sum-type "apply_changeset" spec.md §9
// calls out as something the host language's compiler should enforce is
// total. Go has no sum types, so totality is enforced by the default case
// panicking: every StagingChange is constructed exclusively by the
// New*Change helpers above, so an unrecognized Kind can only mean a
// programming error, never a value that arrived off the wire.
func (c StagingChange) Apply(state *ChannelState) (*ChannelState, error) {
	switch c.Kind {
	case ChangeAdd:
		return state.AddHtlc(c.Htlc)
	case ChangeFulfill:
		return state.FulfillHtlc(c.ID, c.OfferedBy, c.Preimage)
	case ChangeFail:
		return state.FailHtlc(c.ID, c.OfferedBy)
	default:
		panic("lnwallet: unreachable StagingChange kind")
	}
}
