package lnwire

import "io"

// UpdateAddHtlc stages a new conditional payment (spec.md §3, ChannelHtlc /
// §4.4 add_htlc), grounded on the teacher's UpdateAddHTLC message.
type UpdateAddHtlc struct {
	ChanID ChannelID

	// ID is chosen by the offering side, strictly increasing per
	// offering side (spec.md §6.1).
	ID uint64

	// AmountMsat must be > 0 (spec.md §6.1).
	AmountMsat MilliSatoshi

	// RHash is the 32-byte hash the preimage must match to settle this
	// HTLC.
	RHash [32]byte

	// Expiry is the absolute timelock, seconds-since-epoch. This engine
	// only ever sends/accepts the seconds variant (spec.md §9).
	Expiry uint64

	// Route is an opaque onion-routing blob; routing/onion packaging
	// stays out of scope (spec.md §1), so this engine never inspects
	// its contents.
	Route []byte
}

var _ Message = (*UpdateAddHtlc)(nil)

// Decode is part of the lnwire.Message interface.
func (u *UpdateAddHtlc) Decode(r io.Reader) error {
	return readElements(r,
		&u.ChanID,
		&u.ID,
		&u.AmountMsat,
		&u.RHash,
		&u.Expiry,
		&u.Route,
	)
}

// Encode is part of the lnwire.Message interface.
func (u *UpdateAddHtlc) Encode(w io.Writer) error {
	return writeElements(w,
		u.ChanID,
		u.ID,
		u.AmountMsat,
		u.RHash,
		u.Expiry,
		u.Route,
	)
}

// MsgType is part of the lnwire.Message interface.
func (u *UpdateAddHtlc) MsgType() MessageType { return MsgUpdateAddHtlc }

// MaxPayloadLength is part of the lnwire.Message interface.
func (u *UpdateAddHtlc) MaxPayloadLength() uint32 {
	// 32 + 8 + 8 + 32 + 8 + (4 length prefix + up to ~1300 byte route)
	return 1400
}
