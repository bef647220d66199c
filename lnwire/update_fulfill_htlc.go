package lnwire

import "io"

// UpdateFulfillHtlc settles a previously added HTLC by revealing its
// preimage (spec.md §4.4, fulfill_htlc), grounded verbatim on the teacher's
// UpdateFufillHTLC.
type UpdateFulfillHtlc struct {
	ChanID ChannelID

	// ID references the HTLC, within the offering side's additions, to
	// be settled.
	ID uint64

	// PaymentPreimage is the R-value preimage required to fully settle
	// an HTLC; must hash to the HTLC's RHash.
	PaymentPreimage [32]byte
}

var _ Message = (*UpdateFulfillHtlc)(nil)

// Decode is part of the lnwire.Message interface.
func (u *UpdateFulfillHtlc) Decode(r io.Reader) error {
	return readElements(r, &u.ChanID, &u.ID, &u.PaymentPreimage)
}

// Encode is part of the lnwire.Message interface.
func (u *UpdateFulfillHtlc) Encode(w io.Writer) error {
	return writeElements(w, u.ChanID, u.ID, u.PaymentPreimage)
}

// MsgType is part of the lnwire.Message interface.
func (u *UpdateFulfillHtlc) MsgType() MessageType { return MsgUpdateFulfillHtlc }

// MaxPayloadLength is part of the lnwire.Message interface.
func (u *UpdateFulfillHtlc) MaxPayloadLength() uint32 {
	// 32 + 8 + 32
	return 72
}
