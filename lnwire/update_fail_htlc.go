package lnwire

import "io"

// UpdateFailHtlc removes a previously added HTLC without settling it
// (spec.md §4.4, fail_htlc). The failure-reason payload is carried through
// as an opaque byte blob with no interpretation, per spec.md §9 (the
// source's own FIXME on this field).
type UpdateFailHtlc struct {
	ChanID ChannelID
	ID     uint64
	Reason []byte
}

var _ Message = (*UpdateFailHtlc)(nil)

// Decode is part of the lnwire.Message interface.
func (u *UpdateFailHtlc) Decode(r io.Reader) error {
	return readElements(r, &u.ChanID, &u.ID, &u.Reason)
}

// Encode is part of the lnwire.Message interface.
func (u *UpdateFailHtlc) Encode(w io.Writer) error {
	return writeElements(w, u.ChanID, u.ID, u.Reason)
}

// MsgType is part of the lnwire.Message interface.
func (u *UpdateFailHtlc) MsgType() MessageType { return MsgUpdateFailHtlc }

// MaxPayloadLength is part of the lnwire.Message interface.
func (u *UpdateFailHtlc) MaxPayloadLength() uint32 {
	// 32 + 8 + (4 length prefix + up to 256 byte reason)
	return 300
}
