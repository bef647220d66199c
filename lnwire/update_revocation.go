package lnwire

import "io"

// UpdateRevocation retires a superseded commitment by revealing its
// revocation preimage, and hands over the next revocation hash in the same
// message (spec.md §4.4, "Revocation semantics"), grounded on the teacher's
// RevokeAndAck.
type UpdateRevocation struct {
	ChanID ChannelID

	// Preimage must hash to the revocation_hash of the commitment being
	// retired.
	Preimage [32]byte

	// NextRevocationHash is the sender's revocation_hash for the
	// commitment after the one the sender will next propose.
	NextRevocationHash [32]byte
}

var _ Message = (*UpdateRevocation)(nil)

// Decode is part of the lnwire.Message interface.
func (u *UpdateRevocation) Decode(r io.Reader) error {
	return readElements(r, &u.ChanID, &u.Preimage, &u.NextRevocationHash)
}

// Encode is part of the lnwire.Message interface.
func (u *UpdateRevocation) Encode(w io.Writer) error {
	return writeElements(w, u.ChanID, u.Preimage, u.NextRevocationHash)
}

// MsgType is part of the lnwire.Message interface.
func (u *UpdateRevocation) MsgType() MessageType { return MsgUpdateRevocation }

// MaxPayloadLength is part of the lnwire.Message interface.
func (u *UpdateRevocation) MaxPayloadLength() uint32 {
	// 32 + 32 + 32
	return 96
}
