package lnwire

import "io"

// UpdateCommit signs and proposes a new commitment transaction for the
// recipient, carrying every add/fulfill/fail staged since the previous tip
// (spec.md §4.4, "Commit-packet semantics"), grounded on the teacher's
// CommitSig message.
type UpdateCommit struct {
	ChanID ChannelID

	// CommitSig authorizes the recipient's new commitment transaction;
	// a pair of 32-byte scalars (spec.md §6.1).
	CommitSig []byte
}

var _ Message = (*UpdateCommit)(nil)

// Decode is part of the lnwire.Message interface.
func (u *UpdateCommit) Decode(r io.Reader) error {
	return readElements(r, &u.ChanID, &u.CommitSig)
}

// Encode is part of the lnwire.Message interface.
func (u *UpdateCommit) Encode(w io.Writer) error {
	return writeElements(w, u.ChanID, u.CommitSig)
}

// MsgType is part of the lnwire.Message interface.
func (u *UpdateCommit) MsgType() MessageType { return MsgUpdateCommit }

// MaxPayloadLength is part of the lnwire.Message interface.
func (u *UpdateCommit) MaxPayloadLength() uint32 {
	// 32 + (4 length prefix + 64 max sig bytes)
	return 100
}
