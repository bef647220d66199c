package lnwire

import "io"

// CloseSignature proposes (or re-proposes) a mutual-close fee and the
// signature over the resulting transaction (spec.md §4.7), grounded on the
// teacher's ClosingSigned.
type CloseSignature struct {
	ChanID ChannelID

	// FeeSatoshis is the sender's proposed total mutual-close fee.
	FeeSatoshis int64

	// Signature authorizes the close transaction at the proposed fee.
	Signature []byte
}

var _ Message = (*CloseSignature)(nil)

// Decode is part of the lnwire.Message interface.
func (c *CloseSignature) Decode(r io.Reader) error {
	return readElements(r, &c.ChanID, &c.FeeSatoshis, &c.Signature)
}

// Encode is part of the lnwire.Message interface.
func (c *CloseSignature) Encode(w io.Writer) error {
	return writeElements(w, c.ChanID, c.FeeSatoshis, c.Signature)
}

// MsgType is part of the lnwire.Message interface.
func (c *CloseSignature) MsgType() MessageType { return MsgCloseSignature }

// MaxPayloadLength is part of the lnwire.Message interface.
func (c *CloseSignature) MaxPayloadLength() uint32 {
	// 32 + 8 + (4 length prefix + 64 max sig bytes)
	return 108
}
