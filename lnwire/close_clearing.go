package lnwire

import "io"

// CloseClearing begins the mutual-close handshake by exchanging delivery
// scripts (spec.md §4.7), grounded on the teacher's Shutdown/CloseRequest
// message pairing.
type CloseClearing struct {
	ChanID ChannelID

	// Script is the sender's P2SH delivery script for the cooperative
	// close output.
	Script []byte
}

var _ Message = (*CloseClearing)(nil)

// Decode is part of the lnwire.Message interface.
func (c *CloseClearing) Decode(r io.Reader) error {
	return readElements(r, &c.ChanID, &c.Script)
}

// Encode is part of the lnwire.Message interface.
func (c *CloseClearing) Encode(w io.Writer) error {
	return writeElements(w, c.ChanID, c.Script)
}

// MsgType is part of the lnwire.Message interface.
func (c *CloseClearing) MsgType() MessageType { return MsgCloseClearing }

// MaxPayloadLength is part of the lnwire.Message interface.
func (c *CloseClearing) MaxPayloadLength() uint32 {
	// 32 + (4 length prefix + up to 34 byte script)
	return 70
}
