package lnwire

import "io"

// OpenComplete closes out the open handshake once both sides have a fully
// signed first commitment (spec.md §4.3, OPEN_WAIT_FOR_COMPLETE → NORMAL),
// grounded on the teacher's FundingLocked.
type OpenComplete struct {
	ChanID ChannelID
}

var _ Message = (*OpenComplete)(nil)

// Decode is part of the lnwire.Message interface.
func (o *OpenComplete) Decode(r io.Reader) error {
	return readElements(r, &o.ChanID)
}

// Encode is part of the lnwire.Message interface.
func (o *OpenComplete) Encode(w io.Writer) error {
	return writeElements(w, o.ChanID)
}

// MsgType is part of the lnwire.Message interface.
func (o *OpenComplete) MsgType() MessageType { return MsgOpenComplete }

// MaxPayloadLength is part of the lnwire.Message interface.
func (o *OpenComplete) MaxPayloadLength() uint32 { return 32 }
