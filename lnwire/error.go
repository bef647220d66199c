package lnwire

import "io"

// Error is the terminal packet emitted on any protocol violation (spec.md
// §4.3, ERR_BREAKDOWN), grounded on the teacher's own lnwire Error message.
// Named Error rather than ErrorMessage to match the wire vocabulary of
// spec.md §4.8; it implements the standard error interface as well as
// lnwire.Message so it can double as a Go error value where convenient.
type Error struct {
	ChanID ChannelID

	// Problem is the stable, human-readable description of the first
	// violated contract (spec.md §7's ErrorKind.String() values).
	Problem []byte
}

var _ Message = (*Error)(nil)

// Decode is part of the lnwire.Message interface.
func (e *Error) Decode(r io.Reader) error {
	return readElements(r, &e.ChanID, &e.Problem)
}

// Encode is part of the lnwire.Message interface.
func (e *Error) Encode(w io.Writer) error {
	return writeElements(w, e.ChanID, e.Problem)
}

// MsgType is part of the lnwire.Message interface.
func (e *Error) MsgType() MessageType { return MsgError }

// MaxPayloadLength is part of the lnwire.Message interface.
func (e *Error) MaxPayloadLength() uint32 {
	// 32 + (4 length prefix + up to 256 byte problem string)
	return 300
}

// Error implements the error interface, letting an lnwire.Error be returned
// directly as a Go error where convenient.
func (e *Error) Error() string {
	return string(e.Problem)
}
