package lnwire

import "io"

// ChanSync lets two peers that have just reconnected agree on where their
// two commitment chains stood before the disconnect, grounded on the
// teacher's ChannelReestablish (lnwallet/channel.go's ChanSyncMsg). Each
// side sends its own view; ProcessChanSyncMsg compares the incoming view
// against local bookkeeping and resends whatever UpdateCommit/
// UpdateRevocation the counterparty is missing (spec.md §11).
type ChanSync struct {
	ChanID ChannelID

	// NextCommitHeight is the commit_num the sender expects its next
	// UpdateCommit to produce — one past the highest commitment the
	// sender has built on the chain it owns.
	NextCommitHeight uint64

	// RemoteTailHeight is the highest commit_num on the counterparty's
	// chain the sender has already revoked (i.e. the oldest commitment
	// on that chain still unrevoked is RemoteTailHeight+1).
	RemoteTailHeight uint64
}

var _ Message = (*ChanSync)(nil)

// Decode is part of the lnwire.Message interface.
func (c *ChanSync) Decode(r io.Reader) error {
	return readElements(r, &c.ChanID, &c.NextCommitHeight, &c.RemoteTailHeight)
}

// Encode is part of the lnwire.Message interface.
func (c *ChanSync) Encode(w io.Writer) error {
	return writeElements(w, c.ChanID, c.NextCommitHeight, c.RemoteTailHeight)
}

// MsgType is part of the lnwire.Message interface.
func (c *ChanSync) MsgType() MessageType { return MsgChanSync }

// MaxPayloadLength is part of the lnwire.Message interface.
func (c *ChanSync) MaxPayloadLength() uint32 {
	// 32 + 8 + 8
	return 48
}
