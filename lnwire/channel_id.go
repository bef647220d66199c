package lnwire

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"
)

// ChannelID uniquely identifies a channel on the wire once the anchor
// outpoint is known, grounded on the ChanID field carried by the teacher's
// FundingLocked/UpdateFulfillHTLC messages. It is derived from the anchor
// outpoint so both sides compute the same value independently, the way the
// teacher derives its ChannelID from the funding outpoint.
type ChannelID [32]byte

// NewChannelID derives the ChannelID for the given anchor outpoint: the
// double-SHA256 of the serialized outpoint, with the first two bytes XORed
// against the output index, mirroring the teacher's funding-outpoint-derived
// channel ID scheme.
func NewChannelID(anchor wire.OutPoint) ChannelID {
	var buf [36]byte
	copy(buf[:32], anchor.Hash[:])
	binary.LittleEndian.PutUint32(buf[32:], anchor.Index)

	h := sha256.Sum256(buf[:])
	h = sha256.Sum256(h[:])

	var idx [2]byte
	binary.BigEndian.PutUint16(idx[:], uint16(anchor.Index))
	h[0] ^= idx[0]
	h[1] ^= idx[1]

	return ChannelID(h)
}

// String returns the hex-reversed form, matching chainhash.Hash's display
// convention used elsewhere in the stack.
func (c ChannelID) String() string {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 64)
	for _, b := range c {
		out = append(out, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}
