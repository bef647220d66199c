package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OpenCommitSig carries the signature over the counterparty's first
// commitment transaction (spec.md §4.3, OPEN_WAIT_FOR_COMMIT_SIG), grounded
// on the teacher's SingleFundingSignComplete. FirstRevocationHash rides
// along so each side learns the other's commit_num-0 revocation hash: only
// the anchor's funder discloses one in OpenAnchor, so the non-funder's own
// first revocation hash has no other message to travel on before the
// commit-sig exchange needs it.
type OpenCommitSig struct {
	ChanID ChannelID

	// CommitSig is the signature authorizing the recipient's initial
	// commitment transaction; a pair of 32-byte scalars per spec.md §6.1.
	CommitSig []byte

	// FirstRevocationHash is the revocation_hash for commit_num 0 of the
	// sender's own commitment chain.
	FirstRevocationHash chainhash.Hash

	// NextRevocationHashes pre-extends the window by config.InitialRevocations
	// entries: the sender's revocation_hash for commit_num 1, 2, ..., needed
	// so the counterparty can build that many post-genesis commitments
	// without waiting on a revocation message that, this early, hasn't
	// happened yet. Later cycles refresh the window the normal way, one
	// hash at a time via UpdateRevocation.NextRevocationHash (spec.md
	// §4.4, §11).
	NextRevocationHashes []chainhash.Hash
}

var _ Message = (*OpenCommitSig)(nil)

// Decode is part of the lnwire.Message interface.
func (o *OpenCommitSig) Decode(r io.Reader) error {
	return readElements(r, &o.ChanID, &o.CommitSig, &o.FirstRevocationHash, &o.NextRevocationHashes)
}

// Encode is part of the lnwire.Message interface.
func (o *OpenCommitSig) Encode(w io.Writer) error {
	return writeElements(w, o.ChanID, o.CommitSig, o.FirstRevocationHash, o.NextRevocationHashes)
}

// MsgType is part of the lnwire.Message interface.
func (o *OpenCommitSig) MsgType() MessageType { return MsgOpenCommitSig }

// MaxPayloadLength is part of the lnwire.Message interface.
func (o *OpenCommitSig) MaxPayloadLength() uint32 {
	// 32 + (4 length prefix + 64 max sig bytes) + 32 + (2 count prefix + 64 hashes)
	return 32 + 68 + 32 + 2 + 64*32
}
