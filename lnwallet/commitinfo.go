package lnwallet

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// CommitInfo is one node in a side's commitment chain, spec.md §3. Grounded
// on the teacher's commitment/commitmentChain pair in lnwallet/channel.go,
// collapsed into a single explicitly-owned singly-linked chain per §9's
// "cyclic pointer prev" redesign flag: Prev is a non-owning back-pointer,
// never traversed for ownership purposes.
type CommitInfo struct {
	// Prev points at the commitment this one supersedes, or nil for the
	// first commitment on the chain.
	Prev *CommitInfo

	// CommitNum is 0 for the first commitment, +1 per step (spec.md §8
	// property 3: strictly increments by 1 along the chain).
	CommitNum uint64

	// RevocationHash is the expected hash of the preimage that will
	// retire this commitment.
	RevocationHash chainhash.Hash

	// State is the ChannelState snapshot this commitment encodes.
	State *ChannelState

	// Tx is the built commitment transaction, opaque to this package
	// (produced by the host's TxBuilder).
	Tx *wire.MsgTx

	// RemoteSig is the counterparty's signature authorizing Tx, set once
	// received via UpdateCommit.
	RemoteSig []byte

	// RevocationPreimage is set once the counterparty reveals it (via
	// UpdateRevocation superseding this commitment); never unset once
	// set.
	RevocationPreimage *chainhash.Hash

	// UnackedChanges are the StagingChanges introduced since Prev that
	// produced this commitment, kept for persistence/audit until the
	// commitment is revoked (spec.md §4.2); they are never replayed from
	// here since stageBothSides already applied them to both SideViews
	// the moment they were accepted.
	UnackedChanges []StagingChange
}

// NewCommitInfo constructs the next commitment in a chain, deriving
// CommitNum from prev (0 if prev is nil).
func NewCommitInfo(prev *CommitInfo, revocationHash chainhash.Hash, state *ChannelState, unacked []StagingChange) *CommitInfo {
	var num uint64
	if prev != nil {
		num = prev.CommitNum + 1
	}
	return &CommitInfo{
		Prev:           prev,
		CommitNum:      num,
		RevocationHash: revocationHash,
		State:          state,
		UnackedChanges: unacked,
	}
}

// IsRevoked reports whether the counterparty has already revealed the
// preimage retiring this commitment.
func (c *CommitInfo) IsRevoked() bool {
	return c.RevocationPreimage != nil
}

// Revoke stores the revealed preimage and discards the unacked-changes
// list: the changes it named were already staged onto both SideViews when
// they were first accepted (lnpeer.stageBothSides), so nothing replays them
// here, but retiring the list keeps a revoked CommitInfo's footprint
// minimal.
func (c *CommitInfo) Revoke(preimage chainhash.Hash) {
	p := preimage
	c.RevocationPreimage = &p
	c.UnackedChanges = nil
}
