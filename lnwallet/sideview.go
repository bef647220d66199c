package lnwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrEmptyCommit is returned by BuildCommit when no staged change has
// occurred since the chain tip, spec.md §4.4 step 1 ("never empty commit")
// and §8 property 6.
var ErrEmptyCommit = fmt.Errorf("empty commit: no staged changes since last commit")

// ErrNoRevocationWindow is returned by BuildCommitFromWindow when the
// counterparty has not pre-disclosed a revocation hash to build the next
// commitment against. Callers treat this as a stall, not a failure: once
// an UpdateRevocation extends the window, the build can be retried.
var ErrNoRevocationWindow = fmt.Errorf("revocation window exhausted: no pre-disclosed hash to build against")

// SideView is spec.md §3's per-side bookkeeping: {committed: CommitInfo
// chain tip, staging: ChannelState, next_revocation_hash, keys, locktime,
// fee rate, mindepth, offer_anchor flag}. One Peer (lnpeer.ChannelEngine)
// owns two: local (the chain we can unilaterally broadcast) and remote (the
// chain the counterparty can unilaterally broadcast).
type SideView struct {
	// Tip is the highest CommitInfo on this side's chain, or nil before
	// the first commitment is built.
	Tip *CommitInfo

	// Staging is "committed + all subsequently applied StagingChanges"
	// (spec.md §4.2) — the live, not-yet-committed projection of this
	// side's ChannelState.
	Staging *ChannelState

	// NextRevocationHash is the revocation hash this side has committed
	// to for the commitment after Tip, drawn from Signer ahead of time
	// (spec.md §4.4 step 3).
	NextRevocationHash chainhash.Hash

	CommitKey *btcec.PublicKey
	FinalKey  *btcec.PublicKey

	Locktime uint32
	FeeRate  btcutil.Amount
	MinDepth uint32

	// OfferAnchor is true if this side is the anchor funder.
	OfferAnchor bool

	// pending holds the StagingChanges applied to Staging since Tip was
	// built; it becomes the new CommitInfo's UnackedChanges the next
	// time BuildCommit runs, and is cleared in the same step.
	pending []StagingChange

	// revocationWindow holds revocation hashes the counterparty has
	// pre-disclosed for this chain's upcoming commitments, beyond the one
	// already in flight. BuildCommitFromWindow consumes it FIFO, which
	// bounds how many commits the proactive side may build ahead of the
	// counterparty's revocations (spec.md §11's pipelining window). Only
	// ever populated on a remote SideView; local chains derive their own
	// hashes on demand via NextRevocationHash instead.
	revocationWindow []chainhash.Hash
}

// NewSideView returns a SideView seeded with the channel's opening state.
func NewSideView(initial *ChannelState) *SideView {
	return &SideView{Staging: initial}
}

// Stage applies change to Staging and records it as part of the pending
// delta that will become the next CommitInfo's UnackedChanges, grounded on
// spec.md §4.2's "land immediately in ...staging_cstate ... appended to
// ...commit.unacked_changes" description. Every accepted change is staged
// on both of a channel's SideViews (lnpeer.stageBothSides), so whichever
// side next builds a commitment already has it in its own pending list.
func (sv *SideView) Stage(change StagingChange) error {
	next, err := change.Apply(sv.Staging)
	if err != nil {
		return err
	}
	sv.Staging = next
	sv.pending = append(sv.pending, change)
	return nil
}

// BuildCommit snapshots Staging into a fresh CommitInfo appended to Tip,
// keyed to revocationHash, and resets the pending-change buffer. Refuses to
// build an empty commit (spec.md §4.4 step 1, §8 property 6).
func (sv *SideView) BuildCommit(revocationHash chainhash.Hash) (*CommitInfo, error) {
	if sv.Tip != nil && sv.Staging.Changes == sv.Tip.State.Changes {
		return nil, ErrEmptyCommit
	}

	ci := NewCommitInfo(sv.Tip, revocationHash, sv.Staging.Copy(), sv.pending)
	sv.Tip = ci
	sv.pending = nil
	return ci, nil
}

// PushRevocationHashes extends the pipelining window with hashes the
// counterparty has pre-disclosed (via OpenCommitSig or UpdateRevocation)
// for this chain's next commitments.
func (sv *SideView) PushRevocationHashes(hashes ...chainhash.Hash) {
	sv.revocationWindow = append(sv.revocationWindow, hashes...)
}

// RevocationWindowLen reports how many pre-disclosed hashes remain
// unconsumed.
func (sv *SideView) RevocationWindowLen() int {
	return len(sv.revocationWindow)
}

// BuildCommitFromWindow is BuildCommit for a chain whose revocation hashes
// arrive pre-disclosed from the counterparty rather than being derived
// on-the-fly: it consumes the oldest entry in the pipelining window
// instead of taking a hash as an argument, returning ErrNoRevocationWindow
// once the window runs dry (spec.md §11).
func (sv *SideView) BuildCommitFromWindow() (*CommitInfo, error) {
	if len(sv.revocationWindow) == 0 {
		return nil, ErrNoRevocationWindow
	}
	if sv.Tip != nil && sv.Staging.Changes == sv.Tip.State.Changes {
		return nil, ErrEmptyCommit
	}

	hash := sv.revocationWindow[0]
	ci := NewCommitInfo(sv.Tip, hash, sv.Staging.Copy(), sv.pending)
	sv.Tip = ci
	sv.pending = nil
	sv.revocationWindow = sv.revocationWindow[1:]
	return ci, nil
}

// Pending returns the StagingChanges applied since Tip, so channeldb can
// persist them alongside the commitment chain and recover the staging
// buffer a crash left between the tip and the next commit.
func (sv *SideView) Pending() []StagingChange {
	return sv.pending
}

// RestorePending re-applies a previously-persisted list of pending changes
// onto Staging. Used by channeldb.RestoreChannel once Staging has been
// reset to Tip's snapshot, to replay the changes a crash interrupted
// before they reached a commit.
func (sv *SideView) RestorePending(changes []StagingChange) error {
	for _, change := range changes {
		if err := sv.Stage(change); err != nil {
			return err
		}
	}
	return nil
}
