package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/stretchr/testify/require"
)

func TestBuildCommitRejectsEmpty(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	sv := NewSideView(s)

	_, err := sv.BuildCommit(chainhash.HashH([]byte("rh-0")))
	require.NoError(t, err, "first commit is never empty even with no staged changes")

	_, err = sv.BuildCommit(chainhash.HashH([]byte("rh-1")))
	require.ErrorIs(t, err, ErrEmptyCommit)
}

func TestBuildCommitCarriesUnackedChanges(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	sv := NewSideView(s)

	htlc := testHtlc(0, lnchannel.Ours, 1000)
	require.NoError(t, sv.Stage(NewAddChange(htlc)))

	ci, err := sv.BuildCommit(chainhash.HashH([]byte("rh-0")))
	require.NoError(t, err)
	require.Len(t, ci.UnackedChanges, 1)
	require.Equal(t, ChangeAdd, ci.UnackedChanges[0].Kind)

	// pending resets: a second commit with no new stage is empty.
	_, err = sv.BuildCommit(chainhash.HashH([]byte("rh-1")))
	require.ErrorIs(t, err, ErrEmptyCommit)
}

func TestBuildCommitFromWindow(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	sv := NewSideView(s)

	_, err := sv.BuildCommitFromWindow()
	require.ErrorIs(t, err, ErrNoRevocationWindow)

	sv.PushRevocationHashes(chainhash.HashH([]byte("rh-0")), chainhash.HashH([]byte("rh-1")))
	require.Equal(t, 2, sv.RevocationWindowLen())

	ci, err := sv.BuildCommitFromWindow()
	require.NoError(t, err)
	require.Equal(t, uint64(0), ci.CommitNum)
	require.Equal(t, 1, sv.RevocationWindowLen())

	// Nothing staged since: the window still has a hash, but there is no
	// new change to commit.
	_, err = sv.BuildCommitFromWindow()
	require.ErrorIs(t, err, ErrEmptyCommit)

	htlc := testHtlc(0, lnchannel.Ours, 1000)
	require.NoError(t, sv.Stage(NewAddChange(htlc)))

	ci, err = sv.BuildCommitFromWindow()
	require.NoError(t, err)
	require.Equal(t, uint64(1), ci.CommitNum)
	require.Equal(t, 0, sv.RevocationWindowLen())

	require.NoError(t, sv.Stage(NewAddChange(testHtlc(1, lnchannel.Ours, 1000))))
	_, err = sv.BuildCommitFromWindow()
	require.ErrorIs(t, err, ErrNoRevocationWindow)
}

func TestPendingAndRestorePending(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	sv := NewSideView(s)

	htlc := testHtlc(0, lnchannel.Ours, 1000)
	require.NoError(t, sv.Stage(NewAddChange(htlc)))
	require.Len(t, sv.Pending(), 1)

	saved := sv.Pending()

	restored := NewSideView(s.Copy())
	require.NoError(t, restored.RestorePending(saved))
	require.Len(t, restored.Staging.Htlcs[lnchannel.Ours], 1)
	require.Equal(t, htlc.ID, restored.Staging.Htlcs[lnchannel.Ours][0].ID)
}

// TestStageAppliesToBothTargets covers spec.md §8 property 7: staging
// equals committed + every accepted change on each side. lnpeer's
// stageBothSides applies a single StagingChange value to two independent
// SideViews; this checks that Stage applied twice (once per SideView)
// against otherwise-identical starting states lands the same HTLC on both,
// independent of each view's own commit history.
func TestStageAppliesToBothTargets(t *testing.T) {
	t.Parallel()

	remoteState := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	remote := NewSideView(remoteState)

	localState := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	local := NewSideView(localState)

	htlc := testHtlc(0, lnchannel.Ours, 1000)
	change := NewAddChange(htlc)

	require.NoError(t, remote.Stage(change))
	require.NoError(t, local.Stage(change))

	require.Len(t, remote.Staging.Htlcs[lnchannel.Ours], 1)
	require.Len(t, local.Staging.Htlcs[lnchannel.Ours], 1)
	require.Equal(t, remote.Staging.Htlcs[lnchannel.Ours][0].ID, htlc.ID)
	require.Equal(t, local.Staging.Htlcs[lnchannel.Ours][0].ID, htlc.ID)
}
