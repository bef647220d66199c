package channeldb

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/elkrem"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSyncAndRestoreChannel covers spec.md §6.3: a crash-restart must be
// able to reconstruct both commitment chains, the revocation ladder, the
// htlc_id_counter, and the anchor meta.
func TestSyncAndRestoreChannel(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	peerID := []byte("peer-01")
	chanID := []byte("chan-01")

	localState := lnwallet.NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	localSV := lnwallet.NewSideView(localState)
	htlc := lnwallet.ChannelHtlc{ID: 0, OfferedBy: lnchannel.Ours, AmountMsat: 1000, Expiry: 1893456000}
	require.NoError(t, localSV.Stage(lnwallet.NewAddChange(htlc)))
	_, err := localSV.BuildCommit(chainhash.HashH([]byte("rh-local-0")))
	require.NoError(t, err)

	remoteState := lnwallet.NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	remoteSV := lnwallet.NewSideView(remoteState)
	_, err = remoteSV.BuildCommit(chainhash.HashH([]byte("rh-remote-0")))
	require.NoError(t, err)

	sender := elkrem.NewElkremSender(chainhash.HashH([]byte("root")))
	ladder := elkrem.NewRevocationLadder()
	p0, err := sender.AtIndex(0)
	require.NoError(t, err)
	require.NoError(t, ladder.Insert(0, *p0))

	anchor := &lnwallet.AnchorMeta{
		Outpoint:     wire.OutPoint{Hash: chainhash.HashH([]byte("anchor")), Index: 0},
		CapacitySat:  1000,
		FunderSide:   lnchannel.Ours,
		DelaySeconds: 144 * 600,
		DustLimit:    546,
	}

	require.NoError(t, db.SyncChannel(peerID, chanID, localSV, remoteSV, ladder, 1, anchor))

	rLocal, rRemote, rLadder, counter, rAnchor, err := db.RestoreChannel(peerID, chanID)
	require.NoError(t, err)

	require.Equal(t, uint64(0), rLocal.Tip.CommitNum)
	require.Len(t, rLocal.Staging.Htlcs[lnchannel.Ours], 1)
	require.Equal(t, uint64(0), rRemote.Tip.CommitNum)
	require.Equal(t, uint64(1), counter)
	require.Equal(t, anchor.CapacitySat, rAnchor.CapacitySat)
	require.Equal(t, anchor.Outpoint, rAnchor.Outpoint)

	derived, err := rLadder.Derive(0)
	require.NoError(t, err)
	require.Equal(t, *p0, *derived)
}

// TestSyncAndRestoreChannelPendingChanges covers the case RestoreChannel's
// own doc comment calls out: a change staged after the chain tip but before
// the next commit was built must survive a restart, not just the tip.
func TestSyncAndRestoreChannelPendingChanges(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	peerID := []byte("peer-02")
	chanID := []byte("chan-02")

	localState := lnwallet.NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	localSV := lnwallet.NewSideView(localState)
	_, err := localSV.BuildCommit(chainhash.HashH([]byte("rh-local-0")))
	require.NoError(t, err)

	htlc := lnwallet.ChannelHtlc{ID: 7, OfferedBy: lnchannel.Ours, AmountMsat: 2000, Expiry: 1893456000}
	require.NoError(t, localSV.Stage(lnwallet.NewAddChange(htlc)))

	remoteState := lnwallet.NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	remoteSV := lnwallet.NewSideView(remoteState)
	_, err = remoteSV.BuildCommit(chainhash.HashH([]byte("rh-remote-0")))
	require.NoError(t, err)

	ladder := elkrem.NewRevocationLadder()
	anchor := &lnwallet.AnchorMeta{
		Outpoint:    wire.OutPoint{Hash: chainhash.HashH([]byte("anchor-2")), Index: 0},
		CapacitySat: 1000,
		FunderSide:  lnchannel.Ours,
		DustLimit:   546,
	}

	require.NoError(t, db.SyncChannel(peerID, chanID, localSV, remoteSV, ladder, 0, anchor))

	rLocal, _, _, _, _, err := db.RestoreChannel(peerID, chanID)
	require.NoError(t, err)

	// Tip itself still has no HTLCs: the add was only ever staged.
	require.Len(t, rLocal.Tip.State.Htlcs[lnchannel.Ours], 0)
	// But Staging reflects the replayed pending change.
	require.Len(t, rLocal.Staging.Htlcs[lnchannel.Ours], 1)
	require.Equal(t, htlc.ID, rLocal.Staging.Htlcs[lnchannel.Ours][0].ID)
}

func TestRestoreChannelMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, _, _, _, _, err := db.RestoreChannel([]byte("nope"), []byte("nope"))
	require.ErrorIs(t, err, ErrChannelNotFound)
}
