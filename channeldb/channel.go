package channeldb

import (
	"bytes"

	"github.com/lightningnetwork/lnchannel/elkrem"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"go.etcd.io/bbolt"
)

// SyncChannel persists one channel's full state: both commitment chains,
// the revocation ladder tracking the counterparty's revealed preimages, the
// htlc_id_counter, and the anchor meta — the minimal persisted-state set
// spec.md §6.3 names, grounded on the teacher's channeldb persistence
// pattern (one bucket per channel, one key per concern) in
// channeldb/db.go.
func (d *DB) SyncChannel(peerID, chanID []byte, local, remote *lnwallet.SideView,
	ladder *elkrem.RevocationLadder, htlcIDCounter uint64, anchor *lnwallet.AnchorMeta) error {

	return d.Update(func(tx *bbolt.Tx) error {
		b, err := channelBucket(tx, peerID, chanID, true)
		if err != nil {
			return err
		}

		var localBuf bytes.Buffer
		if err := serializeCommitChain(&localBuf, local.Tip); err != nil {
			return err
		}
		if err := b.Put(keyLocalChain, localBuf.Bytes()); err != nil {
			return err
		}

		var remoteBuf bytes.Buffer
		if err := serializeCommitChain(&remoteBuf, remote.Tip); err != nil {
			return err
		}
		if err := b.Put(keyRemoteChain, remoteBuf.Bytes()); err != nil {
			return err
		}

		var localPendingBuf bytes.Buffer
		if err := serializePendingChanges(&localPendingBuf, local.Pending()); err != nil {
			return err
		}
		if err := b.Put(keyLocalPending, localPendingBuf.Bytes()); err != nil {
			return err
		}

		var remotePendingBuf bytes.Buffer
		if err := serializePendingChanges(&remotePendingBuf, remote.Pending()); err != nil {
			return err
		}
		if err := b.Put(keyRemotePending, remotePendingBuf.Bytes()); err != nil {
			return err
		}

		ladderBytes, err := ladder.ToBytes()
		if err != nil {
			return err
		}
		if err := b.Put(keyLadder, ladderBytes); err != nil {
			return err
		}

		var counterBuf bytes.Buffer
		putUint64(&counterBuf, htlcIDCounter)
		if err := b.Put(keyHtlcCounter, counterBuf.Bytes()); err != nil {
			return err
		}

		var anchorBuf bytes.Buffer
		if err := serializeAnchorMeta(&anchorBuf, anchor); err != nil {
			return err
		}
		return b.Put(keyAnchorMeta, anchorBuf.Bytes())
	})
}

// RestoreChannel reconstructs a channel's SideViews, revocation ladder,
// htlc_id_counter, and anchor meta from disk. Each SideView's Staging
// starts from its chain tip's State — the teacher's
// restoreCommitState/restoreStateLogs split reconstructs the same
// information by replaying unacked_changes onto a separately-persisted
// committed state, but since a CommitInfo's State here is already a
// complete post-change snapshot (not a delta), no separate replay step is
// needed there: the tip's State *is* the staging_cstate spec.md §6.3 calls
// for. What the tip's State does not capture is any application-layer
// change staged after the tip but before the next commit was built; those
// are persisted separately (SyncChannel's keyLocalPending/keyRemotePending)
// and replayed here via SideView.RestorePending, so a crash between a
// staged change and its commit loses nothing.
func (d *DB) RestoreChannel(peerID, chanID []byte) (local, remote *lnwallet.SideView,
	ladder *elkrem.RevocationLadder, htlcIDCounter uint64, anchor *lnwallet.AnchorMeta, err error) {

	err = d.View(func(tx *bbolt.Tx) error {
		b, err := channelBucket(tx, peerID, chanID, false)
		if err != nil {
			return err
		}

		localBytes := b.Get(keyLocalChain)
		localTip, err := deserializeCommitChain(bytes.NewReader(localBytes))
		if err != nil {
			return err
		}
		local = &lnwallet.SideView{Tip: localTip, Staging: localTip.State.Copy()}
		localPending, err := deserializePendingChanges(bytes.NewReader(b.Get(keyLocalPending)))
		if err != nil {
			return err
		}
		if err := local.RestorePending(localPending); err != nil {
			return err
		}

		remoteBytes := b.Get(keyRemoteChain)
		remoteTip, err := deserializeCommitChain(bytes.NewReader(remoteBytes))
		if err != nil {
			return err
		}
		remote = &lnwallet.SideView{Tip: remoteTip, Staging: remoteTip.State.Copy()}
		remotePending, err := deserializePendingChanges(bytes.NewReader(b.Get(keyRemotePending)))
		if err != nil {
			return err
		}
		if err := remote.RestorePending(remotePending); err != nil {
			return err
		}

		ladderBytes := b.Get(keyLadder)
		if ladderBytes == nil {
			return ErrNoLadder
		}
		ladder, err = elkrem.RevocationLadderFromBytes(ladderBytes)
		if err != nil {
			return err
		}

		counterBytes := b.Get(keyHtlcCounter)
		htlcIDCounter = getUint64(counterBytes)

		anchorBytes := b.Get(keyAnchorMeta)
		anchor, err = deserializeAnchorMeta(bytes.NewReader(anchorBytes))
		return err
	})
	return local, remote, ladder, htlcIDCounter, anchor, err
}
