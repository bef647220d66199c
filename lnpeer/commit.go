package lnpeer

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// TriggerCommit forces an immediate commit cycle, bypassing the batching
// timer. Production traffic normally relies on armCommitTimer; this is for
// hosts or tests that need deterministic control over when a commit is
// proposed.
func (e *ChannelEngine) TriggerCommit() error {
	_, err := do(e, func(e *ChannelEngine) (struct{}, error) {
		return struct{}{}, e.triggerCommit()
	})
	return err
}

// triggerCommit implements spec.md §4.4's trigger_commit and the "sending
// UpdateCommit" steps of §4.4: builds a new remote.commit snapshot from
// remote.staging_cstate, signs it for the counterparty, and enqueues
// UpdateCommit. A no-op, not an error, if nothing has changed since the
// last commit — firing the timer twice in a row with no intervening state
// change must emit exactly one UpdateCommit (spec.md §8 property 9). Also a
// no-op if the counterparty's revocation window is exhausted: remote's
// chain can only build as far ahead as the hashes it has pre-disclosed
// (spec.md §11), and the timer will fire again once more arrive.
func (e *ChannelEngine) triggerCommit() error {
	ci, err := e.remote.BuildCommitFromWindow()
	if err != nil {
		if err == lnwallet.ErrEmptyCommit || err == lnwallet.ErrNoRevocationWindow {
			return nil
		}
		return err
	}

	tx, err := e.buildCommitTx(ci, lnchannel.Theirs)
	if err != nil {
		return err
	}
	ci.Tx = tx

	sig, err := e.signer.SignTheirCommit(tx)
	if err != nil {
		return err
	}

	return e.transport.Send(&lnwire.UpdateCommit{
		ChanID:    e.chanID,
		CommitSig: sig,
	})
}

// acceptPktCommit handles an inbound UpdateCommit (spec.md §4.4, "receiving
// UpdateCommit"): mirrors construction against local.staging_cstate,
// verifies the attached signature, advances local.commit to the new tip,
// draws the next revocation hash for the commitment after it, and replies
// with our own UpdateRevocation for the commitment this one supersedes.
func (e *ChannelEngine) acceptPktCommit(msg *lnwire.UpdateCommit) error {
	if e.fsm.state != StateNormal {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "commit outside NORMAL")
	}

	ci, err := e.local.BuildCommit(e.local.NextRevocationHash)
	if err != nil {
		if err == lnwallet.ErrEmptyCommit {
			return e.raiseProtocolError(lnchannel.ErrEmptyCommit, "commit carried no new changes")
		}
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}

	tx, err := e.buildCommitTx(ci, lnchannel.Ours)
	if err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}
	ci.Tx = tx

	if err := e.signer.VerifyCommitSig(tx, msg.CommitSig, e.theirOffer.CommitKey); err != nil {
		return e.raiseProtocolError(lnchannel.ErrBadSignature, err.Error())
	}
	ci.RemoteSig = msg.CommitSig

	nextHash, err := e.signer.RevocationHash(ci.CommitNum + 1)
	if err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}
	e.local.NextRevocationHash = *nextHash

	if err := e.sendRevocation(); err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}
	return e.persist()
}

// sendRevocation implements spec.md §4.4's "sending UpdateRevocation":
// local.commit has just advanced, so the commitment it superseded is
// retired by revealing its preimage. The changes that commitment carried
// already live on both staging_cstates (stageBothSides applies every
// add/fulfill/fail to both views the moment it is accepted, spec.md §8
// property 7), so retiring prev here is pure bookkeeping — discarding a
// list nothing will replay again. A no-op when the new tip is commit_num 0
// — there is nothing to revoke yet.
func (e *ChannelEngine) sendRevocation() error {
	prev := e.local.Tip.Prev
	if prev == nil {
		return nil
	}

	preimage, err := e.signer.RevocationPreimage(prev.CommitNum)
	if err != nil {
		return err
	}
	if chainhash.Hash(sha256Of(*preimage)) != prev.RevocationHash {
		return fmt.Errorf("derived preimage for commit_num %d does not match its revocation_hash",
			prev.CommitNum)
	}

	if err := e.transport.Send(&lnwire.UpdateRevocation{
		ChanID:             e.chanID,
		Preimage:           *preimage,
		NextRevocationHash: [32]byte(e.local.NextRevocationHash),
	}); err != nil {
		return err
	}

	prev.UnackedChanges = nil
	return nil
}

// acceptPktRevocation handles an inbound UpdateRevocation (spec.md §4.4,
// "receiving UpdateRevocation"): verifies the preimage retires remote's
// previous tip, stores it in the revocation ladder, and records the
// counterparty's next revocation hash. The changes that commitment carried
// are already reflected on both staging_cstates (see sendRevocation), so
// there is nothing left to replay here.
func (e *ChannelEngine) acceptPktRevocation(msg *lnwire.UpdateRevocation) error {
	if e.fsm.state != StateNormal {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "revocation outside NORMAL")
	}

	ci := e.remote.Tip.Prev
	if ci == nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "revocation with no commitment to retire")
	}

	if chainhash.Hash(sha256Of(msg.Preimage)) != ci.RevocationHash {
		return e.raiseProtocolError(lnchannel.ErrBadPreimage, "preimage does not match revocation_hash")
	}

	preimage := chainhash.Hash(msg.Preimage)
	if err := e.ladder.Insert(ci.CommitNum, preimage); err != nil {
		return e.raiseProtocolError(lnchannel.ErrShachainBreak, err.Error())
	}

	ci.Revoke(preimage)
	e.remote.PushRevocationHashes(chainhash.Hash(msg.NextRevocationHash))

	// Changes held back by an exhausted window can be committed now.
	if len(e.remote.Pending()) > 0 {
		e.armCommitTimer()
	}

	return e.persist()
}
