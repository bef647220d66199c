package lnpeer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// Open begins the handshake of spec.md §4.3/§4.4: allocates a pending
// channel id, records our offer, and emits Open. Legal only from StateInit.
func (e *ChannelEngine) Open(offer AnchorOffer) error {
	_, err := do(e, func(e *ChannelEngine) (struct{}, error) {
		return struct{}{}, e.open(offer)
	})
	return err
}

func (e *ChannelEngine) open(offer AnchorOffer) error {
	if offer.InitialFeeRate < e.cfg.CommitmentFeeRateMin {
		return fmt.Errorf("initial_fee_rate %d below configured minimum %d",
			offer.InitialFeeRate, e.cfg.CommitmentFeeRateMin)
	}
	if offer.MinDepth > e.cfg.AnchorConfirmsMax {
		return fmt.Errorf("min_depth %d above configured maximum %d",
			offer.MinDepth, e.cfg.AnchorConfirmsMax)
	}
	if offer.DelaySeconds > e.cfg.RelLocktimeMax {
		return fmt.Errorf("delay_seconds %d above configured maximum %d",
			offer.DelaySeconds, e.cfg.RelLocktimeMax)
	}

	var idBuf [8]byte
	if _, err := e.rng.Read(idBuf[:]); err != nil {
		return err
	}
	e.pendingChanID = uint64(idBuf[0])<<56 | uint64(idBuf[1])<<48 |
		uint64(idBuf[2])<<40 | uint64(idBuf[3])<<32 |
		uint64(idBuf[4])<<24 | uint64(idBuf[5])<<16 |
		uint64(idBuf[6])<<8 | uint64(idBuf[7])

	e.ourOffer = &offer

	if err := e.transport.Send(&lnwire.Open{
		PendingChannelID: e.pendingChanID,
		InitialFeeRate:   offer.InitialFeeRate,
		MinDepth:         offer.MinDepth,
		DelaySeconds:     offer.DelaySeconds,
		DustLimit:        offer.DustLimit,
		CommitKey:        offer.CommitKey,
		FinalKey:         offer.FinalKey,
		WillCreateAnchor: offer.WillCreateAnchor,
	}); err != nil {
		return err
	}

	return e.fsm.transition(StateOpenWaitForOpen)
}

// acceptPktOpen handles an inbound Open, validating the field-level
// contracts of spec.md §6.1. Receiving an Open while still in StateInit
// (the counterparty offered first) moves us straight to
// OPEN_WAIT_FOR_OPEN before advancing, since spec.md §4.3 allows either
// side to move the handshake along first.
func (e *ChannelEngine) acceptPktOpen(msg *lnwire.Open) error {
	if msg.InitialFeeRate < e.cfg.CommitmentFeeRateMin {
		return e.raiseProtocolError(lnchannel.ErrMalformedField, "initial_fee_rate below minimum")
	}
	if msg.MinDepth > e.cfg.AnchorConfirmsMax {
		return e.raiseProtocolError(lnchannel.ErrMalformedField, "min_depth above maximum")
	}
	if msg.DelaySeconds > e.cfg.RelLocktimeMax {
		return e.raiseProtocolError(lnchannel.ErrMalformedField, "delay_seconds above maximum")
	}
	if e.ourOffer != nil && e.ourOffer.WillCreateAnchor == msg.WillCreateAnchor {
		return e.raiseProtocolError(lnchannel.ErrMalformedField,
			"exactly one side must announce will_create_anchor")
	}

	if e.fsm.state == StateInit {
		if err := e.fsm.transition(StateOpenWaitForOpen); err != nil {
			return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
		}
	}
	if e.fsm.state != StateOpenWaitForOpen {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "open arrived outside OPEN_WAIT_FOR_OPEN")
	}

	e.theirOffer = msg
	e.pendingChanID = msg.PendingChannelID

	return e.fsm.transition(StateOpenWaitForAnchor)
}

// ProvideAnchor supplies the funder's settled anchor inputs (spec.md §4.4,
// provide_anchor), builds both sides' first commitment via TxBuilder, and
// emits OpenAnchor followed by our OpenCommitSig.
func (e *ChannelEngine) ProvideAnchor(input AnchorInput) error {
	_, err := do(e, func(e *ChannelEngine) (struct{}, error) {
		return struct{}{}, e.provideAnchor(input)
	})
	return err
}

func (e *ChannelEngine) provideAnchor(input AnchorInput) error {
	if e.fsm.state != StateOpenWaitForAnchor {
		return fmt.Errorf("provide_anchor illegal in state %s", e.fsm.state)
	}

	ourRevHash, err := e.signer.RevocationHash(0)
	if err != nil {
		return err
	}

	e.anchor = &lnwallet.AnchorMeta{
		Outpoint:     input.Outpoint,
		CapacitySat:  input.CapacitySat,
		FunderSide:   lnchannel.Ours,
		DelaySeconds: e.ourOffer.DelaySeconds,
		DustLimit:    minAmount(e.ourOffer.DustLimit, e.theirOffer.DustLimit),
	}
	e.chanID = lnwire.NewChannelID(input.Outpoint)

	if err := e.setupFirstCommit(input.PushMsat, *ourRevHash); err != nil {
		return err
	}

	// remote.Tip isn't built yet: it needs the counterparty's own first
	// revocation hash, which only arrives with their OpenCommitSig
	// (acceptPktOpenCommitSig finishes the job once that's in hand).
	return e.transport.Send(&lnwire.OpenAnchor{
		PendingChannelID:    e.pendingChanID,
		AnchorOutpoint:      input.Outpoint,
		CapacitySat:         int64(input.CapacitySat),
		PushMsat:            input.PushMsat,
		FirstRevocationHash: *ourRevHash,
	})
}

// acceptPktAnchor handles the non-funder's receipt of OpenAnchor: it learns
// the anchor's final shape and the funder's first revocation hash, builds
// both sides' first commitment, and replies with its own OpenCommitSig.
func (e *ChannelEngine) acceptPktAnchor(msg *lnwire.OpenAnchor) error {
	if e.fsm.state != StateOpenWaitForAnchor {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "anchor arrived outside OPEN_WAIT_FOR_ANCHOR")
	}

	ourRevHash, err := e.signer.RevocationHash(0)
	if err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}

	e.anchor = &lnwallet.AnchorMeta{
		Outpoint:     msg.AnchorOutpoint,
		CapacitySat:  btcutil.Amount(msg.CapacitySat),
		FunderSide:   lnchannel.Theirs,
		DelaySeconds: e.theirOffer.DelaySeconds,
		DustLimit:    minAmount(e.ourOffer.DustLimit, e.theirOffer.DustLimit),
	}
	e.chanID = lnwire.NewChannelID(msg.AnchorOutpoint)

	// remote.Tip (their broadcastable commitment) is keyed to their
	// disclosed first revocation hash; our own local.Tip is keyed to a
	// hash only we know yet, exchanged in our reply below.
	if err := e.setupFirstCommitWithRemoteRevHash(msg.PushMsat, *ourRevHash, msg.FirstRevocationHash); err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}

	if err := e.fsm.transition(StateOpenWaitForCommitSig); err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}

	return e.sendOpenCommitSig(*ourRevHash)
}

// setupFirstCommit is the funder's path: our own first revocation hash is
// ready, the counterparty's arrives later via their OpenCommitSig, so
// remote.Tip is built once that arrives (acceptPktOpenCommitSig).
func (e *ChannelEngine) setupFirstCommit(pushMsat lnwire.MilliSatoshi, ourRevHash chainhash.Hash) error {
	initial := lnwallet.NewChannelStateWithLimit(e.anchor.CapacitySat, e.anchor.FunderSide,
		btcutil.Amount(e.ourOffer.InitialFeeRate), e.cfg.MaxHtlcsPerSide)
	if pushMsat > 0 {
		initial.Balance[lnchannel.Ours] -= pushMsat
		initial.Balance[lnchannel.Theirs] += pushMsat
	}

	e.local = lnwallet.NewSideView(initial.Copy())
	e.remote = lnwallet.NewSideView(initial.Copy())

	if _, err := e.local.BuildCommit(ourRevHash); err != nil {
		return err
	}

	return e.fsm.transition(StateOpenWaitForCommitSig)
}

// setupFirstCommitWithRemoteRevHash is the non-funder's path: both
// revocation hashes are already known, so both Tips are built in one step.
func (e *ChannelEngine) setupFirstCommitWithRemoteRevHash(pushMsat lnwire.MilliSatoshi,
	ourRevHash, theirRevHash chainhash.Hash) error {

	initial := lnwallet.NewChannelStateWithLimit(e.anchor.CapacitySat, e.anchor.FunderSide,
		btcutil.Amount(e.theirOffer.InitialFeeRate), e.cfg.MaxHtlcsPerSide)
	if pushMsat > 0 {
		initial.Balance[lnchannel.Ours] += pushMsat
		initial.Balance[lnchannel.Theirs] -= pushMsat
	}

	e.local = lnwallet.NewSideView(initial.Copy())
	e.remote = lnwallet.NewSideView(initial.Copy())

	if _, err := e.local.BuildCommit(ourRevHash); err != nil {
		return err
	}
	if _, err := e.remote.BuildCommit(theirRevHash); err != nil {
		return err
	}
	return nil
}

// sendOpenCommitSig builds remote.Tip (if not already built), signs it via
// the host Signer, and emits OpenCommitSig carrying our own first
// revocation hash plus cfg.InitialRevocations pre-extended hashes
// (commit_num 1..InitialRevocations), so the counterparty can build that
// many of our chain's commitments ahead, without waiting on a revocation
// round-trip that can't happen yet (there is nothing to revoke at
// commit_num 0).
func (e *ChannelEngine) sendOpenCommitSig(ourRevHash chainhash.Hash) error {
	if e.remote.Tip == nil {
		return fmt.Errorf("remote commitment not yet built")
	}

	tx, err := e.buildCommitTx(e.remote.Tip, lnchannel.Theirs)
	if err != nil {
		return err
	}
	e.remote.Tip.Tx = tx

	sig, err := e.signer.SignTheirCommit(tx)
	if err != nil {
		return err
	}

	window := e.cfg.InitialRevocations
	if window < 1 {
		window = 1
	}
	nextHashes := make([]chainhash.Hash, window)
	for i := 0; i < window; i++ {
		h, err := e.signer.RevocationHash(uint64(i + 1))
		if err != nil {
			return err
		}
		nextHashes[i] = *h
	}
	e.local.NextRevocationHash = nextHashes[0]

	return e.transport.Send(&lnwire.OpenCommitSig{
		ChanID:               e.chanID,
		CommitSig:            sig,
		FirstRevocationHash:  ourRevHash,
		NextRevocationHashes: nextHashes,
	})
}

// acceptPktOpenCommitSig handles the counterparty's signature over our own
// first commitment. For the funder this is also the first time the
// counterparty's revocation hash is known, so remote.Tip is built here.
func (e *ChannelEngine) acceptPktOpenCommitSig(msg *lnwire.OpenCommitSig) error {
	switch e.fsm.state {
	case StateOpenWaitForCommitSig:
		if e.remote.Tip == nil {
			if _, err := e.remote.BuildCommit(msg.FirstRevocationHash); err != nil {
				return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
			}
			if err := e.sendOpenCommitSig(e.local.Tip.RevocationHash); err != nil {
				return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
			}
		}
		e.remote.PushRevocationHashes(msg.NextRevocationHashes...)

		tx, err := e.buildCommitTx(e.local.Tip, lnchannel.Ours)
		if err != nil {
			return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
		}
		e.local.Tip.Tx = tx
		e.local.Tip.RemoteSig = msg.CommitSig

		if err := e.fsm.transition(StateOpenWaitForComplete); err != nil {
			return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
		}
		return e.transport.Send(&lnwire.OpenComplete{ChanID: e.chanID})

	default:
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "open_commit_sig outside handshake")
	}
}

// acceptPktOpenComplete finalizes the handshake once both sides have a
// fully signed first commitment (spec.md §4.3, OPEN_WAIT_FOR_COMPLETE →
// NORMAL).
func (e *ChannelEngine) acceptPktOpenComplete(msg *lnwire.OpenComplete) error {
	if e.fsm.state != StateOpenWaitForComplete {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "open_complete outside OPEN_WAIT_FOR_COMPLETE")
	}
	if err := e.fsm.transition(StateNormal); err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}
	return e.persist()
}

// buildCommitTx lays out a CommitInfo's transaction via TxBuilder, using
// the live Staging balances/HTLC set it was built from.
func (e *ChannelEngine) buildCommitTx(ci *lnwallet.CommitInfo, forSide lnchannel.Side) (*wire.MsgTx, error) {
	state := ci.State
	keys := e.commitmentKeys()

	htlcs := make([]lnchannel.HtlcOutput, 0, state.NumHtlcs())
	for _, side := range []lnchannel.Side{lnchannel.Ours, lnchannel.Theirs} {
		for _, h := range state.Htlcs[side] {
			incoming := side != forSide
			if lnwallet.HtlcIsDust(incoming, forSide == lnchannel.Ours, state.FeePerKw,
				btcutil.Amount(h.AmountMsat/1000), e.anchor.DustLimit) {
				continue
			}
			htlcs = append(htlcs, lnchannel.HtlcOutput{
				OfferedBy:  side,
				AmountMsat: uint64(h.AmountMsat),
				RHash:      h.RHash,
				Expiry:     h.Expiry,
			})
		}
	}

	return e.txBuilder.CreateCommitTx(keys, e.anchor.DelaySeconds, e.anchor.Outpoint,
		ci.RevocationHash, forSide,
		btcutil.Amount(state.Balance[lnchannel.Ours]/1000),
		btcutil.Amount(state.Balance[lnchannel.Theirs]/1000),
		e.anchor.DustLimit, htlcs)
}

// commitmentKeys assembles the CommitmentKeys a commitment transaction is
// built against. RevocationPoint is set to the counterparty's commit key:
// a placeholder for the full per-commitment revocation-key schedule, which
// lives behind the host's Signer/TxBuilder per spec.md §1's boundary — this
// engine never derives it itself.
func (e *ChannelEngine) commitmentKeys() lnchannel.CommitmentKeys {
	return lnchannel.CommitmentKeys{
		OurCommitKey:    e.ourOffer.CommitKey,
		TheirCommitKey:  e.theirOffer.CommitKey,
		OurFinalKey:     e.ourOffer.FinalKey,
		TheirFinalKey:   e.theirOffer.FinalKey,
		RevocationPoint: e.theirOffer.CommitKey,
	}
}

func minAmount(a, b btcutil.Amount) btcutil.Amount {
	if a < b {
		return a
	}
	return b
}

// dispatchPacket routes one inbound wire message to its accept_pkt_*
// handler (spec.md §4.4), returning either Accepted (nil) or the Error
// already emitted by the handler via raiseProtocolError.
func (e *ChannelEngine) dispatchPacket(pkt lnwire.Message) error {
	switch msg := pkt.(type) {
	case *lnwire.Open:
		return e.acceptPktOpen(msg)
	case *lnwire.OpenAnchor:
		return e.acceptPktAnchor(msg)
	case *lnwire.OpenCommitSig:
		return e.acceptPktOpenCommitSig(msg)
	case *lnwire.OpenComplete:
		return e.acceptPktOpenComplete(msg)
	case *lnwire.UpdateAddHtlc:
		return e.acceptPktHtlcAdd(msg)
	case *lnwire.UpdateFulfillHtlc:
		return e.acceptPktHtlcFulfill(msg)
	case *lnwire.UpdateFailHtlc:
		return e.acceptPktHtlcFail(msg)
	case *lnwire.UpdateCommit:
		return e.acceptPktCommit(msg)
	case *lnwire.UpdateRevocation:
		return e.acceptPktRevocation(msg)
	case *lnwire.CloseClearing:
		return e.acceptPktCloseClearing(msg)
	case *lnwire.CloseSignature:
		return e.acceptPktCloseSignature(msg)
	case *lnwire.ChanSync:
		return e.acceptPktChanSync(msg)
	case *lnwire.Error:
		e.fsm.breakdown()
		return fmt.Errorf("counterparty raised error: %s", msg.Problem)
	default:
		return e.raiseProtocolError(lnchannel.ErrMalformedField, "unrecognized packet type")
	}
}
