package lnpeer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// closeNegotiation tracks the mutual-close fee negotiation of spec.md §4.7,
// named by engine.go's closeState field.
type closeNegotiation struct {
	ourScript   []byte
	theirScript []byte

	ourFeeSat   int64
	theirFeeSat int64

	initiator bool
}

// BeginClearing starts the mutual-close handshake (spec.md §4.4,
// begin_clearing): derives our delivery script and emits CloseClearing.
// CLEARING is entered once both sides have exchanged scripts and every
// HTLC has drained.
func (e *ChannelEngine) BeginClearing() error {
	_, err := do(e, func(e *ChannelEngine) (struct{}, error) {
		return struct{}{}, e.beginClearing()
	})
	return err
}

func (e *ChannelEngine) beginClearing() error {
	if e.fsm.state != StateNormal {
		return fmt.Errorf("begin_clearing illegal in state %s", e.fsm.state)
	}

	script, err := e.ourDeliveryScript()
	if err != nil {
		return err
	}
	e.closeState = &closeNegotiation{ourScript: script, initiator: true}

	return e.transport.Send(&lnwire.CloseClearing{ChanID: e.chanID, Script: script})
}

// ourDeliveryScript derives our mutual-close delivery script via TxBuilder:
// P2SH(redeem(finalkey)) per spec.md §4.4.
func (e *ChannelEngine) ourDeliveryScript() ([]byte, error) {
	redeem, err := e.txBuilder.RedeemSingle(e.ourOffer.FinalKey)
	if err != nil {
		return nil, err
	}
	addr, err := e.txBuilder.P2SH(redeem)
	if err != nil {
		return nil, err
	}
	return addr.ScriptAddress(), nil
}

// acceptPktCloseClearing handles an inbound CloseClearing: records the
// counterparty's delivery script, replies with our own if we haven't
// already, and enters CLEARING once both scripts are known and every HTLC
// has drained.
func (e *ChannelEngine) acceptPktCloseClearing(msg *lnwire.CloseClearing) error {
	if e.fsm.state != StateNormal && e.fsm.state != StateClearing {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "close_clearing outside NORMAL/CLEARING")
	}

	if e.closeState == nil {
		e.closeState = &closeNegotiation{initiator: false}
	}
	e.closeState.theirScript = msg.Script

	if e.closeState.ourScript == nil {
		script, err := e.ourDeliveryScript()
		if err != nil {
			return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
		}
		e.closeState.ourScript = script
		if err := e.transport.Send(&lnwire.CloseClearing{ChanID: e.chanID, Script: script}); err != nil {
			return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
		}
	}

	return e.maybeEnterClearing()
}

// maybeEnterClearing transitions NORMAL -> CLEARING once both delivery
// scripts are known and no HTLC remains staged on either side, then
// proposes our first CloseSignature.
func (e *ChannelEngine) maybeEnterClearing() error {
	if e.fsm.state != StateNormal {
		return nil
	}
	if e.closeState == nil || e.closeState.ourScript == nil || e.closeState.theirScript == nil {
		return nil
	}
	if e.local.Staging.NumHtlcs() > 0 || e.remote.Staging.NumHtlcs() > 0 {
		return nil
	}

	if err := e.fsm.transition(StateClearing); err != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
	}

	e.closeState.ourFeeSat = int64(lnwallet.ExpectedFee(e.local.Tip.State.FeePerKw, 0))
	return e.proposeCloseSignature()
}

// proposeCloseSignature builds the close transaction at our currently
// proposed fee, signs it, and emits CloseSignature (spec.md §4.7: "The
// engine emits its own signed close_tx proposal on every change of
// our_fee").
func (e *ChannelEngine) proposeCloseSignature() error {
	state := e.local.Tip.State
	ourBalSat := btcutil.Amount(state.Balance[lnchannel.Ours] / 1000)
	theirBalSat := btcutil.Amount(state.Balance[lnchannel.Theirs] / 1000)

	fee := btcutil.Amount(e.closeState.ourFeeSat)
	if state.FunderSide == lnchannel.Ours {
		ourBalSat -= fee
	} else {
		theirBalSat -= fee
	}

	tx, err := e.txBuilder.CreateCloseTx(e.anchor.Outpoint, ourBalSat, theirBalSat,
		e.dustLimit(), e.dustLimit(), e.closeState.ourScript, e.closeState.theirScript,
		e.closeState.initiator)
	if err != nil {
		return err
	}

	sig, err := e.signer.SignMutualClose(tx)
	if err != nil {
		return err
	}

	return e.transport.Send(&lnwire.CloseSignature{
		ChanID:      e.chanID,
		FeeSatoshis: e.closeState.ourFeeSat,
		Signature:   sig,
	})
}

// acceptPktCloseSignature handles an inbound CloseSignature, implementing
// spec.md §4.7's iterative convergence: the side with the lower proposed
// fee raises its own proposal to the midpoint, while the side already
// holding the higher proposal holds it and waits, until the two either
// match exactly or land within config.CloseFeeTolerance, at which point
// the mutual close is finalized and CLOSED is entered.
func (e *ChannelEngine) acceptPktCloseSignature(msg *lnwire.CloseSignature) error {
	if e.fsm.state != StateClearing && e.fsm.state != StateCloseWaitSig {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "close_signature outside CLEARING/CLOSE_WAIT_SIG")
	}
	if e.closeState == nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "close_signature before clearing")
	}

	if e.fsm.state == StateClearing {
		if err := e.fsm.transition(StateCloseWaitSig); err != nil {
			return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
		}
	}

	e.closeState.theirFeeSat = msg.FeeSatoshis

	diff := e.closeState.ourFeeSat - e.closeState.theirFeeSat
	if diff < 0 {
		diff = -diff
	}
	if diff <= int64(e.cfg.CloseFeeTolerance) {
		e.closeState.ourFeeSat = e.closeState.theirFeeSat
		if err := e.fsm.transition(StateClosed); err != nil {
			return e.raiseProtocolError(lnchannel.ErrUnexpected, err.Error())
		}
		return e.persist()
	}

	if e.closeState.ourFeeSat < e.closeState.theirFeeSat {
		e.closeState.ourFeeSat = (e.closeState.ourFeeSat + e.closeState.theirFeeSat) / 2
		return e.proposeCloseSignature()
	}

	// Our proposal is already the higher of the two: hold it and wait for
	// the counterparty to raise theirs, rather than re-proposing a fee
	// that didn't move the two sides any closer together.
	return nil
}
