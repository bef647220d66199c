package lnpeer

import (
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// AddHtlc stages a new conditional payment (spec.md §4.4, add_htlc):
// assigns the next id, applies the change to both staging_cstates (spec.md
// §8 property 7: staging always equals committed + every accepted change,
// on each side), arms the commit timer, and enqueues UpdateAddHtlc. Local
// affordability/cap/id failures are returned directly to the caller and
// never touch the wire (spec.md §7, "local recoverable rejections").
func (e *ChannelEngine) AddHtlc(amountMsat lnwire.MilliSatoshi, expiry uint32, rhash [32]byte, route []byte) (uint64, error) {
	return do(e, func(e *ChannelEngine) (uint64, error) {
		return e.addHtlc(amountMsat, expiry, rhash, route)
	})
}

func (e *ChannelEngine) addHtlc(amountMsat lnwire.MilliSatoshi, expiry uint32, rhash [32]byte, route []byte) (uint64, error) {
	if e.fsm.state.IsClosing() || e.closeState != nil {
		return 0, lnchannel.ErrChannelClosing
	}

	id := e.htlcIDCounter
	htlc := lnwallet.ChannelHtlc{
		ID:         id,
		OfferedBy:  lnchannel.Ours,
		AmountMsat: amountMsat,
		RHash:      rhash,
		Expiry:     expiry,
		Route:      route,
	}

	if err := e.stageBothSides(lnwallet.NewAddChange(htlc)); err != nil {
		return 0, err
	}
	e.htlcIDCounter++

	if err := e.transport.Send(&lnwire.UpdateAddHtlc{
		ChanID:     e.chanID,
		ID:         id,
		AmountMsat: amountMsat,
		RHash:      rhash,
		Expiry:     uint64(expiry),
		Route:      route,
	}); err != nil {
		return 0, err
	}

	e.armCommitTimer()
	return id, nil
}

// acceptPktHtlcAdd applies a remote-origin Add to both staging_cstates
// (spec.md §4.2) and arms our own commit timer, since we now owe the
// counterparty a commitment on our own broadcastable chain reflecting it
// too. A violation here (duplicate id, cap, affordability) is attributable
// to the counterparty and therefore terminal, unlike the local add_htlc
// path.
func (e *ChannelEngine) acceptPktHtlcAdd(msg *lnwire.UpdateAddHtlc) error {
	if e.fsm.state != StateNormal {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "add_htlc outside NORMAL")
	}
	if e.closeState != nil {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "add_htlc after close_clearing")
	}
	if msg.AmountMsat == 0 {
		return e.raiseProtocolError(lnchannel.ErrMalformedField, "amount_msat must be positive")
	}

	htlc := lnwallet.ChannelHtlc{
		ID:         msg.ID,
		OfferedBy:  lnchannel.Theirs,
		AmountMsat: msg.AmountMsat,
		RHash:      msg.RHash,
		Expiry:     uint32(msg.Expiry),
		Route:      msg.Route,
	}

	if err := e.stageBothSides(lnwallet.NewAddChange(htlc)); err != nil {
		return e.raiseProtocolError(classifyStagingErr(err), err.Error())
	}
	e.armCommitTimer()
	return nil
}

// FulfillHtlc settles a previously added HTLC by revealing its preimage
// (spec.md §4.4). Must reference an HTLC present in the current committed
// state, not merely staging.
func (e *ChannelEngine) FulfillHtlc(id uint64, preimage [32]byte) error {
	_, err := do(e, func(e *ChannelEngine) (struct{}, error) {
		return struct{}{}, e.fulfillHtlc(id, preimage)
	})
	return err
}

func (e *ChannelEngine) fulfillHtlc(id uint64, preimage [32]byte) error {
	if e.fsm.state.IsClosing() {
		return lnchannel.ErrChannelClosing
	}
	if e.local.Tip.State.FindHtlc(id, lnchannel.Theirs) == -1 {
		return lnchannel.ErrLocalNotFound
	}

	if err := e.stageBothSides(lnwallet.NewFulfillChange(id, lnchannel.Theirs, preimage)); err != nil {
		return err
	}
	if err := e.transport.Send(&lnwire.UpdateFulfillHtlc{
		ChanID:          e.chanID,
		ID:              id,
		PaymentPreimage: preimage,
	}); err != nil {
		return err
	}

	e.armCommitTimer()
	return e.maybeEnterClearing()
}

// acceptPktHtlcFulfill applies a remote-origin Fulfill to both
// staging_cstates and arms our own commit timer (see acceptPktHtlcAdd).
func (e *ChannelEngine) acceptPktHtlcFulfill(msg *lnwire.UpdateFulfillHtlc) error {
	if e.fsm.state != StateNormal {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "fulfill_htlc outside NORMAL")
	}

	if err := e.stageBothSides(lnwallet.NewFulfillChange(msg.ID, lnchannel.Ours, msg.PaymentPreimage)); err != nil {
		return e.raiseProtocolError(classifyStagingErr(err), err.Error())
	}
	e.armCommitTimer()
	return e.maybeEnterClearing()
}

// FailHtlc removes a previously added HTLC without payment (spec.md §4.4).
func (e *ChannelEngine) FailHtlc(id uint64, reason []byte) error {
	_, err := do(e, func(e *ChannelEngine) (struct{}, error) {
		return struct{}{}, e.failHtlc(id, reason)
	})
	return err
}

func (e *ChannelEngine) failHtlc(id uint64, reason []byte) error {
	if e.fsm.state.IsClosing() {
		return lnchannel.ErrChannelClosing
	}
	if e.local.Tip.State.FindHtlc(id, lnchannel.Theirs) == -1 {
		return lnchannel.ErrLocalNotFound
	}

	if err := e.stageBothSides(lnwallet.NewFailChange(id, lnchannel.Theirs, reason)); err != nil {
		return err
	}
	if err := e.transport.Send(&lnwire.UpdateFailHtlc{
		ChanID: e.chanID,
		ID:     id,
		Reason: reason,
	}); err != nil {
		return err
	}

	e.armCommitTimer()
	return e.maybeEnterClearing()
}

// acceptPktHtlcFail applies a remote-origin Fail to both staging_cstates
// and arms our own commit timer (see acceptPktHtlcAdd).
func (e *ChannelEngine) acceptPktHtlcFail(msg *lnwire.UpdateFailHtlc) error {
	if e.fsm.state != StateNormal {
		return e.raiseProtocolError(lnchannel.ErrUnexpected, "fail_htlc outside NORMAL")
	}

	if err := e.stageBothSides(lnwallet.NewFailChange(msg.ID, lnchannel.Ours, msg.Reason)); err != nil {
		return e.raiseProtocolError(classifyStagingErr(err), err.Error())
	}
	e.armCommitTimer()
	return e.maybeEnterClearing()
}

// stageBothSides applies change to both the local and remote staging
// views. A StagingChange originates on one side or the other, but spec.md
// §8 property 7 ("staging = committed + unacked on each side after every
// accepted event") holds for both views at once: each side independently
// replays every accepted change on top of its own committed chain, so
// whichever side next proposes a commitment finds the change already
// waiting in its staging buffer instead of needing to wait for it to cross
// over on a later revocation.
func (e *ChannelEngine) stageBothSides(change lnwallet.StagingChange) error {
	if err := e.local.Stage(change); err != nil {
		return err
	}
	return e.remote.Stage(change)
}

// classifyStagingErr maps a ChannelState error to the ErrorKind carried on
// an outbound Error packet, since a remote-origin staging failure is always
// attributable to the counterparty (spec.md §7).
func classifyStagingErr(err error) lnchannel.ErrorKind {
	switch err {
	case lnchannel.ErrLocalDuplicateId:
		return lnchannel.ErrDuplicateId
	case lnchannel.ErrLocalTooManyHtlcs:
		return lnchannel.ErrTooManyHtlcs
	case lnchannel.ErrLocalInsufficientFunds:
		return lnchannel.ErrInsufficientFunds
	case lnchannel.ErrLocalNotFound:
		return lnchannel.ErrNotFound
	case lnchannel.ErrLocalBadPreimage:
		return lnchannel.ErrBadPreimage
	default:
		return lnchannel.ErrUnexpected
	}
}
