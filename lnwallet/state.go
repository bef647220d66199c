package lnwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// ChannelState is the pure-value snapshot of spec.md §3/§4.1: balances and
// HTLC sets for both sides at one commitment point. Every operation returns
// a new ChannelState (or a typed failure); none mutates its receiver,
// matching the value semantics of the teacher's commitment/PaymentDescriptor
// pair in lnwallet/channel.go.
type ChannelState struct {
	// Balance holds each side's msat balance.
	Balance map[lnchannel.Side]lnwire.MilliSatoshi

	// Htlcs holds, per offering side, the set of HTLCs that side has
	// added and that remain neither fulfilled nor failed.
	Htlcs map[lnchannel.Side][]ChannelHtlc

	// Changes is incremented on every add/fulfill/fail, used to detect
	// empty commits (spec.md §8 property 6).
	Changes uint64

	// AnchorSatoshis is the anchor output's total capacity, the fixed
	// point the conservation invariant (§8 property 1) is checked
	// against.
	AnchorSatoshis btcutil.Amount

	// FunderSide is the side that pays the commitment fee.
	FunderSide lnchannel.Side

	// FeePerKw is the commitment fee rate agreed at open.
	FeePerKw btcutil.Amount

	// MaxHtlcsPerSide is the per-side HTLC-count cap AddHtlc enforces,
	// sourced from config.MaxHtlcsPerSide at channel-open time rather
	// than hardcoded, so a host can tune it per deployment.
	MaxHtlcsPerSide int
}

// NewChannelState returns the initial (zero-HTLC) state for a freshly
// opened anchor, crediting the entire capacity (minus the opening
// commitment fee) to the funder, enforcing DefaultMaxHtlcsPerSide.
func NewChannelState(anchorSat btcutil.Amount, funder lnchannel.Side, feePerKw btcutil.Amount) *ChannelState {
	return NewChannelStateWithLimit(anchorSat, funder, feePerKw, DefaultMaxHtlcsPerSide)
}

// NewChannelStateWithLimit is NewChannelState with an explicit per-side
// HTLC cap, letting a host honor its own config.MaxHtlcsPerSide instead of
// DefaultMaxHtlcsPerSide.
func NewChannelStateWithLimit(anchorSat btcutil.Amount, funder lnchannel.Side, feePerKw btcutil.Amount, maxHtlcsPerSide int) *ChannelState {
	fee := ExpectedFee(feePerKw, 0)
	total := lnwire.NewMSatFromSatoshis(anchorSat)

	s := &ChannelState{
		Balance: map[lnchannel.Side]lnwire.MilliSatoshi{
			lnchannel.Ours:   0,
			lnchannel.Theirs: 0,
		},
		Htlcs: map[lnchannel.Side][]ChannelHtlc{
			lnchannel.Ours:   nil,
			lnchannel.Theirs: nil,
		},
		AnchorSatoshis:  anchorSat,
		FunderSide:      funder,
		FeePerKw:        feePerKw,
		MaxHtlcsPerSide: maxHtlcsPerSide,
	}
	s.Balance[funder] = total - lnwire.NewMSatFromSatoshis(fee)
	return s
}

// copy returns a deep value copy (spec.md §4.1 "copy(state)"), grounded on
// the teacher's commitment snapshotting in lnwallet/channel.go, where every
// new commitment is built from an independently-owned copy of the prior
// HTLC log.
func (s *ChannelState) copy() *ChannelState {
	out := &ChannelState{
		Balance:         make(map[lnchannel.Side]lnwire.MilliSatoshi, 2),
		Htlcs:           make(map[lnchannel.Side][]ChannelHtlc, 2),
		Changes:         s.Changes,
		AnchorSatoshis:  s.AnchorSatoshis,
		FunderSide:      s.FunderSide,
		FeePerKw:        s.FeePerKw,
		MaxHtlcsPerSide: s.MaxHtlcsPerSide,
	}
	for side, bal := range s.Balance {
		out.Balance[side] = bal
	}
	for side, htlcs := range s.Htlcs {
		cp := make([]ChannelHtlc, len(htlcs))
		for i, h := range htlcs {
			cp[i] = h.copy()
		}
		out.Htlcs[side] = cp
	}
	return out
}

// Copy is the exported form of copy, used by CommitInfo construction and by
// StagingBuffers to branch a staging state off of a committed one without
// aliasing.
func (s *ChannelState) Copy() *ChannelState {
	return s.copy()
}

// numHtlcs returns the total HTLC count across both sides, the count the
// fee policy of spec.md §4.1 is a function of.
func (s *ChannelState) numHtlcs() int {
	return len(s.Htlcs[lnchannel.Ours]) + len(s.Htlcs[lnchannel.Theirs])
}

// NumHtlcs is the exported form of numHtlcs, used by lnpeer when sizing the
// HtlcOutput slice passed to TxBuilder.
func (s *ChannelState) NumHtlcs() int {
	return s.numHtlcs()
}

// FindHtlc is the exported form of findHtlc, used by lnpeer to verify a
// fulfill/fail references an HTLC present in the current committed state
// (spec.md §4.4, "must find the HTLC in the current committed state, not
// merely staging").
func (s *ChannelState) FindHtlc(id uint64, offeredBy lnchannel.Side) int {
	return s.findHtlc(id, offeredBy)
}

// findHtlc locates an HTLC by (id, offeredBy), returning its index in
// Htlcs[offeredBy] or -1.
func (s *ChannelState) findHtlc(id uint64, offeredBy lnchannel.Side) int {
	for i, h := range s.Htlcs[offeredBy] {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// AddHtlc applies an Add change (spec.md §4.1): rejects a colliding id, an
// at-cap offering side, or an unaffordable offerer/funder balance,
// otherwise returns a new state with the HTLC's value escrowed out of the
// offerer's balance (and the funder charged the marginal fee for the extra
// HTLC output) and Changes incremented.
func (s *ChannelState) AddHtlc(htlc ChannelHtlc) (*ChannelState, error) {
	if s.findHtlc(htlc.ID, htlc.OfferedBy) != -1 {
		return nil, lnchannel.ErrLocalDuplicateId
	}
	limit := s.MaxHtlcsPerSide
	if limit == 0 {
		limit = DefaultMaxHtlcsPerSide
	}
	if len(s.Htlcs[htlc.OfferedBy]) >= limit {
		return nil, lnchannel.ErrLocalTooManyHtlcs
	}

	next := s.copy()
	next.Htlcs[htlc.OfferedBy] = append(next.Htlcs[htlc.OfferedBy], htlc.copy())
	next.Changes++

	if next.Balance[htlc.OfferedBy] < htlc.AmountMsat {
		return nil, lnchannel.ErrLocalInsufficientFunds
	}
	next.Balance[htlc.OfferedBy] -= htlc.AmountMsat

	if err := next.chargeFeeDelta(s.numHtlcs()); err != nil {
		return nil, err
	}
	if err := next.checkConservation(); err != nil {
		return nil, err
	}
	return next, nil
}

// chargeFeeDelta debits (or credits, on removal) the funder's balance for
// the change in commitment fee between oldNumHtlcs and this state's current
// HTLC count, grounded on the teacher's per-commitment fee recomputation in
// lnwallet/channel.go (the commitment fee is not a fixed reservation; it is
// recomputed from the live HTLC count on every new commitment).
func (s *ChannelState) chargeFeeDelta(oldNumHtlcs int) error {
	oldFee := ExpectedFee(s.FeePerKw, oldNumHtlcs)
	newFee := ExpectedFee(s.FeePerKw, s.numHtlcs())

	if newFee > oldFee {
		delta := lnwire.NewMSatFromSatoshis(newFee - oldFee)
		if s.Balance[s.FunderSide] < delta {
			return lnchannel.ErrLocalInsufficientFunds
		}
		s.Balance[s.FunderSide] -= delta
	} else if newFee < oldFee {
		delta := lnwire.NewMSatFromSatoshis(oldFee - newFee)
		s.Balance[s.FunderSide] += delta
	}
	return nil
}

// checkConservation is a defensive sanity assertion of spec.md §8 property 1
// ("Conservation"): it should never fail given correct arithmetic above, but
// catches bookkeeping bugs before they are signed into a commitment.
func (s *ChannelState) checkConservation() error {
	fee := ExpectedFee(s.FeePerKw, s.numHtlcs())
	totalMsat := lnwire.NewMSatFromSatoshis(s.AnchorSatoshis)
	feeMsat := lnwire.NewMSatFromSatoshis(fee)

	var committedMsat lnwire.MilliSatoshi
	for _, bal := range s.Balance {
		committedMsat += bal
	}
	for _, side := range []lnchannel.Side{lnchannel.Ours, lnchannel.Theirs} {
		for _, h := range s.Htlcs[side] {
			committedMsat += h.AmountMsat
		}
	}

	if committedMsat+feeMsat != totalMsat {
		return fmt.Errorf("%w: balances+htlcs+fee = %d, anchor = %d",
			lnchannel.ErrLocalInsufficientFunds, committedMsat+feeMsat, totalMsat)
	}
	return nil
}

// FulfillHtlc applies a Fulfill change (spec.md §4.1): removes the HTLC and
// credits its amount to the receiving side (the side that did not offer
// it), refunding the funder any fee no longer needed for the removed HTLC
// output.
func (s *ChannelState) FulfillHtlc(id uint64, offeredBy lnchannel.Side, preimage [32]byte) (*ChannelState, error) {
	idx := s.findHtlc(id, offeredBy)
	if idx == -1 {
		return nil, lnchannel.ErrLocalNotFound
	}
	htlc := s.Htlcs[offeredBy][idx]
	if sha256Sum(preimage) != htlc.RHash {
		return nil, lnchannel.ErrLocalBadPreimage
	}

	next := s.copy()
	next.Htlcs[offeredBy] = removeAt(next.Htlcs[offeredBy], idx)
	next.Balance[offeredBy.Opposite()] += htlc.AmountMsat
	next.Changes++

	if err := next.chargeFeeDelta(s.numHtlcs()); err != nil {
		return nil, err
	}
	if err := next.checkConservation(); err != nil {
		return nil, err
	}
	return next, nil
}

// FailHtlc applies a Fail change (spec.md §4.1): removes the HTLC and
// refunds its amount to the offering side, refunding the funder any fee no
// longer needed for the removed HTLC output.
func (s *ChannelState) FailHtlc(id uint64, offeredBy lnchannel.Side) (*ChannelState, error) {
	idx := s.findHtlc(id, offeredBy)
	if idx == -1 {
		return nil, lnchannel.ErrLocalNotFound
	}
	htlc := s.Htlcs[offeredBy][idx]

	next := s.copy()
	next.Htlcs[offeredBy] = removeAt(next.Htlcs[offeredBy], idx)
	next.Balance[offeredBy] += htlc.AmountMsat
	next.Changes++

	if err := next.chargeFeeDelta(s.numHtlcs()); err != nil {
		return nil, err
	}
	if err := next.checkConservation(); err != nil {
		return nil, err
	}
	return next, nil
}

func removeAt(htlcs []ChannelHtlc, idx int) []ChannelHtlc {
	out := make([]ChannelHtlc, 0, len(htlcs)-1)
	out = append(out, htlcs[:idx]...)
	out = append(out, htlcs[idx+1:]...)
	return out
}
