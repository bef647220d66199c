package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/stretchr/testify/require"
)

const testFeePerKw = btcutil.Amount(5000)

func testHtlc(id uint64, offeredBy lnchannel.Side, amt lnwire.MilliSatoshi) ChannelHtlc {
	return ChannelHtlc{
		ID:         id,
		OfferedBy:  offeredBy,
		AmountMsat: amt,
		RHash:      sha256Sum([32]byte{byte(id)}),
		Expiry:     1893456000,
	}
}

func TestNewChannelStateConservation(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, testFeePerKw)
	require.NoError(t, s.checkConservation())
	require.Equal(t, lnwire.MilliSatoshi(0), s.Balance[lnchannel.Theirs])
}

// TestAddHtlcConservation covers spec.md §8 property 1: balances, HTLC
// amounts and the fee must sum to the anchor capacity after every add.
func TestAddHtlcConservation(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, testFeePerKw)

	htlc := testHtlc(0, lnchannel.Ours, 100_000_000)
	next, err := s.AddHtlc(htlc)
	require.NoError(t, err)
	require.NoError(t, next.checkConservation())
	require.Len(t, next.Htlcs[lnchannel.Ours], 1)
	require.Equal(t, uint64(1), next.Changes)
}

func TestAddHtlcRejectsDuplicateId(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, testFeePerKw)
	htlc := testHtlc(0, lnchannel.Ours, 1000)

	s1, err := s.AddHtlc(htlc)
	require.NoError(t, err)

	_, err = s1.AddHtlc(htlc)
	require.ErrorIs(t, err, lnchannel.ErrLocalDuplicateId)
}

func TestAddHtlcRejectsCap(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000_000, lnchannel.Ours, btcutil.Amount(0))
	for i := uint64(0); i < DefaultMaxHtlcsPerSide; i++ {
		var err error
		s, err = s.AddHtlc(testHtlc(i, lnchannel.Ours, 1))
		require.NoError(t, err, "htlc %d", i)
	}

	_, err := s.AddHtlc(testHtlc(DefaultMaxHtlcsPerSide, lnchannel.Ours, 1))
	require.ErrorIs(t, err, lnchannel.ErrLocalTooManyHtlcs)
}

func TestAddHtlcRejectsInsufficientFunds(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1000, lnchannel.Ours, btcutil.Amount(0))
	_, err := s.AddHtlc(testHtlc(0, lnchannel.Ours, 2_000_000))
	require.ErrorIs(t, err, lnchannel.ErrLocalInsufficientFunds)
}

// TestFulfillHtlcCreditsReceiver covers spec.md §4.1's fulfill_htlc rule:
// the amount credits the side that did not offer the HTLC.
func TestFulfillHtlcCreditsReceiver(t *testing.T) {
	t.Parallel()

	preimage := [32]byte{0x42}
	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	htlc := ChannelHtlc{
		ID: 0, OfferedBy: lnchannel.Ours,
		AmountMsat: 100_000_000,
		RHash:      sha256Sum(preimage),
		Expiry:     1893456000,
	}

	s, err := s.AddHtlc(htlc)
	require.NoError(t, err)

	s, err = s.FulfillHtlc(0, lnchannel.Ours, preimage)
	require.NoError(t, err)
	require.Empty(t, s.Htlcs[lnchannel.Ours])
	require.Equal(t, lnwire.MilliSatoshi(100_000_000), s.Balance[lnchannel.Theirs])
	require.NoError(t, s.checkConservation())
}

func TestFulfillHtlcRejectsBadPreimage(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	htlc := testHtlc(0, lnchannel.Ours, 1000)
	s, err := s.AddHtlc(htlc)
	require.NoError(t, err)

	_, err = s.FulfillHtlc(0, lnchannel.Ours, [32]byte{0xff})
	require.ErrorIs(t, err, lnchannel.ErrLocalBadPreimage)
}

func TestFailHtlcRefundsOfferer(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	htlc := testHtlc(0, lnchannel.Ours, 1000)
	s, err := s.AddHtlc(htlc)
	require.NoError(t, err)

	before := s.Balance[lnchannel.Ours]
	s, err = s.FailHtlc(0, lnchannel.Ours)
	require.NoError(t, err)
	require.Equal(t, before+1000, s.Balance[lnchannel.Ours])
	require.NoError(t, s.checkConservation())
}

func TestCopyDoesNotAlias(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	htlc := testHtlc(0, lnchannel.Ours, 1000)
	s, err := s.AddHtlc(htlc)
	require.NoError(t, err)

	cp := s.Copy()
	cp.Htlcs[lnchannel.Ours][0].AmountMsat = 999

	require.NotEqual(t, cp.Htlcs[lnchannel.Ours][0].AmountMsat, s.Htlcs[lnchannel.Ours][0].AmountMsat)
}
