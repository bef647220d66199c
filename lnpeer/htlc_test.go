package lnpeer

import (
	"crypto/sha256"
	"testing"
	"time"

	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/stretchr/testify/require"
)

// TestSingleHtlcRoundTrip exercises spec.md §4.4's add_htlc/fulfill_htlc
// pair end to end over both engines' real Run loops: Alice offers an HTLC,
// Bob fulfills it, and both sides' committed balances must reflect the
// transfer once the commit/revocation dance settles.
func TestSingleHtlcRoundTrip(t *testing.T) {
	t.Parallel()

	alice, bob := newTestPair(t)
	cancel := runPair(t, alice, bob)
	defer cancel()

	openToNormal(t, alice, bob)

	const amountMsat = 50_000_000
	preimage := [32]byte{1, 2, 3, 4, 5}
	rhash := sha256.Sum256(preimage[:])

	aliceBalBefore := alice.engine.local.Tip.State.Balance[lnchannel.Ours]

	id, err := alice.engine.AddHtlc(lnwire.MilliSatoshi(amountMsat), 500, rhash, nil)
	require.NoError(t, err)

	waitForHtlcOnTip(t, bob.engine, lnchannel.Theirs, id, 2*time.Second)

	require.NoError(t, bob.engine.FulfillHtlc(id, preimage))

	waitForNoHtlcs(t, alice.engine, 2*time.Second)
	waitForNoHtlcs(t, bob.engine, 2*time.Second)

	aliceBalAfter := alice.engine.local.Tip.State.Balance[lnchannel.Ours]
	require.Equal(t, aliceBalBefore-lnwire.MilliSatoshi(amountMsat), aliceBalAfter)

	bobBalAfter := bob.engine.local.Tip.State.Balance[lnchannel.Ours]
	require.Equal(t, lnwire.MilliSatoshi(amountMsat), bobBalAfter)
}

func waitForHtlcOnTip(t *testing.T, e *ChannelEngine, offeredBy lnchannel.Side, id uint64, timeout time.Duration) {
	t.Helper()

	deadline := time.After(timeout)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tip := e.local.Tip
			if tip != nil && tip.State.FindHtlc(id, offeredBy) != -1 {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for htlc %d to land on committed state", id)
		}
	}
}

func waitForNoHtlcs(t *testing.T, e *ChannelEngine, timeout time.Duration) {
	t.Helper()

	deadline := time.After(timeout)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tip := e.local.Tip
			if tip != nil && tip.State.NumHtlcs() == 0 && e.remote.Tip != nil && e.remote.Tip.State.NumHtlcs() == 0 {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for htlcs to drain")
		}
	}
}

// TestHtlcCapEnforced drives a single side's acceptPktHtlcAdd handler
// directly, bypassing the Run loop entirely, to deterministically check
// spec.md's 300-HTLC-per-offering-side cap (lnwallet.DefaultMaxHtlcsPerSide):
// the 301st add from the same offering side must be rejected and the
// channel forced into ERR_BREAKDOWN, since a cap violation is a protocol
// violation attributable to the counterparty (spec.md §7).
func TestHtlcCapEnforced(t *testing.T) {
	t.Parallel()

	alice, bob := newTestPairCapacity(t, 1_000_000_000)
	manualHandshake(t, alice, bob)

	for i := uint64(0); i < lnwallet.DefaultMaxHtlcsPerSide; i++ {
		rhash := sha256.Sum256([]byte{byte(i), byte(i >> 8)})
		err := bob.engine.acceptPktHtlcAdd(&lnwire.UpdateAddHtlc{
			ChanID:     bob.engine.chanID,
			ID:         i,
			AmountMsat: 1000,
			RHash:      rhash,
			Expiry:     500,
		})
		require.NoErrorf(t, err, "htlc %d should still fit under the cap", i)
	}
	require.Equal(t, StateNormal, bob.engine.State())

	overflowHash := sha256.Sum256([]byte("overflow"))
	err := bob.engine.acceptPktHtlcAdd(&lnwire.UpdateAddHtlc{
		ChanID:     bob.engine.chanID,
		ID:         lnwallet.DefaultMaxHtlcsPerSide,
		AmountMsat: 1000,
		RHash:      overflowHash,
		Expiry:     500,
	})
	require.Error(t, err)
	require.Equal(t, StateErrBreakdown, bob.engine.State())
}
