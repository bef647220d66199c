package lnpeer

import (
	"testing"
	"time"

	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/stretchr/testify/require"
)

// TestOpenHandshakeReachesNormal exercises spec.md §4.3's full open
// handshake end to end, through both engines' real Run loops, and checks
// that the opening balances satisfy the conservation invariant (spec.md §8
// property 1) without touching ChannelState's unexported checkConservation,
// which lives outside this package.
func TestOpenHandshakeReachesNormal(t *testing.T) {
	t.Parallel()

	alice, bob := newTestPair(t)
	cancel := runPair(t, alice, bob)
	defer cancel()

	openToNormal(t, alice, bob)

	aliceState := alice.engine.local.Tip.State
	bobState := bob.engine.local.Tip.State

	require.Equal(t, uint64(0), alice.engine.local.Tip.CommitNum)
	require.Equal(t, uint64(0), bob.engine.local.Tip.CommitNum)
	require.Zero(t, aliceState.NumHtlcs())
	require.Zero(t, bobState.NumHtlcs())

	totalMsat := aliceState.Balance[lnchannel.Ours] + aliceState.Balance[lnchannel.Theirs]
	fee := lnwire.NewMSatFromSatoshis(lnwallet.ExpectedFee(aliceState.FeePerKw, 0))
	require.Equal(t, totalMsat+fee, lnwire.NewMSatFromSatoshis(alice.offer.CapacitySat))

	// Alice funded the anchor, so she holds the capacity minus the
	// opening commitment fee; Bob starts at zero.
	require.Positive(t, aliceState.Balance[lnchannel.Ours])
	require.Zero(t, aliceState.Balance[lnchannel.Theirs])
}

func TestOpenHandshakeTimesOutWithoutAnchor(t *testing.T) {
	t.Parallel()

	alice, bob := newTestPair(t)
	cancel := runPair(t, alice, bob)
	defer cancel()

	require.NoError(t, alice.engine.Open(alice.offer))
	require.NoError(t, bob.engine.Open(bob.offer))

	waitForState(t, alice.engine, StateOpenWaitForAnchor, 2*time.Second)
	waitForState(t, bob.engine, StateOpenWaitForAnchor, 2*time.Second)

	// Neither side has supplied funding yet; both must remain parked.
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, StateOpenWaitForAnchor, alice.engine.State())
	require.Equal(t, StateOpenWaitForAnchor, bob.engine.State())
}
