package lnpeer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestMutualCloseConverges exercises spec.md §4.7's mutual-close fee
// negotiation end to end. With no HTLCs in flight, both sides derive their
// opening fee proposal identically (lnwallet.ExpectedFee at the agreed
// feePerKw with zero HTLCs), so the very first CloseSignature exchange
// should already fall within config.CloseFeeTolerance and both engines
// should land in CLOSED.
func TestMutualCloseConverges(t *testing.T) {
	t.Parallel()

	alice, bob := newTestPair(t)
	cancel := runPair(t, alice, bob)
	defer cancel()

	openToNormal(t, alice, bob)

	require.NoError(t, alice.engine.BeginClearing())

	waitForState(t, alice.engine, StateClosed, 2*time.Second)
	waitForState(t, bob.engine, StateClosed, 2*time.Second)
}
