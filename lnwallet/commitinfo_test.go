package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/stretchr/testify/require"
)

// TestCommitChainMonotonic covers spec.md §8 property 3.
func TestCommitChainMonotonic(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	sv := NewSideView(s)

	var prevNum uint64
	for i := 0; i < 5; i++ {
		htlc := testHtlc(uint64(i), lnchannel.Ours, 1)
		require.NoError(t, sv.Stage(NewAddChange(htlc)))

		ci, err := sv.BuildCommit(chainhash.HashH([]byte{byte(i)}))
		require.NoError(t, err)

		if i > 0 {
			require.Equal(t, prevNum+1, ci.CommitNum)
			require.Same(t, sv.Tip.Prev, ci.Prev)
		}
		prevNum = ci.CommitNum
	}
}

// TestRevokeClearsUnackedChanges covers spec.md §8 property 4 (revocation
// validity) and the lifecycle rule of §3: UnackedChanges drop once revoked.
func TestRevokeClearsUnackedChanges(t *testing.T) {
	t.Parallel()

	s := NewChannelState(1_000_000, lnchannel.Ours, btcutil.Amount(0))
	sv := NewSideView(s)

	require.NoError(t, sv.Stage(NewAddChange(testHtlc(0, lnchannel.Ours, 1))))
	ci, err := sv.BuildCommit(chainhash.HashH([]byte("rh")))
	require.NoError(t, err)
	require.NotEmpty(t, ci.UnackedChanges)
	require.False(t, ci.IsRevoked())

	preimage := chainhash.HashH([]byte("preimage"))
	ci.Revoke(preimage)

	require.True(t, ci.IsRevoked())
	require.Nil(t, ci.UnackedChanges)
	require.Equal(t, preimage, *ci.RevocationPreimage)
}
