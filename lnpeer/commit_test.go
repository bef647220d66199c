package lnpeer

import (
	"crypto/sha256"
	"testing"

	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/stretchr/testify/require"
)

// TestBadRevocationPreimageCausesBreakdown corrupts an otherwise-legitimate
// UpdateRevocation's preimage in flight and checks that the receiving side
// detects the mismatch against the retired commitment's revocation_hash and
// forces ERR_BREAKDOWN (spec.md §4.4 "receiving UpdateRevocation", §8
// property 2 "a revealed preimage always hashes to the revocation_hash it
// claims to retire"). Driven entirely on the calling goroutine via
// manualHandshake so the corrupted packet can be substituted for the real
// one without racing a genuine peer.
func TestBadRevocationPreimageCausesBreakdown(t *testing.T) {
	t.Parallel()

	alice, bob := newTestPair(t)
	manualHandshake(t, alice, bob)

	rhash := sha256.Sum256([]byte("htlc-1"))
	_, err := alice.engine.addHtlc(1_000_000, 500, rhash, nil)
	require.NoError(t, err)

	addMsg, err := bob.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, bob.engine.acceptPktHtlcAdd(addMsg.(*lnwire.UpdateAddHtlc)))

	require.NoError(t, alice.engine.triggerCommit())

	commitMsg, err := bob.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, bob.engine.acceptPktCommit(commitMsg.(*lnwire.UpdateCommit)))

	revMsg, err := alice.transport.Recv()
	require.NoError(t, err)
	revocation := revMsg.(*lnwire.UpdateRevocation)
	revocation.Preimage[0] ^= 0xff

	err = alice.engine.acceptPktRevocation(revocation)
	require.Error(t, err)
	require.Equal(t, StateErrBreakdown, alice.engine.State())
}

// TestDuplicateRemoteAddCausesBreakdown checks spec.md §8 property 4 ("an id
// is never reused by the same offering side while live"): two UpdateAddHtlc
// packets sharing an id from the same counterparty must force the receiver
// into ERR_BREAKDOWN on the second one, since the violation is attributable
// entirely to the sender (spec.md §7).
func TestDuplicateRemoteAddCausesBreakdown(t *testing.T) {
	t.Parallel()

	alice, bob := newTestPair(t)
	manualHandshake(t, alice, bob)

	rhashA := sha256.Sum256([]byte("first"))
	require.NoError(t, bob.engine.acceptPktHtlcAdd(&lnwire.UpdateAddHtlc{
		ChanID:     bob.engine.chanID,
		ID:         7,
		AmountMsat: 1_000_000,
		RHash:      rhashA,
		Expiry:     500,
	}))
	require.Equal(t, StateNormal, bob.engine.State())

	rhashB := sha256.Sum256([]byte("second"))
	err := bob.engine.acceptPktHtlcAdd(&lnwire.UpdateAddHtlc{
		ChanID:     bob.engine.chanID,
		ID:         7,
		AmountMsat: 2_000_000,
		RHash:      rhashB,
		Expiry:     500,
	})
	require.Error(t, err)
	require.Equal(t, StateErrBreakdown, bob.engine.State())
}
