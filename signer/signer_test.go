package signer

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func testTx() *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0}})
	tx.AddTxOut(&wire.TxOut{Value: 1_000_000})
	return tx
}

// TestSignVerifyRoundTrip covers the SignTheirCommit/VerifyCommitSig pair
// lnpeer's acceptPktCommit relies on to reject a forged CommitSig.
func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	commitKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	closeKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	counterpartyKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	l := NewLocal(commitKey, closeKey, commitKey, counterpartyKey.PubKey())

	tx := testTx()
	sig, err := l.SignTheirCommit(tx)
	require.NoError(t, err)

	// The counterparty verifies our signature against our own commit key,
	// since SignTheirCommit signs with commitKey.
	require.NoError(t, l.VerifyCommitSig(tx, sig, commitKey.PubKey()))
}

func TestVerifyCommitSigRejectsWrongKey(t *testing.T) {
	t.Parallel()

	commitKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	closeKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	counterpartyKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	l := NewLocal(commitKey, closeKey, commitKey, counterpartyKey.PubKey())

	tx := testTx()
	sig, err := l.SignTheirCommit(tx)
	require.NoError(t, err)

	wrongKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	require.Error(t, l.VerifyCommitSig(tx, sig, wrongKey.PubKey()))
}

// TestRevocationHashMatchesPreimage checks the relationship
// lnpeer.sendRevocation depends on: RevocationHash(n) must always be the
// SHA-256 of RevocationPreimage(n).
func TestRevocationHashMatchesPreimage(t *testing.T) {
	t.Parallel()

	commitKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	closeKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	counterpartyKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	l := NewLocal(commitKey, closeKey, commitKey, counterpartyKey.PubKey())

	for n := uint64(0); n < 5; n++ {
		preimage, err := l.RevocationPreimage(n)
		require.NoError(t, err)
		hash, err := l.RevocationHash(n)
		require.NoError(t, err)

		want := sha256.Sum256(preimage[:])
		require.Equal(t, want, [32]byte(*hash), "commit_num %d", n)
	}
}

// TestDeriveElkremRootIsOrderSensitive checks that the two sides of a
// channel, who plug the same pair of multisig keys in as
// local/remote (swapped), derive different elkrem roots — so a Local
// signer's own revocation preimages are never predictable by the
// counterparty ahead of time.
func TestDeriveElkremRootIsOrderSensitive(t *testing.T) {
	t.Parallel()

	aliceKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	bobKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	aliceRoot := deriveElkremRoot(aliceKey, bobKey.PubKey())
	bobRoot := deriveElkremRoot(bobKey, aliceKey.PubKey())

	require.NotEqual(t, aliceRoot, bobRoot)
}

// TestRevocationKeyHomomorphism checks the elliptic-curve identity
// DeriveRevocationPubkey/DeriveRevocationPrivKey rely on: the private key
// derived from a revealed preimage must produce exactly the public key
// that was derivable by both sides before the preimage was known.
func TestRevocationKeyHomomorphism(t *testing.T) {
	t.Parallel()

	commitKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	preimage := [32]byte{1, 2, 3, 4, 5, 6, 7, 8}

	pubBefore := DeriveRevocationPubkey(commitKey.PubKey(), preimage[:])
	privAfter := DeriveRevocationPrivKey(commitKey, preimage[:])

	require.True(t, pubBefore.IsEqual(privAfter.PubKey()))
}
