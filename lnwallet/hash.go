package lnwallet

import "crypto/sha256"

// sha256Sum is the single-hash (not double-SHA256) preimage check spec.md
// §4.1's fulfill_htlc uses for rhash. Revocation hashes are the same single
// SHA-256 of their preimage (signer.Local.RevocationHash); only channel IDs
// (lnwire.NewChannelID) use double-SHA256.
func sha256Sum(preimage [32]byte) [32]byte {
	return sha256.Sum256(preimage[:])
}
