package lnwallet

import "github.com/btcsuite/btcd/btcutil"

// htlcTimeoutFee returns the fee required for the second-level transaction
// that times out an offered (outgoing) HTLC, grounded on the teacher's
// htlcTimeoutFee in lnwallet/channel.go.
func htlcTimeoutFee(feePerKw btcutil.Amount) btcutil.Amount {
	return (feePerKw * htlcTimeoutWeight) / 1000
}

// htlcSuccessFee returns the fee required for the second-level transaction
// that claims a received (incoming) HTLC with its preimage, grounded on the
// teacher's htlcSuccessFee in lnwallet/channel.go.
func htlcSuccessFee(feePerKw btcutil.Amount) btcutil.Amount {
	return (feePerKw * htlcSuccessWeight) / 1000
}

// ExpectedFee computes the fee the funder side pays for a commitment
// transaction carrying numHtlcs HTLC outputs at the given per-kiloweight
// fee rate, grounded on the teacher's commitment-weight estimate in
// lnwallet/channel.go (CommitWeight + HtlcWeight*numHTLCs) and required by
// spec.md §3's conservation invariant and §4.1's fee policy.
func ExpectedFee(feePerKw btcutil.Amount, numHtlcs int) btcutil.Amount {
	totalWeight := int64(baseCommitWeight) + int64(htlcWeight)*int64(numHtlcs)
	return btcutil.Amount((int64(feePerKw) * totalWeight) / 1000)
}

// HtlcIsDust reports whether an HTLC's value, net of the second-level
// transaction fee it would require to claim on-chain, falls below the
// channel's dust limit — grounded on the teacher's htlcIsDust. incoming is
// relative to the commitment the HTLC would appear on: true if that side is
// the receiver of the HTLC, not the offerer. lnpeer.buildCommitTx calls this
// to drop dust HTLC outputs before they ever reach TxBuilder, which applies
// only the coarser amt-vs-dustLimit test, to the balance outputs and to
// every HTLC it is handed.
func HtlcIsDust(incoming, ourCommit bool, feePerKw, htlcAmt, dustLimit btcutil.Amount) bool {
	var htlcFee btcutil.Amount
	switch {
	case incoming && ourCommit:
		htlcFee = htlcSuccessFee(feePerKw)
	case incoming && !ourCommit:
		htlcFee = htlcTimeoutFee(feePerKw)
	case !incoming && ourCommit:
		htlcFee = htlcTimeoutFee(feePerKw)
	case !incoming && !ourCommit:
		htlcFee = htlcSuccessFee(feePerKw)
	}
	return (htlcAmt - htlcFee) < dustLimit
}
