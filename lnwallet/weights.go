// Package lnwallet implements ChannelState, CommitInfo and the staging
// bookkeeping of spec.md §3/§4.1/§4.2: the pure-value channel snapshot and
// its surrounding commit chain, grounded on the teacher's
// lnwallet/channel.go (PaymentDescriptor, commitment, updateLog) and
// lnwallet/size.go (weight constants).
package lnwallet

// Weight constants for the fee policy of spec.md §4.1 ("expected fee is a
// function of (fee_rate, #active_htlcs)"), carried over verbatim from the
// teacher's lnwallet/size.go so that expected_fee here matches the
// commitment-transaction weight estimate TxBuilder is expected to produce.
const (
	// witnessScaleFactor is the bitcoin-style discount applied to witness
	// data when computing transaction weight.
	witnessScaleFactor = 4

	// baseCommitmentTxSize is the size in bytes of a commitment
	// transaction carrying zero HTLC outputs.
	baseCommitmentTxSize = 125

	// baseCommitWeight is the weight of a commitment transaction with no
	// HTLC outputs.
	baseCommitWeight = witnessScaleFactor * baseCommitmentTxSize

	// htlcOutputSize is the size in bytes of a single HTLC output.
	htlcOutputSize = 43

	// htlcWeight is the weight added to a commitment transaction per
	// HTLC output it carries.
	htlcWeight = witnessScaleFactor * htlcOutputSize

	// htlcTimeoutWeight is the weight of the second-level transaction
	// that times out an outgoing (offered) HTLC.
	htlcTimeoutWeight = 663

	// htlcSuccessWeight is the weight of the second-level transaction
	// that claims an incoming (received) HTLC with its preimage.
	htlcSuccessWeight = 703
)
