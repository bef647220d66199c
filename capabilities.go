package lnchannel

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// Signer is the host capability that produces the signatures and
// revocation-chain material the engine itself never generates, grounded on
// the injected Signer used by lnwallet.NewLightningChannel in the teacher.
// An implementation must be safe for concurrent use: it is shared across
// every peer the host drives (§5, "Shared resources").
type Signer interface {
	// SignTheirCommit returns our signature authorizing the counterparty's
	// version of a commitment transaction.
	SignTheirCommit(tx *wire.MsgTx) ([]byte, error)

	// SignMutualClose returns our signature over a proposed cooperative
	// close transaction.
	SignMutualClose(tx *wire.MsgTx) ([]byte, error)

	// RevocationPreimage deterministically derives the 32-byte preimage
	// for the given commit_num. Called only for commitments this side
	// itself produced, once they are superseded.
	RevocationPreimage(commitNum uint64) (*chainhash.Hash, error)

	// RevocationHash derives sha256(RevocationPreimage(commitNum))
	// without requiring the preimage itself to be revealed yet.
	RevocationHash(commitNum uint64) (*chainhash.Hash, error)

	// VerifyCommitSig checks sig against tx under counterpartyKey, the
	// receiving half of SignTheirCommit (spec.md §4.4, "receiving
	// UpdateCommit" step 2). Not named in spec.md §6.2's host-capability
	// list, which enumerates only the signing/derivation calls; added
	// here because an engine that builds commitments but can never
	// reject a forged one isn't runnable end to end.
	VerifyCommitSig(tx *wire.MsgTx, sig []byte, counterpartyKey *btcec.PublicKey) error
}

// TxBuilder is the host capability that lays out and serializes raw
// commitment/close transactions, grounded on the teacher's
// CreateCommitTx/CreateCooperativeCloseTx free functions and
// script_utils.go's redeem-script helpers — kept external per spec.md §1's
// explicit non-goal on transaction construction/signing internals.
type TxBuilder interface {
	// CreateCommitTx builds the commitment transaction for one side (for
	// the local view if forSide == OURS, for the remote view otherwise),
	// keyed to the given revocation hash and reflecting the settled
	// balances and in-flight HTLCs of the ChannelState snapshot it was
	// staged from.
	CreateCommitTx(keys CommitmentKeys, csvTimeout uint32, anchor wire.OutPoint,
		revocationHash chainhash.Hash, forSide Side,
		ourBalance, theirBalance, dustLimit btcutil.Amount,
		htlcs []HtlcOutput) (*wire.MsgTx, error)

	// CreateCloseTx builds a cooperative close transaction paying the
	// given balances, respecting each side's dust limit.
	CreateCloseTx(anchor wire.OutPoint, ourBalance, theirBalance,
		ourDust, theirDust btcutil.Amount,
		ourDeliveryScript, theirDeliveryScript []byte,
		initiator bool) (*wire.MsgTx, error)

	// Redeem2of2 returns the anchor's 2-of-2 multisig witness/redeem
	// script for the two commit keys.
	Redeem2of2(keyA, keyB *btcec.PublicKey) ([]byte, error)

	// RedeemSingle returns the unencumbered single-key redeem script used
	// for a mutual-close delivery output (spec.md §4.4, begin_clearing's
	// `our_script = P2SH(redeem(finalkey))`).
	RedeemSingle(key *btcec.PublicKey) ([]byte, error)

	// P2SH returns the pay-to-script-hash address for the given script.
	P2SH(script []byte) (btcutil.Address, error)
}

// HtlcOutput is the TxBuilder-facing view of one in-flight HTLC: enough to
// lay out its script and output value without TxBuilder depending on
// lnwallet's ChannelState (which would import this package and create a
// cycle).
type HtlcOutput struct {
	OfferedBy       Side
	AmountMsat      uint64
	RHash           [32]byte
	Expiry          uint32
}

// CommitmentKeys bundles the public keys a commitment transaction is built
// against: our/their commit key (used for the 2-of-2 multisig and the
// revocable output) and our/their final key (used for the delivery output
// once an output is no longer revocable).
type CommitmentKeys struct {
	OurCommitKey    *btcec.PublicKey
	TheirCommitKey  *btcec.PublicKey
	OurFinalKey     *btcec.PublicKey
	TheirFinalKey   *btcec.PublicKey
	RevocationPoint *btcec.PublicKey
}

// PacketTransport is the opaque, already-framed-and-encrypted wire carrier
// consumed by the engine; network framing, encryption, and key exchange are
// an explicit spec.md §1 non-goal.
type PacketTransport interface {
	// Send enqueues pkt for delivery, returning once the transport has
	// accepted it (not necessarily once it's been ACKed on the wire —
	// the engine's ordering guarantees (§5) only require FIFO delivery).
	Send(pkt lnwire.Message) error

	// Recv blocks for the next inbound packet, returning ErrPeerGone once
	// the remote end is no longer reachable.
	Recv() (lnwire.Message, error)
}

// ErrPeerGone is returned by PacketTransport.Recv once the remote peer can
// no longer be reached.
var ErrPeerGone = fmt.Errorf("peer gone")

// Clock is the host capability driving the commit timer (§4.6) and any
// other suspension point that waits on wall-clock time. Shared across peers
// per §5.
type Clock interface {
	Now() time.Time

	// After invokes callback once duration has elapsed, returning a
	// handle that can be passed to Cancel. Mirrors time.AfterFunc.
	After(d time.Duration, callback func()) TimerHandle

	// Cancel aborts a pending callback scheduled by After. Canceling an
	// already-fired or already-canceled handle is a no-op.
	Cancel(h TimerHandle)
}

// TimerHandle identifies a pending Clock.After callback.
type TimerHandle interface{}

// RandomOracle is the shared source of cryptographic randomness used for
// nonce/anchor-contribution generation. Named explicitly in spec.md
// §6.2/§8; the teacher calls directly into crypto/rand instead of through an
// injected capability, but this engine follows the same injection pattern
// it already uses for Signer/TxBuilder so hosts can substitute a
// deterministic oracle under test. Must be safe for concurrent use (§5).
type RandomOracle interface {
	Read(p []byte) (n int, err error)
}

// Side identifies one of the two parties to a channel (spec.md §3).
type Side uint8

const (
	// Ours identifies the local party.
	Ours Side = iota
	// Theirs identifies the remote counterparty.
	Theirs
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == Ours {
		return "ours"
	}
	return "theirs"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Ours {
		return Theirs
	}
	return Ours
}
