package lnpeer

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/lightningnetwork/lnchannel/signer"
	"github.com/lightningnetwork/lnchannel/txbuilder"
	"github.com/stretchr/testify/require"
)

// fakeTransport links one ChannelEngine's PacketTransport to a paired
// in-memory channel, the way the teacher's brontide.Conn links a peer to a
// live TCP socket — here the socket is just a Go channel, since network
// framing is out of scope (spec.md §1).
type fakeTransport struct {
	out chan<- lnwire.Message
	in  <-chan lnwire.Message
}

func (t *fakeTransport) Send(pkt lnwire.Message) error {
	t.out <- pkt
	return nil
}

func (t *fakeTransport) Recv() (lnwire.Message, error) {
	pkt, ok := <-t.in
	if !ok {
		return nil, lnchannel.ErrPeerGone
	}
	return pkt, nil
}

// linkedTransports wires two fakeTransports back to back, buffered deeply
// enough that a handler's cascade of replies (e.g. one OpenAnchor provoking
// an OpenCommitSig, OpenComplete, ...) never blocks on the peer's forwarding
// goroutine keeping up.
func linkedTransports() (a, b *fakeTransport) {
	atob := make(chan lnwire.Message, 64)
	btoa := make(chan lnwire.Message, 64)
	return &fakeTransport{out: atob, in: btoa}, &fakeTransport{out: btoa, in: atob}
}

// fakeClock fires After's callback synchronously on the calling goroutine.
// Since the callback only ever does a non-blocking send on the engine's
// buffered timerSignal channel, this just collapses the batching window to
// zero for tests without changing the signal path the production Clock.After
// implementation would use.
type fakeClock struct{}

func (fakeClock) Now() time.Time { return time.Now() }

func (fakeClock) After(_ time.Duration, callback func()) lnchannel.TimerHandle {
	callback()
	return nil
}

func (fakeClock) Cancel(lnchannel.TimerHandle) {}

// testParty bundles one side's engine together with the keys its offer and
// Signer must agree on.
type testParty struct {
	engine    *ChannelEngine
	transport *fakeTransport
	commitKey *btcec.PrivateKey
	finalKey  *btcec.PrivateKey
	offer     AnchorOffer
}

// newTestPair builds two ChannelEngines, Alice and Bob, wired to each other
// via linkedTransports and sharing real Signer/TxBuilder reference
// implementations (so the handshake exercises genuine signature
// verification rather than a stub). Alice is the anchor funder.
func newTestPair(t *testing.T) (alice, bob *testParty) {
	t.Helper()
	return newTestPairCapacity(t, 1_000_000)
}

// newTestPairCapacity is newTestPair with an overridable anchor capacity, for
// tests (e.g. the per-side HTLC cap) that need headroom for many HTLCs.
func newTestPairCapacity(t *testing.T, capacitySat btcutil.Amount) (alice, bob *testParty) {
	t.Helper()

	aliceTransport, bobTransport := linkedTransports()
	cfg := lnchannel.DefaultConfig()

	alice = newTestParty(t, cfg, aliceTransport, true, capacitySat)
	bob = newTestParty(t, cfg, bobTransport, false, capacitySat)

	// Each side's Signer needs the other's commit pubkey to derive a
	// channel-unique elkrem root (deriveElkremRoot), mirroring how the
	// teacher keys FundingLocked off of both sides' multisig keys.
	alice.engine = newEngine(t, cfg, aliceTransport, alice.commitKey, alice.closeKeyOf(), bob.commitKey.PubKey())
	bob.engine = newEngine(t, cfg, bobTransport, bob.commitKey, bob.closeKeyOf(), alice.commitKey.PubKey())

	return alice, bob
}

func newTestParty(t *testing.T, cfg *lnchannel.Config, transport *fakeTransport,
	funder bool, capacitySat btcutil.Amount) *testParty {

	t.Helper()

	commitKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	finalKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	return &testParty{
		transport: transport,
		commitKey: commitKey,
		finalKey:  finalKey,
		offer: AnchorOffer{
			CapacitySat:      capacitySat,
			InitialFeeRate:   cfg.CommitmentFeeRateMin,
			MinDepth:         1,
			DelaySeconds:     144,
			DustLimit:        btcutil.Amount(546),
			WillCreateAnchor: funder,
			CommitKey:        commitKey.PubKey(),
			FinalKey:         finalKey.PubKey(),
		},
	}
}

// closeKeyOf returns a throwaway close key; mutual-close signatures are
// never verified by the engine itself (spec.md §1's transaction-internals
// boundary), so each party can hold its own independently.
func (p *testParty) closeKeyOf() *btcec.PrivateKey {
	k, _ := btcec.NewPrivateKey()
	return k
}

func newEngine(t *testing.T, cfg *lnchannel.Config, transport *fakeTransport,
	commitKey, closeKey *btcec.PrivateKey, counterpartyCommitKey *btcec.PublicKey) *ChannelEngine {

	t.Helper()

	localSigner := signer.NewLocal(commitKey, closeKey, commitKey, counterpartyCommitKey)
	builder := txbuilder.NewDefault(&chaincfg.RegressionNetParams)

	return New(cfg, transport, localSigner, builder, fakeClock{}, rand.Reader, []byte("peer"), nil)
}

// runPair starts both engines' Run loops and returns a cancel func that
// stops both and blocks until they've exited.
func runPair(t *testing.T, alice, bob *testParty) (cancel func()) {
	t.Helper()

	ctx, cancelCtx := context.WithCancel(context.Background())
	doneA := make(chan struct{})
	doneB := make(chan struct{})

	go func() {
		defer close(doneA)
		alice.engine.Run(ctx)
	}()
	go func() {
		defer close(doneB)
		bob.engine.Run(ctx)
	}()

	return func() {
		cancelCtx()
		<-doneA
		<-doneB
	}
}

// waitForState polls e's state until it matches want or timeout elapses,
// mirroring the select/time.After pattern the teacher uses throughout
// gossiper_test.go to wait on asynchronous delivery.
func waitForState(t *testing.T, e *ChannelEngine, want State, timeout time.Duration) {
	t.Helper()

	deadline := time.After(timeout)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.State() == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s, still %s", want, e.State())
		}
	}
}

// openToNormal drives alice/bob through the full open handshake (spec.md
// §4.3) and asserts both land in NORMAL.
func openToNormal(t *testing.T, alice, bob *testParty) {
	t.Helper()

	require.NoError(t, alice.engine.Open(alice.offer))
	require.NoError(t, bob.engine.Open(bob.offer))

	waitForState(t, alice.engine, StateOpenWaitForAnchor, 2*time.Second)
	waitForState(t, bob.engine, StateOpenWaitForAnchor, 2*time.Second)

	outpoint := wire.OutPoint{Index: 0}
	_, err := rand.Read(outpoint.Hash[:])
	require.NoError(t, err)

	require.NoError(t, alice.engine.ProvideAnchor(AnchorInput{
		Outpoint:    outpoint,
		CapacitySat: alice.offer.CapacitySat,
	}))

	waitForState(t, alice.engine, StateNormal, 2*time.Second)
	waitForState(t, bob.engine, StateNormal, 2*time.Second)
}

// manualHandshake drives alice/bob to NORMAL entirely on the calling
// goroutine, with no Run loop involved: every wire message is pulled off its
// transport and fed to the counterpart's accept_pkt_* handler by hand. Tests
// that need single-goroutine determinism (to inject a corrupted packet at an
// exact point without racing a real peer's automatic reply) build on this
// instead of openToNormal.
func manualHandshake(t *testing.T, alice, bob *testParty) {
	t.Helper()

	require.NoError(t, alice.engine.open(alice.offer))
	require.NoError(t, bob.engine.open(bob.offer))

	bobOpen, err := bob.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, bob.engine.acceptPktOpen(bobOpen.(*lnwire.Open)))

	aliceOpen, err := alice.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, alice.engine.acceptPktOpen(aliceOpen.(*lnwire.Open)))

	outpoint := wire.OutPoint{Index: 0}
	_, err = rand.Read(outpoint.Hash[:])
	require.NoError(t, err)

	require.NoError(t, alice.engine.provideAnchor(AnchorInput{
		Outpoint:    outpoint,
		CapacitySat: alice.offer.CapacitySat,
	}))

	bobAnchor, err := bob.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, bob.engine.acceptPktAnchor(bobAnchor.(*lnwire.OpenAnchor)))

	aliceCommitSig1, err := alice.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, alice.engine.acceptPktOpenCommitSig(aliceCommitSig1.(*lnwire.OpenCommitSig)))

	bobCommitSig2, err := bob.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, bob.engine.acceptPktOpenCommitSig(bobCommitSig2.(*lnwire.OpenCommitSig)))

	aliceComplete, err := alice.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, alice.engine.acceptPktOpenComplete(aliceComplete.(*lnwire.OpenComplete)))

	bobComplete, err := bob.transport.Recv()
	require.NoError(t, err)
	require.NoError(t, bob.engine.acceptPktOpenComplete(bobComplete.(*lnwire.OpenComplete)))

	require.Equal(t, StateNormal, alice.engine.State())
	require.Equal(t, StateNormal, bob.engine.State())
}
