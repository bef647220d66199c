// Command chandemo is a minimal host harness: it wires an in-memory
// TxBuilder/Signer/PacketTransport pair together and drives two
// lnpeer.ChannelEngines through the open handshake, a single HTLC round
// trip, and a mutual close, logging each milestone along the way. It exists to
// demonstrate the engine end to end without reintroducing the wallet/RPC/CLI
// scope spec.md §1 explicitly excludes.
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnpeer"
	"github.com/lightningnetwork/lnchannel/signer"
	"github.com/lightningnetwork/lnchannel/txbuilder"
)

var backendLog = btclog.NewBackend(os.Stdout)
var log = backendLog.Logger("DEMO")

// party bundles one side's engine with the keys its AnchorOffer and Signer
// must agree on, mirroring lnpeer's own test harness.
type party struct {
	engine    *lnpeer.ChannelEngine
	commitKey *btcec.PrivateKey
	finalKey  *btcec.PrivateKey
	offer     lnpeer.AnchorOffer
}

func newParty(funder bool, capacitySat btcutil.Amount, cfg *lnchannel.Config) (*party, error) {
	commitKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	finalKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}

	return &party{
		commitKey: commitKey,
		finalKey:  finalKey,
		offer: lnpeer.AnchorOffer{
			CapacitySat:      capacitySat,
			InitialFeeRate:   cfg.CommitmentFeeRateMin,
			MinDepth:         1,
			DelaySeconds:     144,
			DustLimit:        btcutil.Amount(546),
			WillCreateAnchor: funder,
			CommitKey:        commitKey.PubKey(),
			FinalKey:         finalKey.PubKey(),
		},
	}, nil
}

func waitForState(e *lnpeer.ChannelEngine, want lnpeer.State, timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.State() == want {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("timed out waiting for %s, still %s", want, e.State())
		}
	}
}

func run() error {
	cfg := lnchannel.DefaultConfig()
	netParams := &chaincfg.RegressionNetParams

	alice, err := newParty(true, 1_000_000, cfg)
	if err != nil {
		return err
	}
	bob, err := newParty(false, 1_000_000, cfg)
	if err != nil {
		return err
	}

	aliceTransport, bobTransport := newLoopbackPair()

	alice.engine = lnpeer.New(cfg, aliceTransport,
		signer.NewLocal(alice.commitKey, alice.finalKey, alice.commitKey, bob.commitKey.PubKey()),
		txbuilder.NewDefault(netParams), wallClock{}, rand.Reader, []byte("alice"), nil)
	bob.engine = lnpeer.New(cfg, bobTransport,
		signer.NewLocal(bob.commitKey, bob.finalKey, bob.commitKey, alice.commitKey.PubKey()),
		txbuilder.NewDefault(netParams), wallClock{}, rand.Reader, []byte("bob"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan struct{}, 2)
	go func() { defer func() { runDone <- struct{}{} }(); alice.engine.Run(ctx) }()
	go func() { defer func() { runDone <- struct{}{} }(); bob.engine.Run(ctx) }()

	log.Info("opening channel")
	if err := alice.engine.Open(alice.offer); err != nil {
		return err
	}
	if err := bob.engine.Open(bob.offer); err != nil {
		return err
	}
	if err := waitForState(alice.engine, lnpeer.StateOpenWaitForAnchor, 2*time.Second); err != nil {
		return err
	}

	outpoint := wire.OutPoint{Index: 0}
	if _, err := rand.Read(outpoint.Hash[:]); err != nil {
		return err
	}
	if err := alice.engine.ProvideAnchor(lnpeer.AnchorInput{
		Outpoint:    outpoint,
		CapacitySat: alice.offer.CapacitySat,
	}); err != nil {
		return err
	}
	if err := waitForState(alice.engine, lnpeer.StateNormal, 2*time.Second); err != nil {
		return err
	}
	if err := waitForState(bob.engine, lnpeer.StateNormal, 2*time.Second); err != nil {
		return err
	}
	log.Info("channel is open, both sides in NORMAL")

	preimage := sha256.Sum256([]byte("chandemo payment"))
	rhash := sha256.Sum256(preimage[:])

	log.Info("alice adds a 50,000,000 msat HTLC to bob")
	id, err := alice.engine.AddHtlc(50_000_000, 500, rhash, nil)
	if err != nil {
		return err
	}

	time.Sleep(50 * time.Millisecond)

	log.Infof("bob fulfills htlc %d", id)
	if err := bob.engine.FulfillHtlc(id, preimage); err != nil {
		return err
	}

	time.Sleep(50 * time.Millisecond)

	log.Info("beginning mutual close")
	if err := alice.engine.BeginClearing(); err != nil {
		return err
	}
	if err := bob.engine.BeginClearing(); err != nil {
		return err
	}
	if err := waitForState(alice.engine, lnpeer.StateClosed, 2*time.Second); err != nil {
		return err
	}
	if err := waitForState(bob.engine, lnpeer.StateClosed, 2*time.Second); err != nil {
		return err
	}
	log.Info("both sides reached CLOSED")

	cancel()
	<-runDone
	<-runDone
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chandemo: %v\n", err)
		os.Exit(1)
	}
}
