package txbuilder

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	lnchannel "github.com/lightningnetwork/lnchannel"
)

// Default is the reference lnchannel.TxBuilder implementation, grounded on
// the teacher's CreateCommitTx/CreateCooperativeCloseTx free functions
// (lnwallet/channel.go) and the script helpers in scripts.go.
type Default struct {
	netParams *chaincfg.Params
}

// NewDefault returns a Default TxBuilder that derives addresses against the
// given network parameters.
func NewDefault(netParams *chaincfg.Params) *Default {
	return &Default{netParams: netParams}
}

// CreateCommitTx lays out one side's commitment transaction: a delayed
// pay-to-self output for the commitment's owner, an immediate p2wkh output
// for the counterparty, and one HTLC output per entry in htlcs, each
// script-gated the way an outgoing or incoming HTLC requires depending on
// who offered it relative to forSide.
func (d *Default) CreateCommitTx(keys lnchannel.CommitmentKeys, csvTimeout uint32,
	anchor wire.OutPoint, revocationHash chainhash.Hash, forSide lnchannel.Side,
	ourBalance, theirBalance, dustLimit btcutil.Amount,
	htlcs []lnchannel.HtlcOutput) (*wire.MsgTx, error) {

	ownerKey, counterpartyKey := keys.OurCommitKey, keys.TheirFinalKey
	ownerBalance, counterpartyBalance := ourBalance, theirBalance
	if forSide == lnchannel.Theirs {
		ownerKey, counterpartyKey = keys.TheirCommitKey, keys.OurFinalKey
		ownerBalance, counterpartyBalance = theirBalance, ourBalance
	}

	ownerScript, err := commitScriptToSelf(csvTimeout, ownerKey, keys.RevocationPoint)
	if err != nil {
		return nil, err
	}
	ownerPkScript, err := witnessScriptHash(ownerScript)
	if err != nil {
		return nil, err
	}
	counterpartyPkScript, err := commitScriptUnencumbered(counterpartyKey)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&anchor, nil, nil))

	if ownerBalance >= dustLimit {
		tx.AddTxOut(&wire.TxOut{PkScript: ownerPkScript, Value: int64(ownerBalance)})
	}
	if counterpartyBalance >= dustLimit {
		tx.AddTxOut(&wire.TxOut{PkScript: counterpartyPkScript, Value: int64(counterpartyBalance)})
	}

	for _, htlc := range htlcs {
		amt := btcutil.Amount(htlc.AmountMsat / 1000)
		if amt < dustLimit {
			continue
		}

		var script []byte
		var err error
		offeredOnThisSide := htlc.OfferedBy == forSide
		if offeredOnThisSide {
			script, err = senderHTLCScript(
				htlc.Expiry, csvTimeout, ownerKey, counterpartyKey,
				revocationHash[:], htlc.RHash[:],
			)
		} else {
			script, err = receiverHTLCScript(
				htlc.Expiry, csvTimeout, counterpartyKey, ownerKey,
				revocationHash[:], htlc.RHash[:],
			)
		}
		if err != nil {
			return nil, err
		}

		pkScript, err := witnessScriptHash(script)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(&wire.TxOut{PkScript: pkScript, Value: int64(amt)})
	}

	return tx, nil
}

// CreateCloseTx lays out the mutual-close transaction: one output per side,
// each omitted if it would be dust.
func (d *Default) CreateCloseTx(anchor wire.OutPoint, ourBalance, theirBalance,
	ourDust, theirDust btcutil.Amount, ourDeliveryScript,
	theirDeliveryScript []byte, initiator bool) (*wire.MsgTx, error) {

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&anchor, nil, nil))

	if ourBalance >= ourDust {
		tx.AddTxOut(&wire.TxOut{PkScript: ourDeliveryScript, Value: int64(ourBalance)})
	}
	if theirBalance >= theirDust {
		tx.AddTxOut(&wire.TxOut{PkScript: theirDeliveryScript, Value: int64(theirBalance)})
	}

	return tx, nil
}

// Redeem2of2 returns the anchor's bare 2-of-2 multisig redeem script.
func (d *Default) Redeem2of2(keyA, keyB *btcec.PublicKey) ([]byte, error) {
	return genMultiSigScript(keyA.SerializeCompressed(), keyB.SerializeCompressed())
}

// RedeemSingle returns the unencumbered p2wkh-style script paying key,
// the single-key counterpart of Redeem2of2 used for a close delivery
// output (spec.md §4.4, begin_clearing).
func (d *Default) RedeemSingle(key *btcec.PublicKey) ([]byte, error) {
	return commitScriptUnencumbered(key)
}

// P2SH returns the p2wsh address wrapping script under d's network
// parameters.
func (d *Default) P2SH(script []byte) (btcutil.Address, error) {
	hash := sha256.Sum256(script)
	return btcutil.NewAddressWitnessScriptHash(hash[:], d.netParams)
}
