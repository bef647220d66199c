package lnwallet

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	lnchannel "github.com/lightningnetwork/lnchannel"
)

// AnchorMeta describes the on-chain anchor output a channel spends from,
// supplementing spec.md §3's bare "anchor meta" mention with concrete
// fields grounded on the teacher's ChannelContribution
// (lnwallet/reservation.go).
type AnchorMeta struct {
	Outpoint        wire.OutPoint
	CapacitySat     btcutil.Amount
	FunderSide      lnchannel.Side
	MultisigScript  []byte
	DelaySeconds    uint32
	DustLimit       btcutil.Amount
}
