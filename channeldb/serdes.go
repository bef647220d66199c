package channeldb

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	lnchannel "github.com/lightningnetwork/lnchannel"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// Serialization of lnwallet's CommitInfo chains and ChannelState snapshots,
// grounded on the same bytes.Buffer/encoding/binary idiom the teacher's
// channeldb/db.go and elkrem/serdes.go both use for fixed-order binary
// records.

func writeBytesLP(buf *bytes.Buffer, b []byte) error {
	var lenBuf [4]byte
	byteOrder.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
	return nil
}

func readBytesLP(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := byteOrder.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func serializeHtlc(buf *bytes.Buffer, h lnwallet.ChannelHtlc) error {
	var fixed [1 + 8 + 8 + 32 + 4]byte
	off := 0
	fixed[off] = byte(h.OfferedBy)
	off++
	byteOrder.PutUint64(fixed[off:], h.ID)
	off += 8
	byteOrder.PutUint64(fixed[off:], uint64(h.AmountMsat))
	off += 8
	copy(fixed[off:], h.RHash[:])
	off += 32
	byteOrder.PutUint32(fixed[off:], h.Expiry)
	buf.Write(fixed[:])
	return writeBytesLP(buf, h.Route)
}

func deserializeHtlc(r io.Reader) (lnwallet.ChannelHtlc, error) {
	var fixed [1 + 8 + 8 + 32 + 4]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return lnwallet.ChannelHtlc{}, err
	}
	off := 0
	h := lnwallet.ChannelHtlc{}
	h.OfferedBy = lnchannel.Side(fixed[off])
	off++
	h.ID = byteOrder.Uint64(fixed[off:])
	off += 8
	h.AmountMsat = lnwire.MilliSatoshi(byteOrder.Uint64(fixed[off:]))
	off += 8
	copy(h.RHash[:], fixed[off:off+32])
	off += 32
	h.Expiry = byteOrder.Uint32(fixed[off:])

	route, err := readBytesLP(r)
	if err != nil {
		return lnwallet.ChannelHtlc{}, err
	}
	h.Route = route
	return h, nil
}

func serializeChannelState(buf *bytes.Buffer, s *lnwallet.ChannelState) error {
	var fixed [8 + 1 + 8 + 8 + 8 + 8]byte
	off := 0
	byteOrder.PutUint64(fixed[off:], uint64(s.AnchorSatoshis))
	off += 8
	fixed[off] = byte(s.FunderSide)
	off++
	byteOrder.PutUint64(fixed[off:], uint64(s.FeePerKw))
	off += 8
	byteOrder.PutUint64(fixed[off:], s.Changes)
	off += 8
	byteOrder.PutUint64(fixed[off:], uint64(s.Balance[lnchannel.Ours]))
	off += 8
	byteOrder.PutUint64(fixed[off:], uint64(s.Balance[lnchannel.Theirs]))
	buf.Write(fixed[:])

	for _, side := range []lnchannel.Side{lnchannel.Ours, lnchannel.Theirs} {
		htlcs := s.Htlcs[side]
		var countBuf [4]byte
		byteOrder.PutUint32(countBuf[:], uint32(len(htlcs)))
		buf.Write(countBuf[:])
		for _, h := range htlcs {
			if err := serializeHtlc(buf, h); err != nil {
				return err
			}
		}
	}
	return nil
}

func deserializeChannelState(r io.Reader) (*lnwallet.ChannelState, error) {
	var fixed [8 + 1 + 8 + 8 + 8 + 8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, err
	}
	off := 0
	anchorSat := btcutil.Amount(byteOrder.Uint64(fixed[off:]))
	off += 8
	funder := lnchannel.Side(fixed[off])
	off++
	feePerKw := btcutil.Amount(byteOrder.Uint64(fixed[off:]))
	off += 8
	changes := byteOrder.Uint64(fixed[off:])
	off += 8
	ourBal := lnwire.MilliSatoshi(byteOrder.Uint64(fixed[off:]))
	off += 8
	theirBal := lnwire.MilliSatoshi(byteOrder.Uint64(fixed[off:]))

	s := lnwallet.NewChannelState(anchorSat, funder, feePerKw)
	s.Changes = changes
	s.Balance[lnchannel.Ours] = ourBal
	s.Balance[lnchannel.Theirs] = theirBal

	for _, side := range []lnchannel.Side{lnchannel.Ours, lnchannel.Theirs} {
		var countBuf [4]byte
		if _, err := io.ReadFull(r, countBuf[:]); err != nil {
			return nil, err
		}
		count := byteOrder.Uint32(countBuf[:])
		htlcs := make([]lnwallet.ChannelHtlc, count)
		for i := range htlcs {
			h, err := deserializeHtlc(r)
			if err != nil {
				return nil, err
			}
			htlcs[i] = h
		}
		s.Htlcs[side] = htlcs
	}
	return s, nil
}

func serializeStagingChange(buf *bytes.Buffer, c lnwallet.StagingChange) error {
	buf.WriteByte(byte(c.Kind))
	switch c.Kind {
	case lnwallet.ChangeAdd:
		return serializeHtlc(buf, c.Htlc)
	case lnwallet.ChangeFulfill:
		var fixed [8 + 1 + 32]byte
		byteOrder.PutUint64(fixed[0:], c.ID)
		fixed[8] = byte(c.OfferedBy)
		copy(fixed[9:], c.Preimage[:])
		buf.Write(fixed[:])
		return nil
	case lnwallet.ChangeFail:
		var fixed [8 + 1]byte
		byteOrder.PutUint64(fixed[0:], c.ID)
		fixed[8] = byte(c.OfferedBy)
		buf.Write(fixed[:])
		return writeBytesLP(buf, c.Reason)
	default:
		return fmt.Errorf("channeldb: unknown StagingChange kind %d", c.Kind)
	}
}

func deserializeStagingChange(r io.Reader) (lnwallet.StagingChange, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return lnwallet.StagingChange{}, err
	}
	switch lnwallet.ChangeKind(kindBuf[0]) {
	case lnwallet.ChangeAdd:
		h, err := deserializeHtlc(r)
		if err != nil {
			return lnwallet.StagingChange{}, err
		}
		return lnwallet.NewAddChange(h), nil
	case lnwallet.ChangeFulfill:
		var fixed [8 + 1 + 32]byte
		if _, err := io.ReadFull(r, fixed[:]); err != nil {
			return lnwallet.StagingChange{}, err
		}
		id := byteOrder.Uint64(fixed[0:])
		side := lnchannel.Side(fixed[8])
		var preimage [32]byte
		copy(preimage[:], fixed[9:])
		return lnwallet.NewFulfillChange(id, side, preimage), nil
	case lnwallet.ChangeFail:
		var fixed [8 + 1]byte
		if _, err := io.ReadFull(r, fixed[:]); err != nil {
			return lnwallet.StagingChange{}, err
		}
		id := byteOrder.Uint64(fixed[0:])
		side := lnchannel.Side(fixed[8])
		reason, err := readBytesLP(r)
		if err != nil {
			return lnwallet.StagingChange{}, err
		}
		return lnwallet.NewFailChange(id, side, reason), nil
	default:
		return lnwallet.StagingChange{}, fmt.Errorf("channeldb: unknown StagingChange kind %d", kindBuf[0])
	}
}

// serializePendingChanges writes the length-prefixed list of StagingChanges
// a SideView has applied since its chain tip, so RestoreChannel can replay
// them back onto Staging after a crash instead of losing them: they are
// not yet part of any CommitInfo's UnackedChanges, so the commit-chain
// serialization below never sees them.
func serializePendingChanges(buf *bytes.Buffer, changes []lnwallet.StagingChange) error {
	var countBuf [4]byte
	byteOrder.PutUint32(countBuf[:], uint32(len(changes)))
	buf.Write(countBuf[:])
	for _, c := range changes {
		if err := serializeStagingChange(buf, c); err != nil {
			return err
		}
	}
	return nil
}

// deserializePendingChanges is serializePendingChanges's inverse.
func deserializePendingChanges(r io.Reader) ([]lnwallet.StagingChange, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := byteOrder.Uint32(countBuf[:])
	out := make([]lnwallet.StagingChange, count)
	for i := range out {
		c, err := deserializeStagingChange(r)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// serializeCommitChain walks tip back to the root via Prev and writes the
// chain root-first, so deserializeCommitChain can rebuild Prev links by
// reading in the same order.
func serializeCommitChain(buf *bytes.Buffer, tip *lnwallet.CommitInfo) error {
	var nodes []*lnwallet.CommitInfo
	for c := tip; c != nil; c = c.Prev {
		nodes = append(nodes, c)
	}
	// nodes is tip-first; reverse to root-first.
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	var countBuf [4]byte
	byteOrder.PutUint32(countBuf[:], uint32(len(nodes)))
	buf.Write(countBuf[:])

	for _, ci := range nodes {
		if err := serializeCommitNode(buf, ci); err != nil {
			return err
		}
	}
	return nil
}

func serializeCommitNode(buf *bytes.Buffer, ci *lnwallet.CommitInfo) error {
	var commitNumBuf [8]byte
	byteOrder.PutUint64(commitNumBuf[:], ci.CommitNum)
	buf.Write(commitNumBuf[:])
	buf.Write(ci.RevocationHash[:])

	if err := serializeChannelState(buf, ci.State); err != nil {
		return err
	}

	if ci.Tx != nil {
		var txBuf bytes.Buffer
		if err := ci.Tx.Serialize(&txBuf); err != nil {
			return err
		}
		if err := writeBytesLP(buf, txBuf.Bytes()); err != nil {
			return err
		}
	} else {
		if err := writeBytesLP(buf, nil); err != nil {
			return err
		}
	}

	if err := writeBytesLP(buf, ci.RemoteSig); err != nil {
		return err
	}

	if ci.RevocationPreimage != nil {
		buf.WriteByte(1)
		buf.Write(ci.RevocationPreimage[:])
	} else {
		buf.WriteByte(0)
	}

	var unackedCountBuf [4]byte
	byteOrder.PutUint32(unackedCountBuf[:], uint32(len(ci.UnackedChanges)))
	buf.Write(unackedCountBuf[:])
	for _, c := range ci.UnackedChanges {
		if err := serializeStagingChange(buf, c); err != nil {
			return err
		}
	}
	return nil
}

func serializeAnchorMeta(buf *bytes.Buffer, a *lnwallet.AnchorMeta) error {
	buf.Write(a.Outpoint.Hash[:])
	var idxBuf [4]byte
	byteOrder.PutUint32(idxBuf[:], a.Outpoint.Index)
	buf.Write(idxBuf[:])

	var fixed [8 + 1 + 4 + 8]byte
	off := 0
	byteOrder.PutUint64(fixed[off:], uint64(a.CapacitySat))
	off += 8
	fixed[off] = byte(a.FunderSide)
	off++
	byteOrder.PutUint32(fixed[off:], a.DelaySeconds)
	off += 4
	byteOrder.PutUint64(fixed[off:], uint64(a.DustLimit))
	buf.Write(fixed[:])

	return writeBytesLP(buf, a.MultisigScript)
}

func deserializeAnchorMeta(r io.Reader) (*lnwallet.AnchorMeta, error) {
	var hash chainhash.Hash
	if _, err := io.ReadFull(r, hash[:]); err != nil {
		return nil, err
	}
	var idxBuf [4]byte
	if _, err := io.ReadFull(r, idxBuf[:]); err != nil {
		return nil, err
	}

	var fixed [8 + 1 + 4 + 8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, err
	}
	off := 0
	capacitySat := btcutil.Amount(byteOrder.Uint64(fixed[off:]))
	off += 8
	funder := lnchannel.Side(fixed[off])
	off++
	delaySeconds := byteOrder.Uint32(fixed[off:])
	off += 4
	dustLimit := btcutil.Amount(byteOrder.Uint64(fixed[off:]))

	script, err := readBytesLP(r)
	if err != nil {
		return nil, err
	}

	return &lnwallet.AnchorMeta{
		Outpoint:       wire.OutPoint{Hash: hash, Index: byteOrder.Uint32(idxBuf[:])},
		CapacitySat:    capacitySat,
		FunderSide:     funder,
		MultisigScript: script,
		DelaySeconds:   delaySeconds,
		DustLimit:      dustLimit,
	}, nil
}

func deserializeCommitChain(r io.Reader) (*lnwallet.CommitInfo, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := byteOrder.Uint32(countBuf[:])

	var tip *lnwallet.CommitInfo
	for i := uint32(0); i < count; i++ {
		ci, err := deserializeCommitNode(r, tip)
		if err != nil {
			return nil, err
		}
		tip = ci
	}
	return tip, nil
}

func deserializeCommitNode(r io.Reader, prev *lnwallet.CommitInfo) (*lnwallet.CommitInfo, error) {
	var commitNumBuf [8]byte
	if _, err := io.ReadFull(r, commitNumBuf[:]); err != nil {
		return nil, err
	}
	commitNum := byteOrder.Uint64(commitNumBuf[:])

	var revHash chainhash.Hash
	if _, err := io.ReadFull(r, revHash[:]); err != nil {
		return nil, err
	}

	state, err := deserializeChannelState(r)
	if err != nil {
		return nil, err
	}

	txBytes, err := readBytesLP(r)
	if err != nil {
		return nil, err
	}
	var tx *wire.MsgTx
	if len(txBytes) > 0 {
		tx = wire.NewMsgTx(wire.TxVersion)
		if err := tx.Deserialize(bytes.NewReader(txBytes)); err != nil {
			return nil, err
		}
	}

	remoteSig, err := readBytesLP(r)
	if err != nil {
		return nil, err
	}

	var hasPreimage [1]byte
	if _, err := io.ReadFull(r, hasPreimage[:]); err != nil {
		return nil, err
	}
	var preimage *chainhash.Hash
	if hasPreimage[0] == 1 {
		var p chainhash.Hash
		if _, err := io.ReadFull(r, p[:]); err != nil {
			return nil, err
		}
		preimage = &p
	}

	var unackedCountBuf [4]byte
	if _, err := io.ReadFull(r, unackedCountBuf[:]); err != nil {
		return nil, err
	}
	unackedCount := byteOrder.Uint32(unackedCountBuf[:])
	unacked := make([]lnwallet.StagingChange, unackedCount)
	for i := range unacked {
		c, err := deserializeStagingChange(r)
		if err != nil {
			return nil, err
		}
		unacked[i] = c
	}

	ci := &lnwallet.CommitInfo{
		Prev:               prev,
		CommitNum:          commitNum,
		RevocationHash:     revHash,
		State:              state,
		Tx:                 tx,
		RemoteSig:          remoteSig,
		RevocationPreimage: preimage,
		UnackedChanges:     unacked,
	}
	return ci, nil
}
