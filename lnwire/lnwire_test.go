package lnwire

import (
	"bytes"
	"math"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func randPubKey(t *testing.T) *btcec.PublicKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv.PubKey()
}

func TestEmptyMessageUnknownType(t *testing.T) {
	t.Parallel()

	_, err := makeEmptyMessage(MessageType(math.MaxUint16))
	require.Error(t, err)
}

// TestLightningWireProtocol round-trips every message in the spec.md §4.8
// union through WriteMessage/ReadMessage, covering testable property 10
// (encode(decode(bytes)) == bytes, decode(encode(pkt)) == pkt).
func TestLightningWireProtocol(t *testing.T) {
	t.Parallel()

	var chanHash chainhash.Hash
	copy(chanHash[:], bytes.Repeat([]byte{0xaa}, 32))

	anchor := wire.OutPoint{Hash: chanHash, Index: 1}
	chanID := NewChannelID(anchor)

	msgs := []Message{
		&Open{
			PendingChannelID: 42,
			InitialFeeRate:   5000,
			MinDepth:         3,
			DelaySeconds:     144 * 600,
			DustLimit:        546,
			CommitKey:        randPubKey(t),
			FinalKey:         randPubKey(t),
			WillCreateAnchor: true,
		},
		&OpenAnchor{
			PendingChannelID:     42,
			AnchorOutpoint:       anchor,
			CapacitySat:          1_000_000,
			PushMsat:             0,
			FirstRevocationHash:  chanHash,
		},
		&OpenCommitSig{
			ChanID:               chanID,
			CommitSig:            bytes.Repeat([]byte{0x01}, 64),
			FirstRevocationHash:  chanHash,
			NextRevocationHashes: []chainhash.Hash{chanHash, chanHash},
		},
		&OpenComplete{ChanID: chanID},
		&UpdateAddHtlc{
			ChanID:     chanID,
			ID:         7,
			AmountMsat: 100_000_000,
			RHash:      [32]byte{0x02},
			Expiry:     1893456000,
			Route:      []byte("opaque-onion-blob"),
		},
		&UpdateFulfillHtlc{
			ChanID:          chanID,
			ID:              7,
			PaymentPreimage: [32]byte{0x03},
		},
		&UpdateFailHtlc{
			ChanID: chanID,
			ID:     8,
			Reason: []byte("expired"),
		},
		&UpdateCommit{
			ChanID:    chanID,
			CommitSig: bytes.Repeat([]byte{0x04}, 64),
		},
		&UpdateRevocation{
			ChanID:              chanID,
			Preimage:            [32]byte{0x05},
			NextRevocationHash:  [32]byte{0x06},
		},
		&CloseClearing{
			ChanID: chanID,
			Script: []byte{0xa9, 0x14, 0xff, 0xff, 0x87},
		},
		&CloseSignature{
			ChanID:      chanID,
			FeeSatoshis: 1500,
			Signature:   bytes.Repeat([]byte{0x07}, 64),
		},
		&Error{
			ChanID:  chanID,
			Problem: []byte("bad signature"),
		},
		&ChanSync{
			ChanID:           chanID,
			NextCommitHeight: 4,
			RemoteTailHeight: 3,
		},
	}

	for _, msg := range msgs {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, msg), "%T encode", msg)

		wireBytes := append([]byte(nil), buf.Bytes()...)

		decoded, err := ReadMessage(&buf)
		require.NoError(t, err, "%T decode", msg)
		require.Equal(t, msg, decoded, "%T round-trip mismatch", msg)

		// Re-encoding the decoded message must reproduce the exact
		// same wire bytes.
		var buf2 bytes.Buffer
		require.NoError(t, WriteMessage(&buf2, decoded))
		require.Equal(t, wireBytes, buf2.Bytes(), "%T re-encode mismatch", msg)
	}
}

func TestReadMessageRejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	var hdr [6]byte
	hdr[0], hdr[1] = 0, byte(MsgOpenComplete)
	hdr[2] = 0xff
	hdr[3] = 0xff
	hdr[4] = 0xff
	hdr[5] = 0xff

	_, err := ReadMessage(bytes.NewReader(hdr[:]))
	require.Error(t, err)
}
