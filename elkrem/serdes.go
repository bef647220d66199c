package elkrem

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

/* Serialization and deserialization methods for the Elkrem structs.
Senders turn into 32 byte long slices (the root secret). Receivers are
variable length, with 41 bytes for each stored spine node (1 byte height, 8
byte index, 32 byte hash), up to a maximum of maxHeight+1 nodes. Receivers
are prepended with the total number of nodes, so the total max size is
(maxHeight+1)*41 + 1 bytes.

Adapted from the teacher's elkrem/serdes.go: wire.ShaHash is replaced with
chainhash.Hash (this tree's hash type throughout), and the descending-height
ordering sanity check is dropped since AddNext here does not guarantee
insertion order matches height order (a later, shallower-height revelation
can subsume several earlier, deeper ones in one step).
*/

// ToBytes turns the Elkrem Receiver into a bunch of bytes in a slice.
// first the number of nodes (1 byte), then a series of 41 byte long
// serialized nodes, which are 1 byte height, 8 byte index, 32 byte hash.
func (e *ElkremReceiver) ToBytes() ([]byte, error) {
	numOfNodes := uint8(len(e.s))
	// 0 element receiver also OK. Just an empty slice.
	if numOfNodes == 0 {
		return nil, nil
	}
	if int(numOfNodes) > maxHeight+1 {
		return nil, fmt.Errorf("broken ElkremReceiver has %d nodes, max %d",
			len(e.s), maxHeight+1)
	}
	var buf bytes.Buffer

	// write number of nodes (1 byte)
	if err := binary.Write(&buf, binary.BigEndian, numOfNodes); err != nil {
		return nil, err
	}
	for _, node := range e.s {
		// write 1 byte height
		if err := binary.Write(&buf, binary.BigEndian, node.h); err != nil {
			return nil, err
		}
		// write 8 byte index
		if err := binary.Write(&buf, binary.BigEndian, node.i); err != nil {
			return nil, err
		}
		if node.sha == nil {
			return nil, fmt.Errorf("node %d has nil hash", node.i)
		}
		// write 32 byte sha hash
		n, err := buf.Write(node.sha[:])
		if err != nil {
			return nil, err
		}
		if n != chainhash.HashSize {
			return nil, fmt.Errorf("%d byte hash, expect %d", n, chainhash.HashSize)
		}
	}
	if buf.Len() != (int(numOfNodes)*41)+1 {
		return nil, fmt.Errorf("wrong size buf, got %d expect %d",
			buf.Len(), (int(numOfNodes)*41)+1)
	}
	return buf.Bytes(), nil
}

// ElkremReceiverFromBytes reconstructs a receiver from its serialized spine,
// the inverse of ToBytes.
func ElkremReceiverFromBytes(b []byte) (*ElkremReceiver, error) {
	var e ElkremReceiver
	if len(b) == 0 { // empty receiver, which is OK
		return &e, nil
	}
	buf := bytes.NewBuffer(b)

	numOfNodes, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	if numOfNodes < 1 || int(numOfNodes) > maxHeight+1 {
		return nil, fmt.Errorf("read invalid number of nodes: %d", numOfNodes)
	}
	if buf.Len() != (int(numOfNodes) * 41) {
		return nil, fmt.Errorf("remaining buf wrong size, expect %d got %d",
			numOfNodes*41, buf.Len())
	}

	e.s = make([]ElkremNode, numOfNodes)

	for j := range e.s {
		e.s[j].sha = new(chainhash.Hash)

		if err := binary.Read(buf, binary.BigEndian, &e.s[j].h); err != nil {
			return nil, err
		}
		if err := binary.Read(buf, binary.BigEndian, &e.s[j].i); err != nil {
			return nil, err
		}
		if err := e.s[j].sha.SetBytes(buf.Next(32)); err != nil {
			return nil, err
		}

		if int(e.s[j].h) > maxHeight {
			return nil, fmt.Errorf("read invalid node height %d", e.s[j].h)
		}
		if e.s[j].i > maxIndex {
			return nil, fmt.Errorf("node claims index %d; %d max",
				e.s[j].i, maxIndex)
		}
	}
	return &e, nil
}
