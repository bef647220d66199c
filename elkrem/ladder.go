package elkrem

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// RevocationLadder is the per-peer structure named in spec.md §4.5: it
// stores and verifies revocation preimages for all prior commitments,
// indexed so any ancestor is recoverable without retaining every preimage
// individually. It wraps an ElkremReceiver, applying the
// "index = MAX_U64 - commit_num" inversion spec.md §4.4 step 2 specifies:
// since preimages are revealed in increasing commit_num order, this maps
// revelation order onto decreasing elkrem index order, which is the
// direction AddNext/At's derivation actually runs in (a lower-index,
// later-revealed secret can always regenerate a higher-index, earlier one).
type RevocationLadder struct {
	recv *ElkremReceiver
}

// NewRevocationLadder returns an empty ladder.
func NewRevocationLadder() *RevocationLadder {
	return &RevocationLadder{recv: NewElkremReceiver()}
}

// commitIndex converts a commit_num into its elkrem storage index.
func commitIndex(commitNum uint64) uint64 {
	return math.MaxUint64 - commitNum
}

// Insert stores the preimage retiring the commitment at commitNum,
// verifying it is consistent with every previously stored preimage
// (spec.md §4.5 insert; §8 property 5). A failed consistency check maps to
// ErrorKind ShachainBreak at the call site.
func (l *RevocationLadder) Insert(commitNum uint64, preimage chainhash.Hash) error {
	if err := l.recv.AddNext(commitIndex(commitNum), preimage); err != nil {
		return fmt.Errorf("shachain break at commit_num %d: %w", commitNum, err)
	}
	return nil
}

// Derive regenerates the preimage for commitNum, or returns an error if it
// was never revealed (or predates every retained ancestor — which cannot
// happen for a correctly operating counterparty, since every revealed
// preimage strictly descends from all before it).
func (l *RevocationLadder) Derive(commitNum uint64) (*chainhash.Hash, error) {
	return l.recv.At(commitIndex(commitNum))
}

// Len reports the number of spine nodes currently retained — always
// O(log N) in the number of commitments retired so far (§8, property 5).
func (l *RevocationLadder) Len() int {
	return l.recv.Count()
}

// ToBytes serializes the ladder for persistence (channeldb, §6.3).
func (l *RevocationLadder) ToBytes() ([]byte, error) {
	return l.recv.ToBytes()
}

// RevocationLadderFromBytes reconstructs a ladder from its serialized form.
func RevocationLadderFromBytes(b []byte) (*RevocationLadder, error) {
	recv, err := ElkremReceiverFromBytes(b)
	if err != nil {
		return nil, err
	}
	return &RevocationLadder{recv: recv}, nil
}
