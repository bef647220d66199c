package lnwire

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// MilliSatoshi represents a thousandth of a satoshi, the native unit of
// amount_msat in spec.md §3. Grounded on lnwallet.MilliSatoshi as used
// pervasively throughout the teacher's lnwallet/channel.go.
type MilliSatoshi uint64

// MSatPerSatoshi is the number of milli-satoshis in a single satoshi.
const MSatPerSatoshi = 1000

// NewMSatFromSatoshis creates a MilliSatoshi from a sum of satoshis.
func NewMSatFromSatoshis(sat btcutil.Amount) MilliSatoshi {
	return MilliSatoshi(uint64(sat) * MSatPerSatoshi)
}

// ToSatoshis converts a MilliSatoshi amount to its nearest corresponding
// value in satoshis, truncating any remainder.
func (m MilliSatoshi) ToSatoshis() btcutil.Amount {
	return btcutil.Amount(uint64(m) / MSatPerSatoshi)
}

// String returns the MilliSatoshi amount as a human-readable string.
func (m MilliSatoshi) String() string {
	return fmt.Sprintf("%d mSAT", uint64(m))
}
