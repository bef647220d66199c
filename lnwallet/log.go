package lnwallet

import "github.com/btcsuite/btclog"

// log is the subsystem logger for channel-state bookkeeping: HTLC
// add/fulfill/fail, fee recomputation, and commit-chain construction.
var log = btclog.Disabled

// UseLogger redirects this package's subsystem logger.
func UseLogger(l btclog.Logger) {
	log = l
}
