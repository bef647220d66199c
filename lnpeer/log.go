package lnpeer

import "github.com/btcsuite/btclog"

// log is the subsystem logger for the per-channel protocol engine.
var log = btclog.Disabled

// UseLogger redirects this package's subsystem logger.
func UseLogger(l btclog.Logger) {
	log = l
}
