package channeldb

import "github.com/btcsuite/btclog"

// log is the subsystem logger for channel persistence.
var log = btclog.Disabled

// UseLogger redirects this package's subsystem logger.
func UseLogger(l btclog.Logger) {
	log = l
}
