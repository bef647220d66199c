package elkrem

import "github.com/btcsuite/btclog"

// log is the subsystem logger for revocation-preimage derivation and
// ladder consistency checks.
var log = btclog.Disabled

// UseLogger redirects this package's subsystem logger.
func UseLogger(l btclog.Logger) {
	log = l
}
