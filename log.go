package lnchannel

import (
	"os"

	"github.com/btcsuite/btclog"
)

// backendLog is the logging backend used to create all subsystem loggers.
// The default instance writes to stdout; a host embedding this package
// should call UseLogger to redirect it before opening any channel.
var backendLog = btclog.NewBackend(os.Stdout)

// log is the subsystem logger for the root package (config, capabilities,
// error taxonomy). Other packages (lnwallet, lnpeer, elkrem, channeldb)
// each keep their own subsystem logger following the same pattern.
var log = backendLog.Logger("LNCH")

// UseLogger redirects the root subsystem logger, and is the hook a host
// process uses to plug this package's output into its own logging
// infrastructure instead of the stdout default.
func UseLogger(l btclog.Logger) {
	log = l
}
