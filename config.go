package lnchannel

import (
	"time"

	flags "github.com/btcsuite/go-flags"
)

// Default protocol limits and timer durations. These mirror the constants
// the teacher scatters as package-level defaults (e.g. lnwallet's dust
// limits, peer.go's batchTimer/logCommitTimer intervals) but collected here
// so a host can override every one of them from a single Config value.
const (
	defaultCommitFeeRateMin   = 253 // sat/kw, btcd's relay floor
	defaultAnchorConfirmsMax  = 144
	defaultRelLocktimeMax     = 2016
	defaultBatchWindow        = 50 * time.Millisecond
	defaultKeepaliveWindow    = 300 * time.Millisecond
	defaultCloseFeeTolerance  = 1 // satoshi
	defaultMaxHtlcsPerSide    = 300
	defaultInitialRevocations = 1
)

// Config carries every tunable the channel engine consults. It is parsed by
// the host process with go-flags, the same package the teacher uses for its
// own daemon configuration (lnd.go's loadConfig).
type Config struct {
	CommitmentFeeRateMin uint64 `long:"minfeerate" description:"minimum accepted initial_fee_rate, in sat/kw"`
	AnchorConfirmsMax    uint32 `long:"maxconfs" description:"maximum accepted min_depth for the anchor output"`
	RelLocktimeMax       uint32 `long:"maxdelay" description:"maximum accepted relative CSV delay, in seconds"`
	MaxHtlcsPerSide      int    `long:"maxhtlcs" description:"maximum HTLCs either side may offer in one commitment"`

	BatchWindow        time.Duration `long:"batchwindow" description:"commit-timer batching window"`
	KeepaliveWindow    time.Duration `long:"keepalivewindow" description:"commit-timer forced keepalive window"`
	CloseFeeTolerance  uint64        `long:"closefeetolerance" description:"mutual-close fee convergence tolerance, in satoshi"`
	InitialRevocations int           `long:"initialrevocations" description:"size of the pre-extended revocation window at open"`
}

// DefaultConfig returns the configuration the teacher's own defaults imply,
// before any host override via flags or a config file is applied.
func DefaultConfig() *Config {
	return &Config{
		CommitmentFeeRateMin: defaultCommitFeeRateMin,
		AnchorConfirmsMax:    defaultAnchorConfirmsMax,
		RelLocktimeMax:       defaultRelLocktimeMax,
		MaxHtlcsPerSide:      defaultMaxHtlcsPerSide,
		BatchWindow:          defaultBatchWindow,
		KeepaliveWindow:      defaultKeepaliveWindow,
		CloseFeeTolerance:    defaultCloseFeeTolerance,
		InitialRevocations:   defaultInitialRevocations,
	}
}

// LoadConfig parses the given arguments on top of DefaultConfig, following
// the same two-step "defaults, then flags.Parse" pattern lnd.go's
// loadConfig uses.
func LoadConfig(args []string) (*Config, error) {
	cfg := DefaultConfig()

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return cfg, nil
}
