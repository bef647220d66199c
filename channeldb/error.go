package channeldb

import "fmt"

// Sentinel errors, grounded on the teacher's channeldb/error.go
// (fmt.Errorf sentinel block), narrowed to what this package's channel-chain
// persistence needs — the graph/invoice/payment sentinels the teacher
// carries belong to gossip/routing/invoicing, out of spec.md's scope.
var (
	ErrNoChanDBExists  = fmt.Errorf("channel db has not yet been created")
	ErrChannelNotFound = fmt.Errorf("this channel does not exist")
	ErrNoLadder        = fmt.Errorf("channel has no persisted revocation ladder")
)
