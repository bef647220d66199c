// Package lnpeer drives one peer's channel through the protocol state
// machine of spec.md §4.3/§4.4: the open handshake, steady-state HTLC
// update/commit/revoke cycles, and mutual close. Grounded on the teacher's
// peer.go htlcManager — one goroutine per channel, reading both inbound
// wire packets and outbound application commands off channels and
// serializing all state transitions through a single select loop (spec.md
// §5, "one logical single-threaded cooperative task per peer").
package lnpeer

import "fmt"

// State is one node of the ProtocolFSM (spec.md §4.3).
type State uint8

const (
	// StateInit is the state before open() has been called.
	StateInit State = iota

	// StateOpenWaitForOpen is entered once we've sent (or are awaiting)
	// the initial Open handshake message.
	StateOpenWaitForOpen

	// StateOpenWaitForAnchor awaits anchor settlement from either side.
	StateOpenWaitForAnchor

	// StateOpenWaitForCommitSig awaits the counterparty's signature over
	// our first commitment transaction.
	StateOpenWaitForCommitSig

	// StateOpenWaitForComplete awaits the counterparty's OpenComplete.
	StateOpenWaitForComplete

	// StateNormal is steady-state operation: HTLCs may be added,
	// fulfilled, failed, and committed.
	StateNormal

	// StateClearing is entered once either side begins a mutual close
	// and all in-flight HTLCs have drained.
	StateClearing

	// StateCloseWaitSig awaits fee convergence on the mutual-close
	// transaction.
	StateCloseWaitSig

	// StateClosed is terminal: the mutual-close transaction is final.
	StateClosed

	// StateErrBreakdown is terminal: a protocol violation was detected
	// and on-chain resolution is now the host's responsibility.
	StateErrBreakdown
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateOpenWaitForOpen:
		return "OPEN_WAIT_FOR_OPEN"
	case StateOpenWaitForAnchor:
		return "OPEN_WAIT_FOR_ANCHOR"
	case StateOpenWaitForCommitSig:
		return "OPEN_WAIT_FOR_COMMIT_SIG"
	case StateOpenWaitForComplete:
		return "OPEN_WAIT_FOR_COMPLETE"
	case StateNormal:
		return "NORMAL"
	case StateClearing:
		return "CLEARING"
	case StateCloseWaitSig:
		return "CLOSE_WAIT_SIG"
	case StateClosed:
		return "CLOSED"
	case StateErrBreakdown:
		return "ERR_BREAKDOWN"
	default:
		return "UNKNOWN"
	}
}

// IsClosing reports whether s disallows new application commands (mirrors
// the teacher's ErrChanClosing gate).
func (s State) IsClosing() bool {
	switch s {
	case StateClearing, StateCloseWaitSig, StateClosed, StateErrBreakdown:
		return true
	default:
		return false
	}
}

// fsm tracks the current state and enforces the legal-transition graph of
// spec.md §4.3. It is not safe for concurrent use — all access happens from
// the single goroutine driving one ChannelEngine (spec.md §5).
type fsm struct {
	state State
}

// errIllegalTransition reports an attempt to move the FSM along an edge the
// state graph does not define.
type errIllegalTransition struct {
	from, to State
}

func (e *errIllegalTransition) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.from, e.to)
}

// legalEdges enumerates every transition spec.md §4.3's diagram permits.
var legalEdges = map[State][]State{
	StateInit:                 {StateOpenWaitForOpen},
	StateOpenWaitForOpen:      {StateOpenWaitForAnchor, StateErrBreakdown},
	StateOpenWaitForAnchor:    {StateOpenWaitForCommitSig, StateErrBreakdown},
	StateOpenWaitForCommitSig: {StateOpenWaitForComplete, StateErrBreakdown},
	StateOpenWaitForComplete:  {StateNormal, StateErrBreakdown},
	StateNormal:               {StateClearing, StateErrBreakdown},
	StateClearing:             {StateCloseWaitSig, StateErrBreakdown},
	StateCloseWaitSig:         {StateClosed, StateErrBreakdown},
	StateClosed:               {},
	StateErrBreakdown:         {},
}

// transition moves the FSM to next, or returns errIllegalTransition if the
// state graph doesn't permit it.
func (f *fsm) transition(next State) error {
	for _, candidate := range legalEdges[f.state] {
		if candidate == next {
			f.state = next
			return nil
		}
	}
	return &errIllegalTransition{from: f.state, to: next}
}

// breakdown unconditionally forces StateErrBreakdown without consulting
// legalEdges (whose INIT, CLOSED and ERR_BREAKDOWN entries carry no such
// edge), so it never fails, mirroring spec.md §4.3's "any
// protocol violation ... transitions to ERR_BREAKDOWN" regardless of the
// state it happened in.
func (f *fsm) breakdown() {
	f.state = StateErrBreakdown
}
