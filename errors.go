package lnchannel

import "fmt"

// ErrorKind enumerates the terminal/local error taxonomy of §7: every value
// maps to a stable problem string carried on the wire inside an Error
// packet once the violation is attributable to the counterparty or to
// protocol integrity.
type ErrorKind uint8

const (
	// ErrMalformedField indicates deserialization or a range check on a
	// wire field failed.
	ErrMalformedField ErrorKind = iota

	// ErrUnexpected indicates a packet arrived in a ProtocolFSM state
	// that does not accept it.
	ErrUnexpected

	// ErrBadSignature indicates the signature check on a new commitment
	// failed.
	ErrBadSignature

	// ErrBadPreimage indicates a revealed revocation preimage does not
	// hash to the expected revocation_hash.
	ErrBadPreimage

	// ErrShachainBreak indicates the revocation ladder rejected a new
	// preimage as inconsistent with previously stored ones.
	ErrShachainBreak

	// ErrInsufficientFunds indicates an affordability check failed on
	// add_htlc or anchor setup.
	ErrInsufficientFunds

	// ErrTooManyHtlcs indicates the 300-per-side cap was reached.
	ErrTooManyHtlcs

	// ErrDuplicateId indicates an HTLC id clash within the offering
	// side's additions.
	ErrDuplicateId

	// ErrNotFound indicates a fulfill/fail referenced an HTLC absent
	// from the current commitment.
	ErrNotFound

	// ErrEmptyCommit indicates an UpdateCommit carried no new changes.
	ErrEmptyCommit
)

// String implements fmt.Stringer, returning the stable problem string
// carried on the wire for this error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedField:
		return "malformed field"
	case ErrUnexpected:
		return "unexpected packet for current state"
	case ErrBadSignature:
		return "bad signature"
	case ErrBadPreimage:
		return "complete preimage incorrect"
	case ErrShachainBreak:
		return "preimage not next in shachain"
	case ErrInsufficientFunds:
		return "insufficient funds"
	case ErrTooManyHtlcs:
		return "too many htlcs"
	case ErrDuplicateId:
		return "duplicate htlc id"
	case ErrNotFound:
		return "htlc not found"
	case ErrEmptyCommit:
		return "empty commit"
	default:
		return "unknown error"
	}
}

// ProtocolError is a typed failure attributable to the counterparty or to a
// protocol-integrity breach. Raising one is always terminal: the engine
// emits an Error packet carrying Kind.String() and transitions to
// ERR_BREAKDOWN (§7 propagation policy).
type ProtocolError struct {
	Kind   ErrorKind
	Detail string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewProtocolError constructs a ProtocolError with an optional detail
// string appended to the stable problem string.
func NewProtocolError(kind ErrorKind, detail string) *ProtocolError {
	return &ProtocolError{Kind: kind, Detail: detail}
}

// Local, recoverable rejections of application commands (spec.md §7,
// "Local, recoverable rejections"). These are returned directly to the
// caller and never touch the wire.
var (
	// ErrLocalInsufficientFunds is returned by ChannelState.add_htlc when
	// the resulting state would leave the funder-side balance negative
	// after both commitment transactions' fees.
	ErrLocalInsufficientFunds = fmt.Errorf("insufficient funds for htlc")

	// ErrLocalDuplicateId is returned when an application-level add_htlc
	// collides with an id already staged by the same offering side.
	// Per spec.md S4, this is caught locally and never reaches the wire.
	ErrLocalDuplicateId = fmt.Errorf("duplicate htlc id")

	// ErrLocalTooManyHtlcs is returned when the offering side's staged
	// HTLC count is already at the configured per-side cap.
	ErrLocalTooManyHtlcs = fmt.Errorf("too many htlcs offered")

	// ErrLocalNotFound is returned when fulfill_htlc/fail_htlc reference
	// an id absent from the side's current committed state.
	ErrLocalNotFound = fmt.Errorf("htlc not found in committed state")

	// ErrLocalBadPreimage is returned when a fulfill's preimage does not
	// hash to the HTLC's rhash.
	ErrLocalBadPreimage = fmt.Errorf("preimage does not match rhash")

	// ErrChannelClosing mirrors the teacher's ErrChanClosing: returned
	// when an operation is attempted on a channel already in CLEARING,
	// CLOSE_WAIT_SIG, CLOSED, or ERR_BREAKDOWN.
	ErrChannelClosing = fmt.Errorf("channel is closing, operation disallowed")
)
