package domain

import (
	"net/netip"
	"time"
)

// Outcome classifies how a probe iteration ended.
type Outcome int

const (
	OutcomeNoLease Outcome = iota
	OutcomeResolveFailed
	OutcomeSocketFailed
	OutcomeConnectFailed
	OutcomeSendFailed
	OutcomeDeadlineFailed
	OutcomeCompleted
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoLease:
		return "no_lease"
	case OutcomeResolveFailed:
		return "resolve_failed"
	case OutcomeSocketFailed:
		return "socket_failed"
	case OutcomeConnectFailed:
		return "connect_failed"
	case OutcomeSendFailed:
		return "send_failed"
	case OutcomeDeadlineFailed:
		return "deadline_failed"
	case OutcomeCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome is a failure of the iteration.
// A missing lease is not a failure: the probe simply has nothing to do.
func (o Outcome) Failed() bool {
	return o != OutcomeNoLease && o != OutcomeCompleted
}

// Attempt is the result of one probe iteration.
// Its connection, if any, never outlives the iteration.
type Attempt struct {
	Outcome Outcome

	// Lease is the lease observed at the start of the iteration
	Lease Lease

	// Remote is the address the probe dialed, if resolution succeeded
	Remote netip.AddrPort

	// BytesSent is the number of request bytes written
	BytesSent int

	// BytesReceived is the total response size
	BytesReceived int

	// ReadErr is the error that ended the read loop (io.EOF, timeout, ...)
	ReadErr error

	// Err is the error that ended the iteration early, nil when completed
	Err error

	Started  time.Time
	Duration time.Duration
}
