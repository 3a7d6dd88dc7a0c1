package app

import (
	"context"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
)

// Default probe delays. They are fixed: consecutive failures never grow them.
const (
	DefaultIdleDelay    = 2 * time.Second
	DefaultResolveDelay = 1 * time.Second
	DefaultSocketDelay  = 1 * time.Second
	DefaultConnectDelay = 4 * time.Second
	DefaultSendDelay    = 4 * time.Second
)

// Delays holds the pause applied after each probe outcome.
type Delays struct {
	// Idle follows an iteration without a lease and a completed exchange
	Idle time.Duration
	// Resolve follows a failed DNS lookup
	Resolve time.Duration
	// Socket follows a failed socket allocation
	Socket time.Duration
	// Connect follows a failed connection attempt
	Connect time.Duration
	// Send follows a failed request write or receive timeout setup
	Send time.Duration
}

// DefaultDelays returns the standard fixed delays.
func DefaultDelays() Delays {
	return Delays{
		Idle:    DefaultIdleDelay,
		Resolve: DefaultResolveDelay,
		Socket:  DefaultSocketDelay,
		Connect: DefaultConnectDelay,
		Send:    DefaultSendDelay,
	}
}

// For returns the delay that follows outcome o.
func (d Delays) For(o domain.Outcome) time.Duration {
	switch o {
	case domain.OutcomeResolveFailed:
		return d.Resolve
	case domain.OutcomeSocketFailed:
		return d.Socket
	case domain.OutcomeConnectFailed:
		return d.Connect
	case domain.OutcomeSendFailed, domain.OutcomeDeadlineFailed:
		return d.Send
	default:
		return d.Idle
	}
}

// sleep pauses for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
