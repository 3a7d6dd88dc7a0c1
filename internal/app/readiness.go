package app

import (
	"context"
	"sync"

	"github.com/bft-labs/bringup/internal/domain"
)

// Readiness holds whether the network is ready, and with which lease.
// It is created at startup, written by the link monitor and read by the
// probe; it replaces a process-wide "connected" flag.
type Readiness struct {
	mu      sync.Mutex
	lease   domain.Lease
	ready   bool
	changed chan struct{}
}

// NewReadiness returns a Readiness with no lease.
func NewReadiness() *Readiness {
	return &Readiness{changed: make(chan struct{})}
}

// Lease returns the current lease, or false if the network is not ready.
func (r *Readiness) Lease() (domain.Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lease, r.ready
}

// Set marks the network ready with lease l. It reports whether anything changed.
func (r *Readiness) Set(l domain.Lease) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready && r.lease.Equal(l) {
		return false
	}
	r.lease, r.ready = l, true
	r.notifyLocked()
	return true
}

// Clear marks the network not ready. It reports whether anything changed.
func (r *Readiness) Clear() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return false
	}
	r.lease, r.ready = domain.Lease{}, false
	r.notifyLocked()
	return true
}

// Wait blocks until the network is ready or ctx is done.
func (r *Readiness) Wait(ctx context.Context) (domain.Lease, error) {
	for {
		r.mu.Lock()
		lease, ready, changed := r.lease, r.ready, r.changed
		r.mu.Unlock()
		if ready {
			return lease, nil
		}
		select {
		case <-ctx.Done():
			return domain.Lease{}, ctx.Err()
		case <-changed:
		}
	}
}

func (r *Readiness) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}
