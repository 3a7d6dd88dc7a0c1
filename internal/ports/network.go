package ports

import (
	"context"
	"net/netip"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
)

// LeaseSource reports the address lease of the monitored interface.
type LeaseSource interface {
	// Lease returns the current lease and true, or false when the
	// interface holds no address.
	Lease() (domain.Lease, bool)
}

// Resolver resolves hostnames.
type Resolver interface {
	// LookupIPv4 returns the IPv4 addresses of host.
	// Returns domain.ErrNoAddress when the lookup yields no IPv4 answer.
	LookupIPv4(ctx context.Context, host string) ([]netip.Addr, error)
}

// Dialer opens stream connections.
type Dialer interface {
	// Dial connects to addr. On error no connection is returned and
	// nothing needs closing. Errors wrapping domain.ErrSocket mean the
	// socket could not be allocated; any other error is a connect failure.
	Dial(ctx context.Context, addr netip.AddrPort) (Conn, error)
}

// Conn is an established stream connection.
// The standard net.Conn satisfies this interface.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// LeaseSink receives lease changes observed on the monitored interface.
type LeaseSink interface {
	// Set publishes lease l and reports whether it differs from the
	// previous one.
	Set(l domain.Lease) bool

	// Clear withdraws the lease and reports whether one was held.
	Clear() bool
}
