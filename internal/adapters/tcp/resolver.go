package tcp

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/bft-labs/bringup/internal/domain"
)

// Resolver implements ports.Resolver with the system resolver.
type Resolver struct {
	resolver *net.Resolver
}

// NewResolver creates a Resolver. A nil r uses net.DefaultResolver.
func NewResolver(r *net.Resolver) *Resolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Resolver{resolver: r}
}

// LookupIPv4 returns the IPv4 addresses of host. An IPv4 literal is
// returned as is without a lookup.
func (r *Resolver) LookupIPv4(ctx context.Context, host string) ([]netip.Addr, error) {
	if a, err := netip.ParseAddr(host); err == nil {
		a = a.Unmap()
		if !a.Is4() {
			return nil, fmt.Errorf("%w: %s is not an IPv4 address", domain.ErrNoAddress, host)
		}
		return []netip.Addr{a}, nil
	}

	addrs, err := r.resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		if a = a.Unmap(); a.Is4() {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoAddress, host)
	}
	return out, nil
}
