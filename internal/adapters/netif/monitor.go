// Package netif watches a network interface and publishes its IPv4 lease.
package netif

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

// DefaultPollInterval is how often the interface is inspected.
const DefaultPollInterval = time.Second

// Monitor polls an interface and publishes lease changes to a sink.
type Monitor struct {
	iface    string
	interval time.Duration
	sink     ports.LeaseSink
	logger   ports.Logger

	// lookup returns the interface state. Replaced in tests.
	lookup func(name string) (ifaceState, error)
}

// ifaceState is what the monitor needs to know about an interface.
type ifaceState struct {
	up    bool
	addrs []net.Addr
}

// NewMonitor creates a monitor for the named interface.
func NewMonitor(iface string, interval time.Duration, sink ports.LeaseSink, logger ports.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		iface:    iface,
		interval: interval,
		sink:     sink,
		logger:   logger,
		lookup:   systemLookup,
	}
}

// Check verifies that the interface exists.
func (m *Monitor) Check() error {
	if _, err := m.lookup(m.iface); err != nil {
		return fmt.Errorf("interface %s: %w", m.iface, err)
	}
	return nil
}

// Run polls the interface until ctx is canceled. The lease is withdrawn
// from the sink when Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.sink.Clear()

	m.Poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll inspects the interface once and publishes the result.
func (m *Monitor) Poll() {
	lease, ok, err := m.current()
	if err != nil {
		m.logger.Debug("interface lookup failed", ports.String("iface", m.iface), ports.Err(err))
	}
	if !ok {
		if m.sink.Clear() {
			m.logger.Warn("lease lost", ports.String("iface", m.iface))
		}
		return
	}
	if m.sink.Set(lease) {
		m.logger.Info("lease acquired",
			ports.String("iface", lease.Iface),
			ports.String("ip", lease.Addr.String()),
			ports.String("netmask", lease.Netmask.String()),
			ports.String("gateway", addrString(lease.Gateway)),
		)
	}
}

func (m *Monitor) current() (domain.Lease, bool, error) {
	st, err := m.lookup(m.iface)
	if err != nil {
		return domain.Lease{}, false, err
	}
	if !st.up {
		return domain.Lease{}, false, nil
	}
	lease, ok := leaseFromAddrs(m.iface, st.addrs)
	if !ok {
		return domain.Lease{}, false, nil
	}
	if gw, err := defaultGateway(m.iface); err == nil {
		lease.Gateway = gw
	}
	return lease, true, nil
}

// leaseFromAddrs picks the first usable IPv4 address of an interface.
func leaseFromAddrs(iface string, addrs []net.Addr) (domain.Lease, bool) {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.Is4() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		ones, bits := ipnet.Mask.Size()
		if bits == 128 {
			ones -= 96
		}
		l := domain.Lease{Iface: iface, Addr: ip, Netmask: domain.MaskFromBits(ones)}
		if l.Valid() {
			return l, true
		}
	}
	return domain.Lease{}, false
}

func systemLookup(name string) (ifaceState, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return ifaceState{}, err
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ifaceState{}, err
	}
	return ifaceState{up: ifi.Flags&net.FlagUp != 0, addrs: addrs}, nil
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}
