package domain

import "net/netip"

// Lease is the IPv4 configuration obtained for a network interface.
type Lease struct {
	// Iface is the interface name (e.g., "eth0")
	Iface string `json:"iface"`

	// Addr is the interface address
	Addr netip.Addr `json:"addr"`

	// Netmask is the prefix length expressed as a dotted mask
	Netmask netip.Addr `json:"netmask"`

	// Gateway is the default route through this interface, if known
	Gateway netip.Addr `json:"gateway"`
}

// Valid reports whether the lease carries a usable IPv4 address.
func (l Lease) Valid() bool {
	return l.Addr.IsValid() && l.Addr.Is4() && !l.Addr.IsUnspecified()
}

// Equal reports whether two leases describe the same configuration.
func (l Lease) Equal(o Lease) bool {
	return l.Iface == o.Iface && l.Addr == o.Addr && l.Netmask == o.Netmask && l.Gateway == o.Gateway
}

// MaskFromBits converts a prefix length into a dotted IPv4 mask.
func MaskFromBits(bits int) netip.Addr {
	if bits < 0 || bits > 32 {
		return netip.Addr{}
	}
	m := ^uint32(0) << (32 - bits)
	return netip.AddrFrom4([4]byte{byte(m >> 24), byte(m >> 16), byte(m >> 8), byte(m)})
}
