//go:build !linux

package netif

import "net/netip"

func defaultGateway(iface string) (netip.Addr, error) {
	return netip.Addr{}, errNoDefaultRoute
}
