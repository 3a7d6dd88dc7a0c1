package netif

import (
	"net/netip"
	"os"
)

const routeTable = "/proc/net/route"

func defaultGateway(iface string) (netip.Addr, error) {
	f, err := os.Open(routeTable)
	if err != nil {
		return netip.Addr{}, err
	}
	defer f.Close()
	return parseRoutes(f, iface)
}
