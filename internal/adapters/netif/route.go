package netif

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"net/netip"
	"strings"
)

var errNoDefaultRoute = errors.New("no default route")

// parseRoutes finds the default gateway of iface in the kernel routing table
// format of /proc/net/route. Addresses there are little-endian hex.
func parseRoutes(r io.Reader, iface string) (netip.Addr, error) {
	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		f := strings.Fields(sc.Text())
		if len(f) < 3 || f[0] != iface || f[1] != "00000000" {
			continue
		}
		raw, err := hex.DecodeString(f[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], binary.LittleEndian.Uint32(raw))
		gw := netip.AddrFrom4(b)
		if gw.IsUnspecified() {
			continue
		}
		return gw, nil
	}
	if err := sc.Err(); err != nil {
		return netip.Addr{}, err
	}
	return netip.Addr{}, errNoDefaultRoute
}
