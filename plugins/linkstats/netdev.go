package linkstats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	errUnsupported  = errors.New("interface counters not available on this system")
	errUnknownIface = errors.New("interface not listed")
)

// Counters are the cumulative traffic counters of one interface.
type Counters struct {
	RxBytes   uint64
	RxPackets uint64
	RxErrors  uint64
	RxDropped uint64
	TxBytes   uint64
	TxPackets uint64
	TxErrors  uint64
	TxDropped uint64
}

// Sub returns c - prev per counter. A counter that went backwards (driver
// reset or wrap) reports its current value.
func (c Counters) Sub(prev Counters) Counters {
	sub := func(cur, old uint64) uint64 {
		if cur < old {
			return cur
		}
		return cur - old
	}
	return Counters{
		RxBytes:   sub(c.RxBytes, prev.RxBytes),
		RxPackets: sub(c.RxPackets, prev.RxPackets),
		RxErrors:  sub(c.RxErrors, prev.RxErrors),
		RxDropped: sub(c.RxDropped, prev.RxDropped),
		TxBytes:   sub(c.TxBytes, prev.TxBytes),
		TxPackets: sub(c.TxPackets, prev.TxPackets),
		TxErrors:  sub(c.TxErrors, prev.TxErrors),
		TxDropped: sub(c.TxDropped, prev.TxDropped),
	}
}

// parseNetDev extracts the counters of iface from /proc/net/dev content:
//
//	Inter-|   Receive                            ...|  Transmit
//	 face |bytes    packets errs drop fifo frame ...|bytes    packets errs drop ...
//	  eth0: 1234      10    0    0    0     0    ...  5678      20    0    0   ...
func parseNetDev(r io.Reader, iface string) (Counters, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		name, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(name) != iface {
			continue
		}
		f := strings.Fields(rest)
		if len(f) < 12 {
			return Counters{}, fmt.Errorf("%s: %d fields", iface, len(f))
		}
		var v [12]uint64
		for i := range v {
			n, err := strconv.ParseUint(f[i], 10, 64)
			if err != nil {
				return Counters{}, fmt.Errorf("%s field %d: %w", iface, i, err)
			}
			v[i] = n
		}
		return Counters{
			RxBytes:   v[0],
			RxPackets: v[1],
			RxErrors:  v[2],
			RxDropped: v[3],
			TxBytes:   v[8],
			TxPackets: v[9],
			TxErrors:  v[10],
			TxDropped: v[11],
		}, nil
	}
	if err := sc.Err(); err != nil {
		return Counters{}, err
	}
	return Counters{}, fmt.Errorf("%w: %s", errUnknownIface, iface)
}
