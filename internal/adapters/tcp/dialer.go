package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

// Dialer implements ports.Dialer over TCP/IPv4.
type Dialer struct {
	dialer net.Dialer
}

// NewDialer creates a Dialer whose attempts give up after timeout.
// A zero timeout leaves connection attempts to the operating system's limit.
func NewDialer(timeout time.Duration) *Dialer {
	if timeout < 0 {
		timeout = 0
	}
	return &Dialer{dialer: net.Dialer{Timeout: timeout}}
}

// Dial opens a TCP connection to addr.
func (d *Dialer) Dial(ctx context.Context, addr netip.AddrPort) (ports.Conn, error) {
	conn, err := d.dialer.DialContext(ctx, "tcp4", addr.String())
	if err != nil {
		return nil, classifyDialError(err)
	}
	return conn, nil
}

// classifyDialError marks failures to create the socket itself, as opposed
// to failures to reach the peer.
func classifyDialError(err error) error {
	var se *os.SyscallError
	if errors.As(err, &se) && se.Syscall == "socket" {
		return fmt.Errorf("%w: %w", domain.ErrSocket, err)
	}
	return err
}
