package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
)

func TestResolver_IPv4Literal(t *testing.T) {
	r := NewResolver(nil)

	got, err := r.LookupIPv4(context.Background(), "10.1.2.3")
	if err != nil {
		t.Fatalf("LookupIPv4() error = %v", err)
	}
	if len(got) != 1 || got[0] != netip.MustParseAddr("10.1.2.3") {
		t.Errorf("LookupIPv4() = %v, want [10.1.2.3]", got)
	}
}

func TestResolver_IPv6Literal(t *testing.T) {
	r := NewResolver(nil)

	_, err := r.LookupIPv4(context.Background(), "2001:db8::1")
	if !errors.Is(err, domain.ErrNoAddress) {
		t.Errorf("LookupIPv4() error = %v, want ErrNoAddress", err)
	}
}

func TestResolver_Localhost(t *testing.T) {
	r := NewResolver(nil)

	got, err := r.LookupIPv4(context.Background(), "localhost")
	if err != nil {
		t.Skipf("localhost does not resolve here: %v", err)
	}
	for _, a := range got {
		if !a.Is4() {
			t.Errorf("LookupIPv4() returned non-IPv4 address %v", a)
		}
	}
}

func TestDialer_RoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4)
		if _, err := io.ReadFull(c, buf); err != nil {
			return
		}
		_, _ = c.Write([]byte("HTTP/1.0 200 OK\r\n\r\n"))
	}()

	d := NewDialer(time.Second)
	addr := netip.MustParseAddrPort(ln.Addr().String())
	conn, err := d.Dial(context.Background(), addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET ")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "HTTP/1.0 200 OK\r\n\r\n" {
		t.Errorf("response = %q", got)
	}
}

func TestDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := netip.MustParseAddrPort(ln.Addr().String())
	ln.Close()

	_, err = NewDialer(time.Second).Dial(context.Background(), addr)
	if err == nil {
		t.Fatal("Dial() to closed port returned nil error")
	}
	if errors.Is(err, domain.ErrSocket) {
		t.Errorf("refused connection classified as socket failure: %v", err)
	}
}

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantSocket bool
	}{
		{
			"socket syscall",
			&net.OpError{Op: "dial", Net: "tcp4", Err: os.NewSyscallError("socket", syscall.EMFILE)},
			true,
		},
		{
			"connect syscall",
			&net.OpError{Op: "dial", Net: "tcp4", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			false,
		},
		{"timeout", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDialError(tt.err)
			if errors.Is(got, domain.ErrSocket) != tt.wantSocket {
				t.Errorf("classifyDialError(%v) socket = %v, want %v", tt.err, !tt.wantSocket, tt.wantSocket)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classifyDialError(%v) lost the original error", tt.err)
			}
		})
	}
}
