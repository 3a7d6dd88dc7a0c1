package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/netip"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

var testLease = domain.Lease{
	Iface:   "eth0",
	Addr:    netip.MustParseAddr("192.168.1.20"),
	Netmask: netip.MustParseAddr("255.255.255.0"),
	Gateway: netip.MustParseAddr("192.168.1.1"),
}

type fakeResolver struct {
	addrs []netip.Addr
	err   error
	calls int
}

func (r *fakeResolver) LookupIPv4(ctx context.Context, host string) ([]netip.Addr, error) {
	r.calls++
	return r.addrs, r.err
}

type fakeDialer struct {
	// conns are handed out in order; errs[i] fails the i-th dial instead.
	conns  []*fakeConn
	errs   []error
	calls  int
	dialed []netip.AddrPort
}

func (d *fakeDialer) Dial(ctx context.Context, addr netip.AddrPort) (ports.Conn, error) {
	i := d.calls
	d.calls++
	d.dialed = append(d.dialed, addr)
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.conns) && d.conns[i] != nil {
		return d.conns[i], nil
	}
	return &fakeConn{}, nil
}

type fakeConn struct {
	response []byte
	chunk    int
	endErr   error

	shortWrite  bool
	writeErr    error
	deadlineErr error

	written   bytes.Buffer
	pos       int
	deadlines int
	closes    int
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.pos >= len(c.response) {
		if c.endErr != nil {
			return 0, c.endErr
		}
		return 0, io.EOF
	}
	n := len(p)
	if c.chunk > 0 && c.chunk < n {
		n = c.chunk
	}
	n = copy(p[:n], c.response[c.pos:])
	c.pos += n
	return n, nil
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.shortWrite {
		c.written.Write(p[:len(p)/2])
		return len(p) / 2, nil
	}
	return c.written.Write(p)
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.deadlines++
	return c.deadlineErr
}

func (c *fakeConn) Close() error {
	c.closes++
	return nil
}

type memStatusRepo struct {
	saved []domain.Status
}

func (r *memStatusRepo) Load(ctx context.Context) (domain.Status, error) {
	return domain.Status{Iterations: 41}, nil
}

func (r *memStatusRepo) Save(ctx context.Context, st domain.Status) error {
	r.saved = append(r.saved, st)
	return nil
}

type recordingEmitter struct {
	mu       sync.Mutex
	attempts []domain.Attempt
}

func (e *recordingEmitter) OnProbeAttempt(a domain.Attempt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts = append(e.attempts, a)
}

func readyLeases() *Readiness {
	r := NewReadiness()
	r.Set(testLease)
	return r
}

func testRequest() domain.Request {
	return domain.NewRequest(domain.Target{Host: "example.com", Path: "/", UserAgent: "bringup-test"})
}

func newTestProbe(leases ports.LeaseSource, res *fakeResolver, d *fakeDialer, out io.Writer) *Probe {
	return NewProbe(ProbeConfig{Delays: DefaultDelays()}, testRequest(), leases, res, d, out, nil, &mockLogger{}, nil)
}

func TestProbe_Iterate_NoLease(t *testing.T) {
	res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("93.184.216.34")}}
	d := &fakeDialer{}
	p := newTestProbe(NewReadiness(), res, d, nil)

	a := p.Iterate(context.Background())

	if a.Outcome != domain.OutcomeNoLease {
		t.Errorf("Outcome = %v, want no_lease", a.Outcome)
	}
	if res.calls != 0 || d.calls != 0 {
		t.Errorf("resolver calls = %d, dial calls = %d, want 0 and 0", res.calls, d.calls)
	}
}

func TestProbe_Iterate_ResolveFailed(t *testing.T) {
	tests := []struct {
		name    string
		res     *fakeResolver
		wantErr error
	}{
		{"lookup error", &fakeResolver{err: errors.New("no such host")}, nil},
		{"empty answer", &fakeResolver{}, domain.ErrNoAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDialer{}
			p := newTestProbe(readyLeases(), tt.res, d, nil)

			a := p.Iterate(context.Background())

			if a.Outcome != domain.OutcomeResolveFailed {
				t.Errorf("Outcome = %v, want resolve_failed", a.Outcome)
			}
			if a.Err == nil {
				t.Error("Err = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(a.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", a.Err, tt.wantErr)
			}
			if d.calls != 0 {
				t.Errorf("dial calls = %d, want 0", d.calls)
			}
		})
	}
}

func TestProbe_Iterate_DialFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.Outcome
	}{
		{"socket", errors.Join(domain.ErrSocket, errors.New("too many open files")), domain.OutcomeSocketFailed},
		{"connect", errors.New("connection refused"), domain.OutcomeConnectFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("93.184.216.34")}}
			d := &fakeDialer{errs: []error{tt.err}}
			p := newTestProbe(readyLeases(), res, d, nil)

			a := p.Iterate(context.Background())

			if a.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", a.Outcome, tt.want)
			}
			if a.Remote != netip.MustParseAddrPort("93.184.216.34:80") {
				t.Errorf("Remote = %v, want 93.184.216.34:80", a.Remote)
			}
		})
	}
}

func TestProbe_Iterate_SendFailures(t *testing.T) {
	tests := []struct {
		name    string
		conn    *fakeConn
		want    domain.Outcome
		wantErr error
	}{
		{"write error", &fakeConn{writeErr: errors.New("broken pipe")}, domain.OutcomeSendFailed, nil},
		{"short write", &fakeConn{shortWrite: true}, domain.OutcomeSendFailed, domain.ErrShortWrite},
		{"deadline", &fakeConn{deadlineErr: errors.New("bad fd")}, domain.OutcomeDeadlineFailed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("93.184.216.34")}}
			d := &fakeDialer{conns: []*fakeConn{tt.conn}}
			p := newTestProbe(readyLeases(), res, d, nil)

			a := p.Iterate(context.Background())

			if a.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", a.Outcome, tt.want)
			}
			if tt.wantErr != nil && !errors.Is(a.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", a.Err, tt.wantErr)
			}
			if tt.conn.closes != 1 {
				t.Errorf("Close called %d times, want 1", tt.conn.closes)
			}
		})
	}
}

func TestProbe_Iterate_Completed(t *testing.T) {
	response := "HTTP/1.0 200 OK\r\nContent-Type: text/html\r\n\r\n" + strings.Repeat("<p>hello</p>", 20)
	conn := &fakeConn{response: []byte(response), chunk: 100}
	res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("93.184.216.34"), netip.MustParseAddr("93.184.216.35")}}
	d := &fakeDialer{conns: []*fakeConn{conn}}
	var out bytes.Buffer
	p := newTestProbe(readyLeases(), res, d, &out)

	a := p.Iterate(context.Background())

	if a.Outcome != domain.OutcomeCompleted {
		t.Fatalf("Outcome = %v, want completed (err %v)", a.Outcome, a.Err)
	}
	if d.dialed[0] != netip.MustParseAddrPort("93.184.216.34:80") {
		t.Errorf("dialed %v, want first resolved address", d.dialed[0])
	}
	if got := conn.written.String(); got != testRequest().String() {
		t.Errorf("request written = %q, want %q", got, testRequest().String())
	}
	if out.String() != response {
		t.Errorf("output = %q, want the response", out.String())
	}
	if a.BytesReceived != len(response) {
		t.Errorf("BytesReceived = %d, want %d", a.BytesReceived, len(response))
	}
	if a.BytesSent != testRequest().Len() {
		t.Errorf("BytesSent = %d, want %d", a.BytesSent, testRequest().Len())
	}
	if !errors.Is(a.ReadErr, io.EOF) {
		t.Errorf("ReadErr = %v, want EOF", a.ReadErr)
	}
	if conn.closes != 1 {
		t.Errorf("Close called %d times, want 1", conn.closes)
	}
	// One deadline per read: the buffer is 64 bytes so reads are capped there.
	wantReads := (len(response)+DefaultReceiveBufferSize-1)/DefaultReceiveBufferSize + 1
	if conn.deadlines != wantReads {
		t.Errorf("deadlines set = %d, want %d", conn.deadlines, wantReads)
	}
}

func TestProbe_Iterate_ReadTimeoutCompletes(t *testing.T) {
	conn := &fakeConn{response: []byte("HTTP/1.0 200 OK\r\n"), endErr: os.ErrDeadlineExceeded}
	res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("10.0.0.1")}}
	p := newTestProbe(readyLeases(), res, &fakeDialer{conns: []*fakeConn{conn}}, nil)

	a := p.Iterate(context.Background())

	if a.Outcome != domain.OutcomeCompleted {
		t.Errorf("Outcome = %v, want completed", a.Outcome)
	}
	if !errors.Is(a.ReadErr, os.ErrDeadlineExceeded) {
		t.Errorf("ReadErr = %v, want deadline exceeded", a.ReadErr)
	}
	if conn.closes != 1 {
		t.Errorf("Close called %d times, want 1", conn.closes)
	}
}

// blockingConn blocks reads until a deadline in the past is set.
type blockingConn struct {
	fakeConn
	once    sync.Once
	unblock chan struct{}
}

func (c *blockingConn) Read(p []byte) (int, error) {
	<-c.unblock
	return 0, os.ErrDeadlineExceeded
}

func (c *blockingConn) SetReadDeadline(t time.Time) error {
	if t.Before(time.Now()) {
		c.once.Do(func() { close(c.unblock) })
	}
	return nil
}

type blockingDialer struct{ conn *blockingConn }

func (d blockingDialer) Dial(ctx context.Context, addr netip.AddrPort) (ports.Conn, error) {
	return d.conn, nil
}

func TestProbe_Iterate_CancelUnblocksRead(t *testing.T) {
	conn := &blockingConn{unblock: make(chan struct{})}
	res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("10.0.0.1")}}
	p := NewProbe(ProbeConfig{Delays: DefaultDelays()}, testRequest(), readyLeases(), res, blockingDialer{conn}, nil, nil, &mockLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan domain.Attempt, 1)
	go func() { done <- p.Iterate(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case a := <-done:
		if conn.closes != 1 {
			t.Errorf("Close called %d times, want 1", conn.closes)
		}
		if a.Outcome != domain.OutcomeCompleted {
			t.Errorf("Outcome = %v, want completed", a.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("Iterate did not return after cancel")
	}
}

func TestProbe_Run_FixedDelays(t *testing.T) {
	res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("10.0.0.1")}}
	connectErr := errors.New("connection refused")
	d := &fakeDialer{
		errs: []error{connectErr, connectErr, connectErr, errors.Join(domain.ErrSocket, errors.New("emfile")), nil},
		conns: []*fakeConn{
			nil, nil, nil, nil,
			{response: []byte("HTTP/1.0 204 No Content\r\n\r\n")},
		},
	}
	repo := &memStatusRepo{}
	emitter := &recordingEmitter{}
	p := NewProbe(ProbeConfig{Delays: DefaultDelays()}, testRequest(), readyLeases(), res, d, nil, repo, &mockLogger{}, emitter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var delays []time.Duration
	p.sleep = func(ctx context.Context, dur time.Duration) error {
		delays = append(delays, dur)
		if len(delays) == 5 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}

	want := []time.Duration{
		DefaultConnectDelay, DefaultConnectDelay, DefaultConnectDelay,
		DefaultSocketDelay,
		DefaultIdleDelay,
	}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}

	if len(emitter.attempts) != 5 {
		t.Errorf("emitted %d attempts, want 5", len(emitter.attempts))
	}
	if len(repo.saved) != 5 {
		t.Fatalf("saved %d times, want 5", len(repo.saved))
	}
	last := repo.saved[4]
	if last.Iterations != 46 {
		t.Errorf("Iterations = %d, want 46 (41 loaded + 5)", last.Iterations)
	}
	if last.Outcomes["connect_failed"] != 3 || last.Outcomes["completed"] != 1 {
		t.Errorf("Outcomes = %v", last.Outcomes)
	}
}

func TestProbe_Run_NoLeaseNeverDials(t *testing.T) {
	res := &fakeResolver{}
	d := &fakeDialer{}
	p := newTestProbe(NewReadiness(), res, d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var delays []time.Duration
	p.sleep = func(ctx context.Context, dur time.Duration) error {
		delays = append(delays, dur)
		if len(delays) == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	_ = p.Run(ctx)

	if d.calls != 0 || res.calls != 0 {
		t.Errorf("resolver calls = %d, dial calls = %d, want 0 and 0", res.calls, d.calls)
	}
	for i, dur := range delays {
		if dur != DefaultIdleDelay {
			t.Errorf("delay %d = %v, want %v", i, dur, DefaultIdleDelay)
		}
	}
	if st := p.Status(); st.Outcomes["no_lease"] != 3 {
		t.Errorf("no_lease count = %d, want 3", st.Outcomes["no_lease"])
	}
}

func TestProbe_SetRequest(t *testing.T) {
	conn := &fakeConn{}
	res := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("10.0.0.1")}}
	d := &fakeDialer{conns: []*fakeConn{conn}}
	p := newTestProbe(readyLeases(), res, d, nil)

	next := domain.NewRequest(domain.Target{Host: "10.0.0.1", Port: 8080, Path: "/health"})
	p.SetRequest(next)
	p.Iterate(context.Background())

	if got := conn.written.String(); got != next.String() {
		t.Errorf("request written = %q, want %q", got, next.String())
	}
	if d.dialed[0].Port() != 8080 {
		t.Errorf("dialed port = %d, want 8080", d.dialed[0].Port())
	}
}

func TestProbe_Status_ReturnsCopy(t *testing.T) {
	p := newTestProbe(NewReadiness(), &fakeResolver{}, &fakeDialer{}, nil)
	p.record(context.Background(), domain.Attempt{Outcome: domain.OutcomeNoLease})

	st := p.Status()
	st.Outcomes["no_lease"] = 100

	if got := p.Status().Outcomes["no_lease"]; got != 1 {
		t.Errorf("no_lease = %d after modifying copy, want 1", got)
	}
}
