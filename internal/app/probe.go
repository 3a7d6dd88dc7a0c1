package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

// DefaultReceiveTimeout bounds every read of the response.
const DefaultReceiveTimeout = 5 * time.Second

// DefaultReceiveBufferSize is the size of the reused receive buffer.
const DefaultReceiveBufferSize = 64

// ProbeConfig contains configuration for the probe loop.
type ProbeConfig struct {
	Delays         Delays
	ReceiveTimeout time.Duration
	BufferSize     int
}

// ProbeEventEmitter is called after every probe iteration.
type ProbeEventEmitter interface {
	OnProbeAttempt(attempt domain.Attempt)
}

// Probe periodically fetches a fixed HTTP request over a fresh TCP
// connection while the interface holds a lease.
type Probe struct {
	config     ProbeConfig
	leases     ports.LeaseSource
	resolver   ports.Resolver
	dialer     ports.Dialer
	out        io.Writer
	statusRepo ports.StatusRepository
	logger     ports.Logger
	emitter    ProbeEventEmitter

	request atomic.Pointer[domain.Request]
	status  domain.Status
	buf     []byte

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewProbe creates a new probe. statusRepo and emitter may be nil.
func NewProbe(
	config ProbeConfig,
	req domain.Request,
	leases ports.LeaseSource,
	resolver ports.Resolver,
	dialer ports.Dialer,
	out io.Writer,
	statusRepo ports.StatusRepository,
	logger ports.Logger,
	emitter ProbeEventEmitter,
) *Probe {
	if config.ReceiveTimeout <= 0 {
		config.ReceiveTimeout = DefaultReceiveTimeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultReceiveBufferSize
	}
	if out == nil {
		out = io.Discard
	}
	p := &Probe{
		config:     config,
		leases:     leases,
		resolver:   resolver,
		dialer:     dialer,
		out:        out,
		statusRepo: statusRepo,
		logger:     logger,
		emitter:    emitter,
		buf:        make([]byte, config.BufferSize),
		sleep:      sleep,
		now:        time.Now,
	}
	p.request.Store(&req)
	return p
}

// SetRequest replaces the request sent from the next iteration on.
func (p *Probe) SetRequest(req domain.Request) {
	p.request.Store(&req)
}

// Request returns the request currently sent by the probe.
func (p *Probe) Request() domain.Request {
	return *p.request.Load()
}

// Run executes the probe loop until ctx is canceled.
// Every failure is logged and followed by the fixed delay of its outcome.
func (p *Probe) Run(ctx context.Context) error {
	if p.statusRepo != nil {
		st, err := p.statusRepo.Load(ctx)
		if err != nil {
			p.logger.Error("failed to load status", ports.Err(err))
			// Continue with empty status
		}
		p.status = st
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt := p.Iterate(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		p.record(ctx, attempt)

		if attempt.Outcome == domain.OutcomeCompleted {
			p.logger.Info("starting again")
		}
		if err := p.sleep(ctx, p.config.Delays.For(attempt.Outcome)); err != nil {
			return err
		}
	}
}

// Iterate runs a single probe iteration. A connection opened by the
// iteration is closed before Iterate returns.
func (p *Probe) Iterate(ctx context.Context) (a domain.Attempt) {
	req := p.Request()
	target := req.Target()

	a.Started = p.now()
	defer func() { a.Duration = p.now().Sub(a.Started) }()

	lease, ok := p.leases.Lease()
	if !ok {
		a.Outcome = domain.OutcomeNoLease
		return a
	}
	a.Lease = lease
	p.logger.Info("lease",
		ports.String("iface", lease.Iface),
		ports.String("ip", addrString(lease.Addr)),
		ports.String("netmask", addrString(lease.Netmask)),
		ports.String("gateway", addrString(lease.Gateway)),
	)

	addrs, err := p.resolver.LookupIPv4(ctx, target.Host)
	if err == nil && len(addrs) == 0 {
		err = domain.ErrNoAddress
	}
	if err != nil {
		p.logger.Error("dns lookup failed", ports.String("host", target.Host), ports.Err(err))
		a.Outcome, a.Err = domain.OutcomeResolveFailed, err
		return a
	}
	a.Remote = netip.AddrPortFrom(addrs[0], target.Port)
	p.logger.Info("dns lookup succeeded",
		ports.String("host", target.Host),
		ports.String("ip", a.Remote.Addr().String()),
	)

	conn, err := p.dialer.Dial(ctx, a.Remote)
	if err != nil {
		if errors.Is(err, domain.ErrSocket) {
			p.logger.Error("failed to allocate socket", ports.Err(err))
			a.Outcome = domain.OutcomeSocketFailed
		} else {
			p.logger.Error("socket connect failed", ports.String("remote", a.Remote.String()), ports.Err(err))
			a.Outcome = domain.OutcomeConnectFailed
		}
		a.Err = err
		return a
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			p.logger.Debug("socket close failed", ports.Err(cerr))
		}
	}()
	p.logger.Info("connected", ports.String("remote", a.Remote.String()))

	p.exchange(ctx, conn, req, &a)
	return a
}

// exchange sends the request on conn and copies the response to the output.
func (p *Probe) exchange(ctx context.Context, conn ports.Conn, req domain.Request, a *domain.Attempt) {
	n, err := conn.Write(req.Bytes())
	a.BytesSent = n
	if err == nil && n < req.Len() {
		err = fmt.Errorf("%w: %d of %d bytes", domain.ErrShortWrite, n, req.Len())
	}
	if err != nil {
		p.logger.Error("socket send failed", ports.Err(err))
		a.Outcome, a.Err = domain.OutcomeSendFailed, err
		return
	}
	p.logger.Info("socket send success", ports.Int("bytes", n))

	if err := conn.SetReadDeadline(p.now().Add(p.config.ReceiveTimeout)); err != nil {
		p.logger.Error("failed to set socket receiving timeout", ports.Err(err))
		a.Outcome, a.Err = domain.OutcomeDeadlineFailed, err
		return
	}

	// Unblock a pending read as soon as the task is canceled.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	for first := true; ; first = false {
		if !first {
			if err := conn.SetReadDeadline(p.now().Add(p.config.ReceiveTimeout)); err != nil {
				a.ReadErr = err
				break
			}
		}
		clear(p.buf)
		n, err := conn.Read(p.buf)
		if n > 0 {
			a.BytesReceived += n
			if _, werr := p.out.Write(p.buf[:n]); werr != nil {
				p.logger.Debug("output write failed", ports.Err(werr))
			}
		}
		if err != nil || n == 0 {
			a.ReadErr = err
			break
		}
		if cerr := ctx.Err(); cerr != nil {
			a.ReadErr = cerr
			break
		}
	}

	p.logger.Info("done reading from socket",
		ports.Int("bytes", a.BytesReceived),
		ports.String("last_err", errString(a.ReadErr)),
	)
	a.Outcome = domain.OutcomeCompleted
}

// Status returns a copy of the probe status. It must not be called
// concurrently with Run.
func (p *Probe) Status() domain.Status {
	st := p.status
	if st.Outcomes != nil {
		st.Outcomes = make(map[string]uint64, len(p.status.Outcomes))
		for k, v := range p.status.Outcomes {
			st.Outcomes[k] = v
		}
	}
	return st
}

func (p *Probe) record(ctx context.Context, a domain.Attempt) {
	p.status.Record(a)
	if p.statusRepo != nil {
		if err := p.statusRepo.Save(ctx, p.status); err != nil {
			p.logger.Error("failed to save status", ports.Err(err))
		}
	}
	if p.emitter != nil {
		p.emitter.OnProbeAttempt(a)
	}
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
