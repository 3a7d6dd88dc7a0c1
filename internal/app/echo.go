package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

// Echo defaults.
const (
	DefaultEchoBufferSize  = 1024
	DefaultEchoReadTimeout = 20 * time.Millisecond
)

// EchoConfig contains configuration for the echo loop.
type EchoConfig struct {
	// BufferSize is the maximum number of bytes read per iteration
	BufferSize int

	// ReadTimeout is the port's bounded read wait. The loop also pauses
	// this long after a failed read so a dead port cannot spin.
	ReadTimeout time.Duration

	Frame domain.EchoFrame
}

// EchoStats counts what the echo loop has written back.
type EchoStats struct {
	Frames   uint64
	Bytes    uint64
	Liveness uint64
}

// Echo writes every chunk received on a serial port back to it, decorated,
// and a liveness marker whenever a read window passes without data.
type Echo struct {
	config EchoConfig
	port   ports.SerialPort
	logger ports.Logger

	frames   atomic.Uint64
	bytes    atomic.Uint64
	liveness atomic.Uint64

	buf  []byte
	out  []byte
	live []byte

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEcho creates a new echo loop on port.
func NewEcho(config EchoConfig, port ports.SerialPort, logger ports.Logger) *Echo {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultEchoBufferSize
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultEchoReadTimeout
	}
	if config.Frame == (domain.EchoFrame{}) {
		config.Frame = domain.DefaultEchoFrame()
	}
	return &Echo{
		config: config,
		port:   port,
		logger: logger,
		buf:    make([]byte, config.BufferSize),
		live:   []byte(config.Frame.Liveness),
		sleep:  sleep,
	}
}

// Run executes the echo loop until ctx is canceled.
func (e *Echo) Run(ctx context.Context) error {
	defer func() {
		st := e.Stats()
		e.logger.Info("echo stopped",
			ports.Uint64("frames", st.Frames),
			ports.Uint64("bytes", st.Bytes),
			ports.Uint64("liveness", st.Liveness),
		)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Step(ctx); err != nil {
			return err
		}
	}
}

// Step performs one read and the matching write. It returns an error only
// when ctx is canceled.
func (e *Echo) Step(ctx context.Context) error {
	n, err := e.port.Read(e.buf)
	failed := err != nil && !errors.Is(err, io.EOF)
	if failed {
		e.logger.Debug("serial read failed", ports.Err(err))
	}

	if n == 0 {
		e.write(e.live)
		e.liveness.Add(1)
		if failed {
			return e.sleep(ctx, e.config.ReadTimeout)
		}
		return nil
	}

	e.out = e.config.Frame.Append(e.out[:0], e.buf[:n])
	e.write(e.out)
	e.frames.Add(1)
	e.bytes.Add(uint64(n))
	return nil
}

func (e *Echo) write(b []byte) {
	if _, err := e.port.Write(b); err != nil {
		e.logger.Debug("serial write failed", ports.Err(err))
	}
}

// Stats returns the counters. Safe to call concurrently with Run.
func (e *Echo) Stats() EchoStats {
	return EchoStats{
		Frames:   e.frames.Load(),
		Bytes:    e.bytes.Load(),
		Liveness: e.liveness.Load(),
	}
}
