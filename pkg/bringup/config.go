package bringup

import (
	"fmt"
	"time"

	"github.com/bft-labs/bringup/internal/adapters/netif"
	"github.com/bft-labs/bringup/internal/adapters/serial"
	"github.com/bft-labs/bringup/internal/app"
	"github.com/bft-labs/bringup/internal/cliconfig"
	"github.com/bft-labs/bringup/internal/domain"
)

// Re-exported domain types.
type (
	// Target is the host, port, path and user agent of the probe request.
	Target = domain.Target

	// Lease is the IPv4 configuration of the monitored interface.
	Lease = domain.Lease

	// Attempt is the result of one probe iteration.
	Attempt = domain.Attempt

	// Outcome classifies how a probe iteration ended.
	Outcome = domain.Outcome

	// Delays holds the fixed pause applied after each probe outcome.
	Delays = app.Delays

	// RS485Options configures half-duplex direction control.
	RS485Options = serial.RS485Options

	// EchoStats counts what the echo task has written.
	EchoStats = app.EchoStats
)

// Errors returned by the agent.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// DefaultDelays returns the fixed probe delays: 2s idle, 1s after a failed
// lookup or socket allocation, 4s after a failed connect or send.
func DefaultDelays() Delays { return app.DefaultDelays() }

// DefaultRS485Options enables RS-485 with RTS asserted while sending.
func DefaultRS485Options() RS485Options { return serial.DefaultRS485Options() }

// Config selects and configures the tasks of an Agent. A nil task config
// disables that task.
type Config struct {
	Probe *ProbeConfig
	Echo  *EchoConfig
}

// ProbeConfig configures the network probe.
type ProbeConfig struct {
	// Iface is the interface whose lease gates the probe. Ignored when a
	// lease source is injected with WithLeaseSource.
	Iface string

	Target Target

	// LeasePoll is how often the interface is inspected. Default: 1s
	LeasePoll time.Duration

	// Delays are the pauses after each outcome. A zero Delays means
	// DefaultDelays(); otherwise zero fields stay zero.
	Delays Delays

	// ConnectTimeout bounds a connection attempt. Zero leaves it to the OS.
	ConnectTimeout time.Duration

	// ReceiveTimeout bounds every read of the response. Default: 5s
	ReceiveTimeout time.Duration

	// BufferSize is the receive buffer size. Default: 64
	BufferSize int

	// StatusDir, when set, receives probe-status.json after every attempt.
	StatusDir string
}

// EchoConfig configures the serial echo.
type EchoConfig struct {
	// Device is the serial device path. Ignored when a port is injected
	// with WithSerialPort.
	Device string

	// Baud rate. Default: 115200
	Baud int

	// ReadTimeout bounds every read. Default: 20ms
	ReadTimeout time.Duration

	// BufferSize is the maximum number of bytes echoed per read. Default: 1024
	BufferSize int

	RS485 RS485Options
}

// clone copies the task configs so defaults never reach the caller's structs.
func (c Config) clone() Config {
	if c.Probe != nil {
		p := *c.Probe
		c.Probe = &p
	}
	if c.Echo != nil {
		e := *c.Echo
		c.Echo = &e
	}
	return c
}

// SetDefaults fills unset fields with defaults.
func (c *Config) SetDefaults() {
	if p := c.Probe; p != nil {
		if p.Target.Port == 0 {
			p.Target.Port = domain.DefaultHTTPPort
		}
		if p.Target.Path == "" {
			p.Target.Path = cliconfig.DefaultPath
		}
		if p.Delays == (Delays{}) {
			p.Delays = DefaultDelays()
		}
		if p.LeasePoll <= 0 {
			p.LeasePoll = netif.DefaultPollInterval
		}
		if p.ReceiveTimeout <= 0 {
			p.ReceiveTimeout = app.DefaultReceiveTimeout
		}
		if p.BufferSize <= 0 {
			p.BufferSize = app.DefaultReceiveBufferSize
		}
	}
	if e := c.Echo; e != nil {
		if e.Baud <= 0 {
			e.Baud = serial.DefaultBaud
		}
		if e.ReadTimeout <= 0 {
			e.ReadTimeout = serial.DefaultReadTimeout
		}
		if e.BufferSize <= 0 {
			e.BufferSize = app.DefaultEchoBufferSize
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Probe == nil && c.Echo == nil {
		return fmt.Errorf("%w: no task configured", ErrInvalidConfig)
	}
	if p := c.Probe; p != nil {
		if err := validateTarget(p.Target); err != nil {
			return err
		}
		if p.ConnectTimeout < 0 {
			return fmt.Errorf("%w: connect timeout must not be negative", ErrInvalidConfig)
		}
	}
	return nil
}

func validateTarget(t Target) error {
	if err := cliconfig.ValidateHost(t.Host); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Port == 0 {
		return fmt.Errorf("%w: port must not be zero", ErrInvalidConfig)
	}
	return nil
}
