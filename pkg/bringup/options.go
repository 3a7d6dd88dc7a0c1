package bringup

import (
	"io"

	logAdapter "github.com/bft-labs/bringup/internal/adapters/log"
	"github.com/bft-labs/bringup/internal/ports"
)

// Injectable adapters.
type (
	// Resolver resolves the probe host to IPv4 addresses.
	Resolver = ports.Resolver

	// Dialer opens the probe's TCP connections.
	Dialer = ports.Dialer

	// Conn is a connection returned by a Dialer.
	Conn = ports.Conn

	// LeaseSource reports whether the network is ready.
	LeaseSource = ports.LeaseSource

	// SerialPort is the line the echo task runs on.
	SerialPort = ports.SerialPort
)

// Option configures optional behavior of an Agent.
type Option func(*options)

type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	output       io.Writer
	resolver     ports.Resolver
	dialer       ports.Dialer
	leases       ports.LeaseSource
	port         ports.SerialPort
	configPath   string
	overrides    map[string]bool
}

func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for agent events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the agent starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithOutput sets where the probe copies response bytes. Default: os.Stdout
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithResolver replaces the system resolver.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithLeaseSource replaces the interface monitor. The probe then asks src
// for the lease and no interface is polled.
func WithLeaseSource(src LeaseSource) Option {
	return func(o *options) {
		o.leases = src
	}
}

// WithSerialPort runs the echo task on an already open port. The agent
// closes it on Stop.
func WithSerialPort(p SerialPort) Option {
	return func(o *options) {
		o.port = p
	}
}

// WithConfigSource tells plugins which file the configuration came from
// and which settings were fixed on the command line.
func WithConfigSource(path string, overrides map[string]bool) Option {
	return func(o *options) {
		o.configPath = path
		o.overrides = overrides
	}
}
