package bringup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bft-labs/bringup/internal/adapters/fs"
	"github.com/bft-labs/bringup/internal/adapters/netif"
	"github.com/bft-labs/bringup/internal/adapters/serial"
	"github.com/bft-labs/bringup/internal/adapters/tcp"
	"github.com/bft-labs/bringup/internal/app"
	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

// Agent runs the probe and echo tasks. Use New() to create an instance,
// then Start() to launch the tasks.
type Agent struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	logger    ports.Logger
	plugins   []Plugin

	readiness *app.Readiness
	monitor   *netif.Monitor
	probe     *app.Probe
	echo      *app.Echo
	port      ports.SerialPort

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
	err      error
}

// New creates an Agent with the given configuration. The agent is created
// in StateStopped; nothing is opened until Start.
func New(cfg Config, opts ...Option) (*Agent, error) {
	cfg = cfg.clone()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	a := &Agent{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		logger:    logger,
		plugins:   o.plugins,
		done:      make(chan struct{}),
	}

	if p := cfg.Probe; p != nil {
		leases := o.leases
		if leases == nil {
			a.readiness = app.NewReadiness()
			a.monitor = netif.NewMonitor(p.Iface, p.LeasePoll, a.readiness, logger)
			leases = a.readiness
		}
		resolver := o.resolver
		if resolver == nil {
			resolver = tcp.NewResolver(nil)
		}
		dialer := o.dialer
		if dialer == nil {
			dialer = tcp.NewDialer(p.ConnectTimeout)
		}
		out := o.output
		if out == nil {
			out = os.Stdout
		}
		var statusRepo ports.StatusRepository
		if p.StatusDir != "" {
			statusRepo = fs.NewStatusFileRepository(p.StatusDir)
		}

		a.probe = app.NewProbe(
			app.ProbeConfig{
				Delays:         p.Delays,
				ReceiveTimeout: p.ReceiveTimeout,
				BufferSize:     p.BufferSize,
			},
			domain.NewRequest(p.Target),
			leases, resolver, dialer, out, statusRepo, logger, emitter,
		)
	}

	return a, nil
}

// Start opens the configured resources and launches the tasks in the
// background. Returns an error if already running or if startup fails.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := a.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.lifecycle.SetCancel(cancel)
	a.done = make(chan struct{})
	a.doneOnce = sync.Once{}
	a.err = nil

	if err := a.open(); err != nil {
		return a.abortStart(cancel, err)
	}

	pluginCfg := PluginConfig{
		ConfigPath: a.opts.configPath,
		Overrides:  a.opts.overrides,
		Logger:     a.logger,
		Agent:      a,
	}
	if a.config.Probe != nil {
		pluginCfg.Iface = a.config.Probe.Iface
	}
	for _, p := range a.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			a.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			return a.abortStart(cancel, fmt.Errorf("plugin %s: %w", p.Name(), err))
		}
		a.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if a.monitor != nil {
		a.lifecycle.Go("link", func() error { return a.monitor.Run(runCtx) }, a.taskExited(runCtx))
	}
	if a.probe != nil {
		a.lifecycle.Go("probe", func() error { return a.probe.Run(runCtx) }, a.taskExited(runCtx))
	}
	if a.echo != nil {
		a.lifecycle.Go("echo", func() error { return a.echo.Run(runCtx) }, a.taskExited(runCtx))
	}

	return a.lifecycle.TransitionTo(app.StateRunning, "tasks started")
}

// open checks the interface and opens the serial port. Failures here are
// fatal for Start.
func (a *Agent) open() error {
	if a.monitor != nil {
		if err := a.monitor.Check(); err != nil {
			return err
		}
	}
	if e := a.config.Echo; e != nil {
		port := a.opts.port
		if port == nil {
			p, err := serial.Open(serial.Config{
				Device:      e.Device,
				Baud:        e.Baud,
				ReadTimeout: e.ReadTimeout,
				RS485:       e.RS485,
			})
			if err != nil {
				return err
			}
			a.logger.Info("serial port open",
				ports.String("device", e.Device),
				ports.Int("baud", e.Baud),
				ports.Bool("rs485", e.RS485.Enabled),
			)
			port = p
		}
		a.port = port
		a.echo = app.NewEcho(app.EchoConfig{
			BufferSize:  e.BufferSize,
			ReadTimeout: e.ReadTimeout,
			Frame:       domain.DefaultEchoFrame(),
		}, port, a.logger)
	}
	return nil
}

func (a *Agent) abortStart(cancel context.CancelFunc, err error) error {
	cancel()
	a.closePort()
	_ = a.lifecycle.TransitionTo(app.StateCrashed, err.Error())
	a.finish(err)
	return err
}

// taskExited crashes the agent when a task ends on its own.
func (a *Agent) taskExited(runCtx context.Context) func(name string, err error) {
	return func(name string, err error) {
		if runCtx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("exited")
		}
		err = fmt.Errorf("%s task: %w", name, err)
		a.logger.Error("task failed", ports.String("task", name), ports.Err(err))
		_ = a.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		a.lifecycle.Cancel()
		a.finish(err)
	}
}

// Stop cancels the tasks, waits up to 30 seconds for them to return,
// closes the serial port and shuts plugins down in reverse order.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
// On a crashed agent Stop releases the resources and returns the crash cause.
func (a *Agent) Stop() error {
	a.mu.Lock()

	crashed := a.lifecycle.State() == app.StateCrashed
	if !crashed {
		if !a.lifecycle.CanStop() {
			a.mu.Unlock()
			return ErrNotRunning
		}
		if err := a.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
			a.mu.Unlock()
			return err
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	err := a.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	a.closePort()

	shutdownCtx := context.Background()
	for i := len(a.plugins) - 1; i >= 0; i-- {
		p := a.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			a.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	if crashed {
		if err == nil {
			err = a.Err()
		}
		return err
	}
	if err != nil {
		_ = a.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = a.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	a.finish(err)
	return err
}

func (a *Agent) closePort() {
	if a.port == nil {
		return
	}
	if err := a.port.Close(); err != nil {
		a.logger.Warn("serial port close failed", ports.Err(err))
	}
	a.port = nil
}

func (a *Agent) finish(err error) {
	a.doneOnce.Do(func() {
		a.err = err
		close(a.done)
	})
}

// Done is closed when the agent stops or crashes.
func (a *Agent) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Err returns why the agent crashed, or nil.
func (a *Agent) Err() error {
	select {
	case <-a.Done():
		return a.err
	default:
		return nil
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (a *Agent) Status() State {
	return convertState(a.lifecycle.State())
}

// Target returns the probe target, or false when the probe is disabled.
func (a *Agent) Target() (Target, bool) {
	if a.probe == nil {
		return Target{}, false
	}
	return a.probe.Request().Target(), true
}

// UpdateTarget swaps the probe target. The next iteration uses it; an
// exchange in progress finishes with the old one.
func (a *Agent) UpdateTarget(t Target) error {
	if a.probe == nil {
		return fmt.Errorf("%w: probe is disabled", ErrInvalidConfig)
	}
	if t.Port == 0 {
		t.Port = domain.DefaultHTTPPort
	}
	if err := validateTarget(t); err != nil {
		return err
	}
	req := domain.NewRequest(t)
	a.probe.SetRequest(req)
	a.logger.Info("probe target updated",
		ports.String("host", req.Target().Host),
		ports.Int("port", int(req.Target().Port)),
		ports.String("path", req.Target().Path),
	)
	return nil
}

// EchoStats returns the echo counters, or false when echo is not running.
func (a *Agent) EchoStats() (EchoStats, bool) {
	a.mu.Lock()
	e := a.echo
	a.mu.Unlock()
	if e == nil {
		return EchoStats{}, false
	}
	return e.Stats(), true
}
