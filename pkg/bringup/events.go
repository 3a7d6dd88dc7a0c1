package bringup

import (
	"context"
	"time"

	"github.com/bft-labs/bringup/internal/app"
	"github.com/bft-labs/bringup/internal/ports"
)

// State is the lifecycle state of an Agent.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ProbeAttemptEvent is emitted after every probe iteration.
type ProbeAttemptEvent struct {
	Outcome       string
	Failed        bool
	Lease         Lease
	Remote        string
	BytesSent     int
	BytesReceived int
	Err           error
	Started       time.Time
	Duration      time.Duration
}

// EventHandler receives agent events.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnProbeAttempt(event ProbeAttemptEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// handle only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnProbeAttempt(ProbeAttemptEvent) {}

// Logger is the structured logger used by the agent and its plugins.
type Logger = ports.Logger

// LogField is a structured log field.
type LogField = ports.Field

// TargetUpdater swaps the probe target of a running agent.
type TargetUpdater interface {
	Target() (Target, bool)
	UpdateTarget(t Target) error
}

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	// ConfigPath is the configuration file the agent was started from,
	// if any.
	ConfigPath string

	// Overrides names the settings fixed on the command line. A plugin
	// reloading configuration must leave them alone.
	Overrides map[string]bool

	// Iface is the interface the probe runs on, empty when the probe is
	// disabled.
	Iface string

	Logger Logger
	Agent  TargetUpdater
}

// Plugin extends an Agent. Plugins are initialized in registration order
// by Start and shut down in reverse order by Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnProbeAttempt(a Attempt) {
	if e.handler == nil {
		return
	}
	ev := ProbeAttemptEvent{
		Outcome:       a.Outcome.String(),
		Failed:        a.Outcome.Failed(),
		Lease:         a.Lease,
		BytesSent:     a.BytesSent,
		BytesReceived: a.BytesReceived,
		Err:           a.Err,
		Started:       a.Started,
		Duration:      a.Duration,
	}
	if a.Remote.IsValid() {
		ev.Remote = a.Remote.String()
	}
	e.handler.OnProbeAttempt(ev)
}
