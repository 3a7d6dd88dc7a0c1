package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for tasks to return after Stop.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of the agent.
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

// Lifecycle manages the state machine for the agent and the tasks it runs.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	tasks        map[string]struct{}
	logger       ports.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateStopped,
		tasks:        make(map[string]struct{}),
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if err := validTransition(oldState, newState); err != nil {
		l.mu.Unlock()
		return err
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

func validTransition(from, to State) error {
	switch from {
	case StateStopped:
		if to != StateStarting {
			return domain.ErrNotRunning
		}
	case StateStarting:
		if to != StateRunning && to != StateStopping && to != StateCrashed {
			return domain.ErrAlreadyRunning
		}
	case StateRunning:
		if to != StateStopping && to != StateCrashed {
			return domain.ErrAlreadyRunning
		}
	case StateStopping:
		if to != StateStopped && to != StateCrashed {
			return domain.ErrAlreadyRunning
		}
	case StateCrashed:
		if to != StateStarting {
			return domain.ErrNotRunning
		}
	}
	return nil
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// SetCancel stores the cancel function for graceful shutdown.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel triggers graceful shutdown.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn as a named task tracked by the lifecycle. onExit, if not nil,
// receives the task's error once fn returns.
func (l *Lifecycle) Go(name string, fn func() error, onExit func(name string, err error)) {
	l.mu.Lock()
	l.tasks[name] = struct{}{}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := fn()

		l.mu.Lock()
		delete(l.tasks, name)
		l.mu.Unlock()

		if onExit != nil {
			onExit(name, err)
		}
	}()
}

// Tasks returns the number of tasks still running.
func (l *Lifecycle) Tasks() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tasks)
}

// WaitWithTimeout waits for all tasks to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
			ports.Int("tasks", l.Tasks()),
		)
		return domain.ErrShutdownTimeout
	}
}
