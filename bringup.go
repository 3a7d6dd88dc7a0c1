// Package bringup runs the network probe and RS-485 echo used to bring up
// new boards.
//
// Example usage:
//
//	cfg := bringup.DefaultConfig()
//	cfg.Probe = true
//	cfg.Host = "example.com"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := bringup.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
package bringup

import (
	"context"
	"errors"

	"github.com/bft-labs/bringup/internal/cliconfig"
	"github.com/bft-labs/bringup/pkg/bringup"
)

// Config holds the flat configuration read from flags, environment and file.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with default values and no task enabled.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// AgentConfig converts cfg into the agent configuration of the enabled tasks.
func AgentConfig(cfg Config) bringup.Config {
	var out bringup.Config
	if cfg.Probe {
		out.Probe = &bringup.ProbeConfig{
			Iface:     cfg.Iface,
			Target:    cfg.Target(),
			LeasePoll: cfg.LeasePoll,
			Delays: bringup.Delays{
				Idle:    cfg.IdleDelay,
				Resolve: cfg.ResolveDelay,
				Socket:  cfg.SocketDelay,
				Connect: cfg.ConnectDelay,
				Send:    cfg.SendDelay,
			},
			ConnectTimeout: cfg.ConnectTimeout,
			ReceiveTimeout: cfg.ReceiveTimeout,
			BufferSize:     cfg.RecvBufferSize,
			StatusDir:      cfg.StatusDir,
		}
	}
	if cfg.Echo {
		rs485 := bringup.DefaultRS485Options()
		rs485.Enabled = cfg.RS485
		rs485.RTSAfterSend = cfg.RS485AfterSend
		rs485.DelayBeforeSend = cfg.RS485DelayBefore
		rs485.DelayAfterSend = cfg.RS485DelayAfter
		out.Echo = &bringup.EchoConfig{
			Device:      cfg.SerialDevice,
			Baud:        cfg.Baud,
			ReadTimeout: cfg.SerialReadTimeout,
			BufferSize:  cfg.EchoBufferSize,
			RS485:       rs485,
		}
	}
	return out
}

// Run starts the enabled tasks and blocks until ctx is canceled or a task
// fails. It returns nil after a graceful stop.
func Run(ctx context.Context, cfg Config, opts ...bringup.Option) error {
	a, err := bringup.New(AgentConfig(cfg), opts...)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}

	stopErr := a.Stop()
	if errors.Is(stopErr, bringup.ErrNotRunning) {
		stopErr = nil
	}
	if crashErr := a.Err(); crashErr != nil {
		return crashErr
	}
	return stopErr
}
