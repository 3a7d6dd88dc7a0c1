// Package bringup provides an embeddable board bring-up agent.
//
// The agent runs up to two independent tasks:
//
//   - a network probe that, while an interface holds an IPv4 lease,
//     resolves a host, opens a TCP connection, sends a fixed HTTP/1.0 GET
//     request and copies the response to an output writer, retrying with
//     fixed delays;
//   - a serial echo that reads an RS-485 line and writes every chunk back
//     between a fixed prefix and suffix, or a liveness marker when the line
//     stayed quiet.
//
// # Basic Usage
//
//	cfg := bringup.Config{
//	    Probe: &bringup.ProbeConfig{
//	        Iface:  "eth0",
//	        Target: bringup.Target{Host: "example.com"},
//	    },
//	}
//
//	agent, err := bringup.New(cfg, bringup.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := agent.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Stop()
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler] for no-op defaults)
// and pass it via [WithEventHandler] to observe state changes and every
// probe attempt. Handlers are called synchronously from the task goroutines.
//
// # Dependency Injection
//
// The network and serial sides can be replaced for tests or unusual
// platforms with [WithResolver], [WithDialer], [WithLeaseSource] and
// [WithSerialPort].
//
// # Lifecycle States
//
// An Agent is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. Use [Agent.Status] to query it.
package bringup
