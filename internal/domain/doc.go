// Package domain contains the core domain entities and value objects for bringup.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (sockets, serial ports, logging)
// and contains only pure logic.
//
// # Entities
//
//   - [Lease]: The IPv4 configuration currently held by a network interface
//   - [Request]: The fixed HTTP/1.0 request the probe sends every iteration
//   - [Attempt]: The result of one probe iteration and its [Outcome]
//   - [EchoFrame]: The decoration applied to bytes echoed on the serial line
//   - [Status]: Counters and the last attempt, persisted between runs
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
