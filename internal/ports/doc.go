// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [LeaseSource]: Reports whether an interface holds an address lease
//   - [Resolver]: Resolves hostnames to IPv4 addresses
//   - [Dialer] and [Conn]: Stream connections to the probe target
//   - [SerialPort]: A configured serial line with a bounded read wait
//   - [StatusRepository]: Persists and loads the probe status
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (OS sockets, tarm/serial, zerolog, etc.).
package ports
