package domain

import "errors"

// Domain errors represent error conditions in the bringup domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("bringup: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("bringup: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("bringup: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("bringup: invalid configuration")

	// ErrNoLease is reported when the interface holds no address lease.
	ErrNoLease = errors.New("bringup: no address lease")

	// ErrNoAddress is returned when a lookup succeeds without IPv4 answers.
	ErrNoAddress = errors.New("bringup: no ipv4 address for host")

	// ErrSocket wraps failures to allocate a socket, as opposed to failures
	// of the connection handshake itself.
	ErrSocket = errors.New("bringup: socket allocation failed")

	// ErrShortWrite is returned when the request was only partially written.
	ErrShortWrite = errors.New("bringup: short write")

	// ErrRS485Unsupported is returned when RS-485 mode is requested on a
	// platform without kernel support for it.
	ErrRS485Unsupported = errors.New("bringup: rs485 mode not supported on this platform")
)
