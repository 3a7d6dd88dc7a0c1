package ports

// SerialPort is an open, configured serial line.
//
// Read waits at most the port's read timeout and returns (0, io.EOF) or
// (0, nil) when nothing arrived in that window.
type SerialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}
