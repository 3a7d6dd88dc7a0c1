package domain

// Decoration written around echoed serial data.
const (
	EchoPrefix     = "\r\nRS485 Received: ["
	EchoSuffix     = "]\r\n"
	LivenessMarker = "."
)

// EchoFrame decorates received serial bytes before they are written back.
type EchoFrame struct {
	Prefix   string
	Suffix   string
	Liveness string
}

// DefaultEchoFrame returns the decoration used on the RS-485 bus.
func DefaultEchoFrame() EchoFrame {
	return EchoFrame{
		Prefix:   EchoPrefix,
		Suffix:   EchoSuffix,
		Liveness: LivenessMarker,
	}
}

// Append appends the decorated echo of data to dst and returns the extended
// buffer. Every byte of data appears between the prefix and the suffix in
// order; a carriage return is always followed by an added line feed.
func (f EchoFrame) Append(dst, data []byte) []byte {
	dst = append(dst, f.Prefix...)
	for _, c := range data {
		dst = append(dst, c)
		if c == '\r' {
			dst = append(dst, '\n')
		}
	}
	return append(dst, f.Suffix...)
}

// Size returns the length of the decorated echo of data.
func (f EchoFrame) Size(data []byte) int {
	n := len(f.Prefix) + len(data) + len(f.Suffix)
	for _, c := range data {
		if c == '\r' {
			n++
		}
	}
	return n
}
