package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultHTTPPort is the port the probe connects to unless configured otherwise.
const DefaultHTTPPort = 80

// Target identifies the host the probe talks to and how it asks.
type Target struct {
	Host      string
	Port      uint16
	Path      string
	UserAgent string
}

// Validate checks that the path and user agent fit in the request text
// unchanged. The path must not contain spaces or control characters, the
// user agent must not contain control characters. The host is checked by
// the caller.
func (t Target) Validate() error {
	if i := strings.IndexFunc(t.Path, func(r rune) bool { return r <= ' ' || r == 0x7f }); i >= 0 {
		return fmt.Errorf("%w: path %q contains %q", ErrInvalidConfig, t.Path, t.Path[i])
	}
	if i := strings.IndexFunc(t.UserAgent, func(r rune) bool { return r < ' ' || r == 0x7f }); i >= 0 {
		return fmt.Errorf("%w: user agent %q contains %q", ErrInvalidConfig, t.UserAgent, t.UserAgent[i])
	}
	return nil
}

// Request is the fixed HTTP/1.0 request sent on every probe iteration.
// It is computed once per Target and sent verbatim.
type Request struct {
	target Target
	raw    []byte
}

// NewRequest precomputes the request text for t.
//
// The request line uses the absolute URI form:
//
//	GET http://host/path HTTP/1.0
//	Host: host
//	User-Agent: ua
//
// followed by an empty line.
func NewRequest(t Target) Request {
	if t.Port == 0 {
		t.Port = DefaultHTTPPort
	}
	if t.Path == "" || t.Path[0] != '/' {
		t.Path = "/" + t.Path
	}
	authority := t.Host
	if t.Port != DefaultHTTPPort {
		authority = t.Host + ":" + strconv.Itoa(int(t.Port))
	}

	var b strings.Builder
	b.WriteString("GET http://")
	b.WriteString(authority)
	b.WriteString(t.Path)
	b.WriteString(" HTTP/1.0\r\n")
	b.WriteString("Host: ")
	b.WriteString(authority)
	b.WriteString("\r\n")
	if t.UserAgent != "" {
		b.WriteString("User-Agent: ")
		b.WriteString(t.UserAgent)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	return Request{target: t, raw: []byte(b.String())}
}

// Target returns the normalized target the request was built for.
func (r Request) Target() Target { return r.target }

// Bytes returns the raw request. Callers must not modify the slice.
func (r Request) Bytes() []byte { return r.raw }

// Len returns the request length in bytes.
func (r Request) Len() int { return len(r.raw) }

// String returns the request text.
func (r Request) String() string { return string(r.raw) }
