package domain

import (
	"bytes"
	"testing"
)

func TestEchoFrame_Append(t *testing.T) {
	f := DefaultEchoFrame()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"single byte", "a", "\r\nRS485 Received: [a]\r\n"},
		{"preserves order", "hello", "\r\nRS485 Received: [hello]\r\n"},
		{"carriage return gets line feed", "ab\rcd", "\r\nRS485 Received: [ab\r\ncd]\r\n"},
		{"consecutive carriage returns", "\r\r", "\r\nRS485 Received: [\r\n\r\n]\r\n"},
		{"existing crlf gains another lf", "x\r\n", "\r\nRS485 Received: [x\r\n\n]\r\n"},
		{"binary bytes pass through", "\x00\xff", "\r\nRS485 Received: [\x00\xff]\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Append(nil, []byte(tt.data))
			if string(got) != tt.want {
				t.Errorf("Append() = %q, want %q", got, tt.want)
			}
			if f.Size([]byte(tt.data)) != len(got) {
				t.Errorf("Size() = %d, want %d", f.Size([]byte(tt.data)), len(got))
			}
		})
	}
}

func TestEchoFrame_AppendReusesBuffer(t *testing.T) {
	f := DefaultEchoFrame()
	buf := make([]byte, 0, 64)
	buf = f.Append(buf[:0], []byte("one"))
	buf = f.Append(buf[:0], []byte("two"))
	if !bytes.Equal(buf, []byte("\r\nRS485 Received: [two]\r\n")) {
		t.Errorf("Append() after reuse = %q", buf)
	}
}

// Every carriage return in the input must be immediately followed by a line
// feed in the output, and stripping the added line feeds must give back the input.
func TestEchoFrame_CarriageReturnProperty(t *testing.T) {
	f := EchoFrame{Prefix: "<", Suffix: ">"}
	inputs := []string{"", "\r", "a\rb\rc", "\r\n\r", "plain"}

	for _, in := range inputs {
		out := f.Append(nil, []byte(in))
		body := out[len(f.Prefix) : len(out)-len(f.Suffix)]

		var restored []byte
		for i := 0; i < len(body); i++ {
			restored = append(restored, body[i])
			if body[i] == '\r' {
				if i+1 >= len(body) || body[i+1] != '\n' {
					t.Fatalf("input %q: carriage return at %d not followed by line feed in %q", in, i, body)
				}
				i++
			}
		}
		if string(restored) != in {
			t.Errorf("input %q: restored %q", in, restored)
		}
	}
}
