// Package serial opens UART devices for the echo task and switches them to
// RS-485 half-duplex mode.
package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"

	"github.com/bft-labs/bringup/internal/domain"
	"github.com/bft-labs/bringup/internal/ports"
)

// Line defaults: 115200 8N1, no flow control.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 20 * time.Millisecond
)

// RS485 flag bits of the kernel's struct serial_rs485.
const (
	flagEnabled      = 1 << 0
	flagRTSOnSend    = 1 << 1
	flagRTSAfterSend = 1 << 2
	flagRxDuringTx   = 1 << 4
)

// RS485Options configures half-duplex direction control through RTS.
type RS485Options struct {
	Enabled bool

	// RTSOnSend drives RTS high while transmitting. It is the usual wiring
	// for transceivers whose DE pin follows RTS.
	RTSOnSend bool

	// RTSAfterSend keeps RTS high after transmission.
	RTSAfterSend bool

	// RxDuringTx keeps the receiver enabled while sending.
	RxDuringTx bool

	DelayBeforeSend time.Duration
	DelayAfterSend  time.Duration
}

// DefaultRS485Options enables RS-485 with RTS asserted while sending.
func DefaultRS485Options() RS485Options {
	return RS485Options{Enabled: true, RTSOnSend: true}
}

func (o RS485Options) flags() uint32 {
	var f uint32
	if o.Enabled {
		f |= flagEnabled
	}
	if o.RTSOnSend {
		f |= flagRTSOnSend
	}
	if o.RTSAfterSend {
		f |= flagRTSAfterSend
	}
	if o.RxDuringTx {
		f |= flagRxDuringTx
	}
	return f
}

// Config describes the serial line.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
	RS485       RS485Options
}

// Port is an open serial line. It implements ports.SerialPort.
type Port struct {
	port   *serial.Port
	device string
}

var _ ports.SerialPort = (*Port)(nil)

// Open configures and opens the device as 8N1 without flow control and,
// when requested, switches it to RS-485 mode.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: serial device is required", domain.ErrInvalidConfig)
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	if cfg.RS485.Enabled {
		if err := setRS485(cfg.Device, cfg.RS485); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("enable rs485 on %s: %w", cfg.Device, err)
		}
	}

	// Discard whatever accumulated before the port was configured.
	_ = p.Flush()

	return &Port{port: p, device: cfg.Device}, nil
}

func (p *Port) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *Port) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *Port) Close() error                { return p.port.Close() }

// Device returns the device path the port was opened from.
func (p *Port) Device() string { return p.device }
