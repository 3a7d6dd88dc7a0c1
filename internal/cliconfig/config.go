package cliconfig

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/soypat/seqs/eth/dns"

	logAdapter "github.com/bft-labs/bringup/internal/adapters/log"
	"github.com/bft-labs/bringup/internal/domain"
)

// Defaults for the probe target.
const (
	DefaultHost      = "example.com"
	DefaultPath      = "/"
	DefaultUserAgent = "bringup/1.0"
	DefaultIface     = "eth0"
	DefaultDevice    = "/dev/ttyUSB0"
)

// Config holds CLI configuration for bringup.
type Config struct {
	// Probe and Echo select the tasks to run.
	Probe bool
	Echo  bool

	Iface     string
	Host      string
	Port      int
	Path      string
	UserAgent string

	LeasePoll      time.Duration
	IdleDelay      time.Duration
	ResolveDelay   time.Duration
	SocketDelay    time.Duration
	ConnectDelay   time.Duration
	SendDelay      time.Duration
	ConnectTimeout time.Duration
	ReceiveTimeout time.Duration
	RecvBufferSize int
	StatusDir      string

	SerialDevice      string
	Baud              int
	SerialReadTimeout time.Duration
	EchoBufferSize    int
	RS485             bool
	RS485AfterSend    bool
	RS485DelayBefore  time.Duration
	RS485DelayAfter   time.Duration

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Iface:             DefaultIface,
		Host:              DefaultHost,
		Port:              domain.DefaultHTTPPort,
		Path:              DefaultPath,
		UserAgent:         DefaultUserAgent,
		LeasePoll:         time.Second,
		IdleDelay:         2 * time.Second,
		ResolveDelay:      1 * time.Second,
		SocketDelay:       1 * time.Second,
		ConnectDelay:      4 * time.Second,
		SendDelay:         4 * time.Second,
		ReceiveTimeout:    5 * time.Second,
		RecvBufferSize:    64,
		SerialDevice:      DefaultDevice,
		Baud:              115200,
		SerialReadTimeout: 20 * time.Millisecond,
		EchoBufferSize:    1024,
		RS485:             true,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// Validate checks the configuration of every enabled task.
func (c *Config) Validate() error {
	if !c.Probe && !c.Echo {
		return fmt.Errorf("%w: no task enabled", domain.ErrInvalidConfig)
	}
	if _, err := logAdapter.ParseLevel(c.LogLevel); err != nil {
		return invalid("%v", err)
	}
	if _, err := logAdapter.ParseFormat(c.LogFormat); err != nil {
		return invalid("%v", err)
	}
	if c.Probe {
		if err := c.ValidateProbe(); err != nil {
			return err
		}
	}
	if c.Echo {
		if err := c.ValidateEcho(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProbe checks the probe settings and normalizes the path.
func (c *Config) ValidateProbe() error {
	if c.Iface == "" {
		return invalid("iface is required")
	}
	if err := ValidateHost(c.Host); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return invalid("port %d out of range", c.Port)
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if err := c.Target().Validate(); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{
		"idle-delay":      c.IdleDelay,
		"resolve-delay":   c.ResolveDelay,
		"socket-delay":    c.SocketDelay,
		"connect-delay":   c.ConnectDelay,
		"send-delay":      c.SendDelay,
		"connect-timeout": c.ConnectTimeout,
	} {
		if d < 0 {
			return invalid("%s must not be negative", name)
		}
	}
	if c.LeasePoll <= 0 {
		return invalid("lease-poll must be positive")
	}
	if c.ReceiveTimeout <= 0 {
		return invalid("receive-timeout must be positive")
	}
	if c.RecvBufferSize <= 0 {
		return invalid("recv-buffer must be positive")
	}
	return nil
}

// ValidateEcho checks the serial settings.
func (c *Config) ValidateEcho() error {
	if c.SerialDevice == "" {
		return invalid("device is required")
	}
	if c.Baud <= 0 {
		return invalid("baud must be positive")
	}
	if c.SerialReadTimeout <= 0 {
		return invalid("serial-timeout must be positive")
	}
	if c.EchoBufferSize <= 0 {
		return invalid("echo-buffer must be positive")
	}
	if c.RS485DelayBefore < 0 || c.RS485DelayAfter < 0 {
		return invalid("rs485 delays must not be negative")
	}
	return nil
}

// ValidateHost accepts an IPv4 literal or a DNS name.
func ValidateHost(host string) error {
	if host == "" {
		return invalid("host is required")
	}
	if a, err := netip.ParseAddr(host); err == nil {
		if !a.Is4() {
			return invalid("host %s is not an IPv4 address", host)
		}
		return nil
	}
	for _, label := range strings.Split(strings.TrimSuffix(host, "."), ".") {
		if label == "" || len(label) > 63 {
			return invalid("host %q has an empty or oversized label", host)
		}
		for _, r := range label {
			if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				return invalid("host %q contains %q", host, r)
			}
		}
	}
	if _, err := dns.NewName(host); err != nil {
		return invalid("host %q: %v", host, err)
	}
	return nil
}

// Target returns the probe target described by the configuration.
func (c *Config) Target() domain.Target {
	return domain.Target{
		Host:      c.Host,
		Port:      uint16(c.Port),
		Path:      c.Path,
		UserAgent: c.UserAgent,
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
