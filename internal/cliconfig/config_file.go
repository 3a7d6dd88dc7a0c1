package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Probe ProbeFileConfig `toml:"probe"`
	Echo  EchoFileConfig  `toml:"echo"`
	Log   LogFileConfig   `toml:"log"`
}

// ProbeFileConfig is the [probe] table.
type ProbeFileConfig struct {
	Iface          string `toml:"iface"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Path           string `toml:"path"`
	UserAgent      string `toml:"user_agent"`
	LeasePoll      string `toml:"lease_poll"`
	IdleDelay      string `toml:"idle_delay"`
	ResolveDelay   string `toml:"resolve_delay"`
	SocketDelay    string `toml:"socket_delay"`
	ConnectDelay   string `toml:"connect_delay"`
	SendDelay      string `toml:"send_delay"`
	ConnectTimeout string `toml:"connect_timeout"`
	ReceiveTimeout string `toml:"receive_timeout"`
	RecvBufferSize int    `toml:"recv_buffer"`
	StatusDir      string `toml:"status_dir"`
}

// EchoFileConfig is the [echo] table.
type EchoFileConfig struct {
	Device           string `toml:"device"`
	Baud             int    `toml:"baud"`
	ReadTimeout      string `toml:"read_timeout"`
	BufferSize       int    `toml:"buffer_size"`
	RS485            *bool  `toml:"rs485"`
	RS485AfterSend   *bool  `toml:"rs485_rts_after_send"`
	RS485DelayBefore string `toml:"rs485_delay_before"`
	RS485DelayAfter  string `toml:"rs485_delay_after"`
}

// LogFileConfig is the [log] table.
type LogFileConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.bringup/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".bringup", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	p := fc.Probe
	s.setString("iface", p.Iface, &cfg.Iface)
	s.setString("host", p.Host, &cfg.Host)
	s.setInt("port", p.Port, &cfg.Port)
	s.setString("path", p.Path, &cfg.Path)
	s.setString("user-agent", p.UserAgent, &cfg.UserAgent)
	s.setInt("recv-buffer", p.RecvBufferSize, &cfg.RecvBufferSize)
	s.setString("status-dir", p.StatusDir, &cfg.StatusDir)

	for _, d := range []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"lease-poll", p.LeasePoll, &cfg.LeasePoll},
		{"idle-delay", p.IdleDelay, &cfg.IdleDelay},
		{"resolve-delay", p.ResolveDelay, &cfg.ResolveDelay},
		{"socket-delay", p.SocketDelay, &cfg.SocketDelay},
		{"connect-delay", p.ConnectDelay, &cfg.ConnectDelay},
		{"send-delay", p.SendDelay, &cfg.SendDelay},
		{"connect-timeout", p.ConnectTimeout, &cfg.ConnectTimeout},
		{"receive-timeout", p.ReceiveTimeout, &cfg.ReceiveTimeout},
		{"serial-timeout", fc.Echo.ReadTimeout, &cfg.SerialReadTimeout},
		{"rs485-delay-before", fc.Echo.RS485DelayBefore, &cfg.RS485DelayBefore},
		{"rs485-delay-after", fc.Echo.RS485DelayAfter, &cfg.RS485DelayAfter},
	} {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	e := fc.Echo
	s.setString("device", e.Device, &cfg.SerialDevice)
	s.setInt("baud", e.Baud, &cfg.Baud)
	s.setInt("echo-buffer", e.BufferSize, &cfg.EchoBufferSize)
	s.setBool("rs485", e.RS485, &cfg.RS485)
	s.setBool("rs485-rts-after-send", e.RS485AfterSend, &cfg.RS485AfterSend)

	s.setString("log-level", fc.Log.Level, &cfg.LogLevel)
	s.setString("log-format", fc.Log.Format, &cfg.LogFormat)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Load layers the config file at path, when it exists, and then the
// BRINGUP_* environment over cfg. Flags named in changed keep their values.
func Load(cfg *Config, path string, changed map[string]bool) error {
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	return ApplyEnvConfig(cfg, changed)
}
