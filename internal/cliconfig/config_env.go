package cliconfig

import (
	"os"
	"time"
)

// ApplyEnvConfig applies configuration from environment variables (BRINGUP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("iface", os.Getenv("BRINGUP_IFACE"), &cfg.Iface)
	s.setString("host", os.Getenv("BRINGUP_HOST"), &cfg.Host)
	s.setString("path", os.Getenv("BRINGUP_PATH"), &cfg.Path)
	s.setString("user-agent", os.Getenv("BRINGUP_USER_AGENT"), &cfg.UserAgent)
	s.setString("status-dir", os.Getenv("BRINGUP_STATUS_DIR"), &cfg.StatusDir)
	s.setString("device", os.Getenv("BRINGUP_DEVICE"), &cfg.SerialDevice)
	s.setString("log-level", os.Getenv("BRINGUP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("BRINGUP_LOG_FORMAT"), &cfg.LogFormat)

	ints := []struct {
		flag, env string
		dst       *int
	}{
		{"port", "BRINGUP_PORT", &cfg.Port},
		{"recv-buffer", "BRINGUP_RECV_BUFFER", &cfg.RecvBufferSize},
		{"baud", "BRINGUP_BAUD", &cfg.Baud},
		{"echo-buffer", "BRINGUP_ECHO_BUFFER", &cfg.EchoBufferSize},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, os.Getenv(i.env), i.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		flag, env string
		dst       *time.Duration
	}{
		{"lease-poll", "BRINGUP_LEASE_POLL", &cfg.LeasePoll},
		{"idle-delay", "BRINGUP_IDLE_DELAY", &cfg.IdleDelay},
		{"resolve-delay", "BRINGUP_RESOLVE_DELAY", &cfg.ResolveDelay},
		{"socket-delay", "BRINGUP_SOCKET_DELAY", &cfg.SocketDelay},
		{"connect-delay", "BRINGUP_CONNECT_DELAY", &cfg.ConnectDelay},
		{"send-delay", "BRINGUP_SEND_DELAY", &cfg.SendDelay},
		{"connect-timeout", "BRINGUP_CONNECT_TIMEOUT", &cfg.ConnectTimeout},
		{"receive-timeout", "BRINGUP_RECEIVE_TIMEOUT", &cfg.ReceiveTimeout},
		{"serial-timeout", "BRINGUP_SERIAL_TIMEOUT", &cfg.SerialReadTimeout},
		{"rs485-delay-before", "BRINGUP_RS485_DELAY_BEFORE", &cfg.RS485DelayBefore},
		{"rs485-delay-after", "BRINGUP_RS485_DELAY_AFTER", &cfg.RS485DelayAfter},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, os.Getenv(d.env), d.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("rs485", os.Getenv("BRINGUP_RS485"), &cfg.RS485)
	s.setBoolFromString("rs485-rts-after-send", os.Getenv("BRINGUP_RS485_RTS_AFTER_SEND"), &cfg.RS485AfterSend)

	return nil
}
