package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
[probe]
iface = "wlan0"
host = "probe.example"
port = 8080
path = "/ping"
user_agent = "bench/2"
idle_delay = "3s"
connect_delay = "8s"
receive_timeout = "2s"
recv_buffer = 128
status_dir = "/var/lib/bringup"

[echo]
device = "/dev/ttyAMA0"
baud = 57600
read_timeout = "100ms"
buffer_size = 256
rs485 = false
rs485_delay_before = "1ms"

[log]
level = "debug"
format = "json"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	fc, err := LoadFileConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Probe.Host != "probe.example" || fc.Probe.Port != 8080 || fc.Probe.IdleDelay != "3s" {
		t.Errorf("probe = %+v", fc.Probe)
	}
	if fc.Echo.RS485 == nil || *fc.Echo.RS485 {
		t.Errorf("echo.rs485 = %v, want false", fc.Echo.RS485)
	}
	if fc.Log.Format != "json" {
		t.Errorf("log.format = %q", fc.Log.Format)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFileConfig() of missing file returned nil error")
	}
	if _, err := LoadFileConfig(writeConfig(t, "[probe\nhost=")); err == nil {
		t.Error("LoadFileConfig() of invalid TOML returned nil error")
	}
}

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		check      func(t *testing.T, c Config)
		wantErr    bool
	}{
		{
			name: "applies values",
			fileConfig: FileConfig{
				Probe: ProbeFileConfig{Host: "file.example", Port: 81, SendDelay: "6s"},
				Echo:  EchoFileConfig{Device: "/dev/ttyS2", RS485AfterSend: &trueVal},
			},
			check: func(t *testing.T, c Config) {
				if c.Host != "file.example" || c.Port != 81 || c.SendDelay != 6*time.Second {
					t.Errorf("probe = %s:%d %v", c.Host, c.Port, c.SendDelay)
				}
				if c.SerialDevice != "/dev/ttyS2" || !c.RS485AfterSend {
					t.Errorf("echo = %s %v", c.SerialDevice, c.RS485AfterSend)
				}
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{Probe: ProbeFileConfig{Host: "file.example", Path: "/file"}},
			changed:    map[string]bool{"host": true},
			check: func(t *testing.T, c Config) {
				if c.Host != DefaultHost {
					t.Errorf("Host = %s, want flag value kept", c.Host)
				}
				if c.Path != "/file" {
					t.Errorf("Path = %s, want /file", c.Path)
				}
			},
		},
		{
			name:       "keeps defaults for empty values",
			fileConfig: FileConfig{},
			check: func(t *testing.T, c Config) {
				if c != DefaultConfig() {
					t.Errorf("config changed by an empty file: %+v", c)
				}
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{Probe: ProbeFileConfig{LeasePoll: "often"}},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("BRINGUP_PORT", "9090")
	t.Setenv("BRINGUP_PATH", "/env")

	cfg := DefaultConfig()
	cfg.Path = "/flag"
	changed := map[string]bool{"path": true}

	if err := Load(&cfg, path, changed); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// file < env < flags
	if cfg.Host != "probe.example" {
		t.Errorf("Host = %s, want file value", cfg.Host)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want env value", cfg.Port)
	}
	if cfg.Path != "/flag" {
		t.Errorf("Path = %s, want flag value", cfg.Path)
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("BRINGUP_HOST", "env.example")

	cfg := DefaultConfig()
	if err := Load(&cfg, filepath.Join(t.TempDir(), "none.toml"), nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "env.example" {
		t.Errorf("Host = %s", cfg.Host)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "not = [toml")

	cfg := DefaultConfig()
	err := Load(&cfg, path, nil)
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("Load() error = %v, want load config error", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	if got := DefaultConfigPath(); got != filepath.Join("/home/tester", ".bringup", "config.toml") {
		t.Errorf("DefaultConfigPath() = %s", got)
	}
}

func TestFileExists(t *testing.T) {
	path := writeConfig(t, "")
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(path + ".missing") {
		t.Error("FileExists() = true for missing file")
	}
}
