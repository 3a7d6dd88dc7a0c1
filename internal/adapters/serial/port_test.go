package serial

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/bringup/internal/domain"
)

func TestRS485Options_Flags(t *testing.T) {
	tests := []struct {
		name string
		opts RS485Options
		want uint32
	}{
		{"disabled", RS485Options{}, 0},
		{"default", DefaultRS485Options(), 0b011},
		{"rts after send", RS485Options{Enabled: true, RTSAfterSend: true}, 0b101},
		{"rx during tx", RS485Options{Enabled: true, RTSOnSend: true, RxDuringTx: true}, 0b10011},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.flags(); got != tt.want {
				t.Errorf("flags() = %#b, want %#b", got, tt.want)
			}
		})
	}
}

func TestOpen_RequiresDevice(t *testing.T) {
	_, err := Open(Config{})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("Open() error = %v, want ErrInvalidConfig", err)
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "ttyNONE")

	_, err := Open(Config{Device: dev, Baud: DefaultBaud, ReadTimeout: 20 * time.Millisecond})
	if err == nil {
		t.Fatal("Open() of a missing device returned nil error")
	}
}
