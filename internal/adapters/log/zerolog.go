package log

import (
	"fmt"
	"io"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/bringup/internal/ports"
)

// Format selects how log lines are rendered.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ZerologAdapter implements ports.Logger using zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates an adapter writing to w at the given level.
// Console output is human-readable with RFC3339 timestamps; JSON output is
// one object per line.
func NewZerologAdapter(w io.Writer, level string, format Format) (*ZerologAdapter, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	format, err = ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &ZerologAdapter{logger: logger}, nil
}

// NewZerologAdapterWithLogger creates an adapter wrapping an existing zerolog.Logger.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// ParseFormat maps a format name to a Format. An empty name means console.
func ParseFormat(format string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(format))); f {
	case "":
		return FormatConsole, nil
	case FormatConsole, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format %q", format)
	}
}

// ParseLevel maps a level name to a zerolog level. An empty name means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

// With returns a child adapter that adds fields to every message.
func (z *ZerologAdapter) With(fields ...ports.Field) *ZerologAdapter {
	ctx := z.logger.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZerologAdapter{logger: ctx.Logger()}
}

func (z *ZerologAdapter) Debug(msg string, fields ...ports.Field) {
	write(z.logger.Debug(), msg, fields)
}

func (z *ZerologAdapter) Info(msg string, fields ...ports.Field) {
	write(z.logger.Info(), msg, fields)
}

func (z *ZerologAdapter) Warn(msg string, fields ...ports.Field) {
	write(z.logger.Warn(), msg, fields)
}

func (z *ZerologAdapter) Error(msg string, fields ...ports.Field) {
	write(z.logger.Error(), msg, fields)
}

// Logger returns the underlying zerolog.Logger.
func (z *ZerologAdapter) Logger() zerolog.Logger {
	return z.logger
}

func write(event *zerolog.Event, msg string, fields []ports.Field) {
	// Disabled levels return a nil event.
	if event == nil {
		return
	}
	for _, f := range fields {
		event = addField(event, f)
	}
	event.Msg(msg)
}

// addField adds a Field to a zerolog.Event.
func addField(event *zerolog.Event, f ports.Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case uint64:
		return event.Uint64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case netip.Addr:
		return event.Stringer(f.Key, v)
	case netip.AddrPort:
		return event.Stringer(f.Key, v)
	case error:
		if f.Key == "error" {
			return event.Err(v)
		}
		return event.AnErr(f.Key, v)
	default:
		return event.Interface(f.Key, v)
	}
}
