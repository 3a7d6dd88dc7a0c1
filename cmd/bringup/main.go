package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	root "github.com/bft-labs/bringup"
	logAdapter "github.com/bft-labs/bringup/internal/adapters/log"
	"github.com/bft-labs/bringup/internal/cliconfig"
	"github.com/bft-labs/bringup/pkg/bringup"
	"github.com/bft-labs/bringup/plugins/configwatcher"
	"github.com/bft-labs/bringup/plugins/linkstats"
)

const longHelp = `Board bring-up checks for the network port and the RS-485 line.

  probe  waits for an IPv4 lease, then repeatedly fetches a fixed HTTP/1.0
         page over a fresh TCP connection and copies the response to stdout.
  echo   echoes every chunk received on the serial line back, framed as
         "RS485 Received: [...]", and writes "." on every idle read.
  run    runs both.

Settings come from flags, BRINGUP_* environment variables and the TOML
config file, in that order of precedence.`

var exampleUsage = strings.TrimSpace(`
  bringup probe --iface eth0 --host example.com
  bringup echo --device /dev/ttyS1 --baud 115200
  bringup run --config /etc/bringup/config.toml --log-format json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "bringup",
		Short:         "Network probe and RS-485 echo for board bring-up",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.bringup/config.toml)")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")

	probe := &cobra.Command{
		Use:   "probe",
		Short: "Fetch a fixed HTTP page in a loop once the interface has a lease",
		RunE: func(c *cobra.Command, args []string) error {
			cfg.Probe = true
			return run(c, &cfg, cfgPath)
		},
	}
	addProbeFlags(probe.Flags(), &cfg)

	echo := &cobra.Command{
		Use:   "echo",
		Short: "Echo the RS-485 line back to itself",
		RunE: func(c *cobra.Command, args []string) error {
			cfg.Echo = true
			return run(c, &cfg, cfgPath)
		},
	}
	addEchoFlags(echo.Flags(), &cfg)

	both := &cobra.Command{
		Use:   "run",
		Short: "Run the probe and the echo together",
		RunE: func(c *cobra.Command, args []string) error {
			cfg.Probe, cfg.Echo = true, true
			return run(c, &cfg, cfgPath)
		},
	}
	addProbeFlags(both.Flags(), &cfg)
	addEchoFlags(both.Flags(), &cfg)

	cmd.AddCommand(probe, echo, both)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bringup: %v\n", err)
		os.Exit(1)
	}
}

func addProbeFlags(fs *pflag.FlagSet, cfg *cliconfig.Config) {
	fs.StringVar(&cfg.Iface, "iface", cfg.Iface, "network interface whose lease gates the probe")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "host to fetch from (DNS name or IPv4 address)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "TCP port")
	fs.StringVar(&cfg.Path, "path", cfg.Path, "request path")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header (empty to omit)")
	fs.DurationVar(&cfg.LeasePoll, "lease-poll", cfg.LeasePoll, "how often the interface is inspected")
	fs.DurationVar(&cfg.IdleDelay, "idle-delay", cfg.IdleDelay, "pause without a lease and after a completed exchange")
	fs.DurationVar(&cfg.ResolveDelay, "resolve-delay", cfg.ResolveDelay, "pause after a failed DNS lookup")
	fs.DurationVar(&cfg.SocketDelay, "socket-delay", cfg.SocketDelay, "pause after a failed socket allocation")
	fs.DurationVar(&cfg.ConnectDelay, "connect-delay", cfg.ConnectDelay, "pause after a failed connect")
	fs.DurationVar(&cfg.SendDelay, "send-delay", cfg.SendDelay, "pause after a failed send")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "connect timeout (0 leaves it to the OS)")
	fs.DurationVar(&cfg.ReceiveTimeout, "receive-timeout", cfg.ReceiveTimeout, "timeout of every response read")
	fs.IntVar(&cfg.RecvBufferSize, "recv-buffer", cfg.RecvBufferSize, "receive buffer size in bytes")
	fs.StringVar(&cfg.StatusDir, "status-dir", cfg.StatusDir, "directory for probe-status.json (disabled when empty)")
}

func addEchoFlags(fs *pflag.FlagSet, cfg *cliconfig.Config) {
	fs.StringVar(&cfg.SerialDevice, "device", cfg.SerialDevice, "serial device")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "baud rate")
	fs.DurationVar(&cfg.SerialReadTimeout, "serial-timeout", cfg.SerialReadTimeout, "serial read timeout")
	fs.IntVar(&cfg.EchoBufferSize, "echo-buffer", cfg.EchoBufferSize, "maximum bytes echoed per read")
	fs.BoolVar(&cfg.RS485, "rs485", cfg.RS485, "enable RS-485 mode with RTS asserted while sending")
	fs.BoolVar(&cfg.RS485AfterSend, "rs485-rts-after-send", cfg.RS485AfterSend, "keep RTS asserted after sending")
	fs.DurationVar(&cfg.RS485DelayBefore, "rs485-delay-before", cfg.RS485DelayBefore, "RTS delay before sending")
	fs.DurationVar(&cfg.RS485DelayAfter, "rs485-delay-after", cfg.RS485DelayAfter, "RTS delay after sending")
}

func run(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Flags win over the environment, which wins over the file.
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if err := cliconfig.Load(cfg, cfgFile, changed); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logAdapter.NewZerologAdapter(os.Stderr, cfg.LogLevel, logAdapter.Format(cfg.LogFormat))
	if err != nil {
		return err
	}
	log := logger.Logger()
	logConfig(log, cfg)

	opts := []bringup.Option{bringup.WithLogger(logger)}
	if cfg.Probe {
		opts = append(opts, linkstats.WithDefaultLinkStats())
	}
	if cfg.Probe && cliconfig.FileExists(cfgFile) {
		opts = append(opts,
			bringup.WithConfigSource(cfgFile, changed),
			configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = root.Run(ctx, *cfg, opts...)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("bringup stopped")
		return err
	}
	log.Info().Msg("bringup stopped")
	return nil
}

func logConfig(log zerolog.Logger, cfg *cliconfig.Config) {
	ev := log.Info().Bool("probe", cfg.Probe).Bool("echo", cfg.Echo)
	if cfg.Probe {
		ev = ev.Str("iface", cfg.Iface).Str("target", requestURL(cfg))
	}
	if cfg.Echo {
		ev = ev.Str("device", cfg.SerialDevice).Int("baud", cfg.Baud).Bool("rs485", cfg.RS485)
	}
	ev.Msg("configuration")
}

func requestURL(cfg *cliconfig.Config) string {
	host := cfg.Host
	if cfg.Port != 80 {
		host = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	return "http://" + host + cfg.Path
}
