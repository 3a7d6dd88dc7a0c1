// Package linkstats periodically logs the traffic counters of the probed
// interface.
package linkstats

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/bft-labs/bringup/internal/ports"
	"github.com/bft-labs/bringup/pkg/bringup"
)

const netDevPath = "/proc/net/dev"

// Plugin samples interface counters at a fixed interval and logs the
// difference to the previous sample.
type Plugin struct {
	mu sync.RWMutex

	interval time.Duration
	read     func(iface string) (Counters, error)

	iface   string
	logger  bringup.Logger
	last    Counters
	sampled bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config holds configuration options for the link statistics plugin.
type Config struct {
	// Interval between samples.
	// Default: 10 seconds
	Interval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Interval: 10 * time.Second}
}

// New creates a new link statistics plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Plugin{
		interval: cfg.Interval,
		read:     readNetDev,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "linkstats"
}

// Initialize takes a first sample and starts the sampling loop. The plugin
// stays idle when the probe is disabled or the counters are unavailable.
func (p *Plugin) Initialize(ctx context.Context, cfg bringup.PluginConfig) error {
	p.mu.Lock()
	p.iface = cfg.Iface
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.iface == "" {
		p.logger.Info("link stats disabled: no interface")
		return nil
	}
	if err := p.Sample(); err != nil {
		p.logger.Warn("link stats disabled", ports.String("iface", p.iface), ports.Err(err))
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(loopCtx)
	return nil
}

// Shutdown stops the sampling loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Sample(); err != nil {
				p.logger.Debug("link stats sample failed", ports.String("iface", p.iface), ports.Err(err))
			}
		}
	}
}

// Sample reads the counters once and logs the change since the previous
// sample. The first sample logs totals.
func (p *Plugin) Sample() error {
	c, err := p.read(p.iface)
	if err != nil {
		return err
	}

	p.mu.Lock()
	prev, sampled := p.last, p.sampled
	p.last, p.sampled = c, true
	p.mu.Unlock()

	d := c
	if sampled {
		d = c.Sub(prev)
	}
	fields := []bringup.LogField{
		ports.String("iface", p.iface),
		ports.Uint64("rx_bytes", d.RxBytes),
		ports.Uint64("rx_packets", d.RxPackets),
		ports.Uint64("tx_bytes", d.TxBytes),
		ports.Uint64("tx_packets", d.TxPackets),
	}
	if d.RxErrors+d.RxDropped+d.TxErrors+d.TxDropped > 0 {
		fields = append(fields,
			ports.Uint64("rx_errors", d.RxErrors),
			ports.Uint64("rx_dropped", d.RxDropped),
			ports.Uint64("tx_errors", d.TxErrors),
			ports.Uint64("tx_dropped", d.TxDropped),
		)
		p.logger.Warn("link stats", fields...)
		return nil
	}
	p.logger.Info("link stats", fields...)
	return nil
}

// Last returns the most recent sample.
func (p *Plugin) Last() (Counters, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.sampled
}

func readNetDev(iface string) (Counters, error) {
	f, err := os.Open(netDevPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Counters{}, errUnsupported
		}
		return Counters{}, err
	}
	defer f.Close()
	return parseNetDev(f, iface)
}

// Ensure Plugin implements bringup.Plugin.
var _ bringup.Plugin = (*Plugin)(nil)
