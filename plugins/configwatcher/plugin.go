// Package configwatcher reloads the probe target when the configuration
// file changes.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/bringup/internal/cliconfig"
	"github.com/bft-labs/bringup/internal/ports"
	"github.com/bft-labs/bringup/pkg/bringup"
)

// Plugin watches the agent's configuration file and swaps the probe target
// of the running agent when host, port, path or user agent change.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration

	path      string
	overrides map[string]bool
	agent     bringup.TargetUpdater
	logger    bringup.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	debounce  *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{debounceDelay: cfg.DebounceDelay}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching cfg.ConfigPath. The plugin stays idle when the
// agent has no configuration file or no probe.
func (p *Plugin) Initialize(ctx context.Context, cfg bringup.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.overrides = cfg.Overrides
	p.agent = cfg.Agent
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" || p.agent == nil {
		p.logger.Info("config watcher disabled: no config file")
		return nil
	}
	if _, ok := p.agent.Target(); !ok {
		p.logger.Info("config watcher disabled: probe not running")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files on save; watch the directory and filter by name.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the file over the running target. Keys missing from the
// file and settings fixed on the command line keep their running values.
func (p *Plugin) reload() {
	current, ok := p.agent.Target()
	if !ok {
		return
	}

	cfg := cliconfig.DefaultConfig()
	cfg.Probe = true
	cfg.Host = current.Host
	cfg.Port = int(current.Port)
	cfg.Path = current.Path
	cfg.UserAgent = current.UserAgent

	if err := cliconfig.Load(&cfg, p.path, p.overrides); err != nil {
		p.logger.Warn("config reload failed, keeping current target", ports.Err(err))
		return
	}
	if err := cfg.ValidateProbe(); err != nil {
		p.logger.Warn("reloaded config invalid, keeping current target", ports.Err(err))
		return
	}

	next := cfg.Target()
	if next == current {
		p.logger.Debug("config reloaded, target unchanged")
		return
	}
	if err := p.agent.UpdateTarget(next); err != nil {
		p.logger.Warn("target update rejected", ports.Err(err))
	}
}

// Ensure Plugin implements bringup.Plugin.
var _ bringup.Plugin = (*Plugin)(nil)
