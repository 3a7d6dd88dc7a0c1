package configwatcher

import "github.com/bft-labs/bringup/pkg/bringup"

// WithConfigWatcher returns a bringup Option that enables config file
// watching. The agent must also be given its file with
// bringup.WithConfigSource.
//
// Usage:
//
//	a, err := bringup.New(cfg,
//	    bringup.WithConfigSource(path, changed),
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
func WithConfigWatcher(cfg Config) bringup.Option {
	return bringup.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher enables config watching with a 100ms debounce.
func WithDefaultConfigWatcher() bringup.Option {
	return WithConfigWatcher(DefaultConfig())
}
