package linkstats

import "github.com/bft-labs/bringup/pkg/bringup"

// WithLinkStats returns a bringup Option that logs the probed interface's
// counters every cfg.Interval.
//
// Usage:
//
//	a, err := bringup.New(cfg,
//	    linkstats.WithLinkStats(linkstats.Config{Interval: 30 * time.Second}),
//	)
func WithLinkStats(cfg Config) bringup.Option {
	return bringup.WithPlugin(New(cfg))
}

// WithDefaultLinkStats logs the counters every 10 seconds.
func WithDefaultLinkStats() bringup.Option {
	return WithLinkStats(DefaultConfig())
}
