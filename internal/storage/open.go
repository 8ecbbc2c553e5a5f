package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// OpenConfig selects between the primary SQL store and the embedded store
type OpenConfig struct {
	// DatabaseURL names the primary store. Empty means embedded only.
	DatabaseURL string
	// BoltPath is the embedded store file used as fallback.
	BoltPath string
	Options
}

// Open picks the backend once. A configured primary store that cannot be
// opened is logged and replaced by the embedded store.
func Open(ctx context.Context, cfg OpenConfig) (Store, error) {
	opts := cfg.Options.withDefaults()
	logger := opts.Logger

	if cfg.DatabaseURL != "" {
		store, err := NewSQLStorage(ctx, SQLConfig{URL: cfg.DatabaseURL, Options: opts})
		if err == nil {
			logger.Info("Using primary database",
				zap.String("backend", store.Backend()),
				zap.String("url", RedactURL(cfg.DatabaseURL)))
			return store, nil
		}
		logger.Warn("Primary database unavailable, falling back to embedded store",
			zap.String("url", RedactURL(cfg.DatabaseURL)),
			zap.Error(err))
	}

	if cfg.BoltPath == "" {
		return nil, fmt.Errorf("no embedded database path configured")
	}
	store, err := NewBoltStorage(BoltConfig{DBPath: cfg.BoltPath, Options: opts})
	if err != nil {
		return nil, err
	}
	logger.Info("Using embedded database",
		zap.String("backend", store.Backend()),
		zap.String("db_path", cfg.BoltPath))
	return store, nil
}
