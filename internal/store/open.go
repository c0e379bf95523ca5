package store

import (
	"context"
	"fmt"

	"relay/internal/config"
	"relay/pkg/logging"
)

// Open returns the Store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig, storage *config.Storage) (Store, error) {
	switch cfg.Driver {
	case "", config.StoreDriverYAML:
		return NewYAMLStore(storage), nil
	case config.StoreDriverPostgres:
		s, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		logging.Info("Store", "Using postgres store")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
