// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/Tiliavir/rally-results/internal/config"
	"github.com/Tiliavir/rally-results/internal/logging"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/storage/filestore"
	"github.com/Tiliavir/rally-results/internal/storage/kvstore"
	"github.com/Tiliavir/rally-results/internal/storage/sqlstore"
)

// Open returns the store for cfg.Driver. logger receives badger's internal
// messages; sqlite and file stores do not log.
func Open(cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlstore.Open(cfg.Path)
	case config.DriverBadger:
		opts := kvstore.Options{Path: cfg.Path}
		if logger != nil {
			opts.Logger = logging.Badger(logger)
		}
		return kvstore.Open(opts)
	case config.DriverFile:
		return filestore.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
