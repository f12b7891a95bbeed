// Package storage defines the column family manager, the storage-facing
// collaborator that persists column entities, and opens the configured
// implementation.
package storage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/codec"
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/config"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/storage/memory"
	"github.com/ajitpratap0/colmap/pkg/storage/mongodb"
	"github.com/ajitpratap0/colmap/pkg/storage/redis"
)

// Manager persists column entities grouped by entity name. Entries are
// addressed by the value of a key column.
type Manager interface {
	// Insert stores e under the value of its key column, replacing any
	// previous entry. An entity without the key column is a validation
	// error.
	Insert(ctx context.Context, e *column.Entity, key string) error
	// Update replaces an existing entry or fails with a not_found error.
	Update(ctx context.Context, e *column.Entity, key string) error
	// Find returns the entry of name stored under key.
	Find(ctx context.Context, name string, key column.Column) (*column.Entity, bool, error)
	// FindAll returns every entry of name.
	FindAll(ctx context.Context, name string) ([]*column.Entity, error)
	// Delete removes the entry of name stored under key.
	Delete(ctx context.Context, name string, key column.Column) error
	// Close releases the backend.
	Close(ctx context.Context) error
}

var (
	_ Manager = (*memory.Manager)(nil)
	_ Manager = (*mongodb.Manager)(nil)
	_ Manager = (*redis.Manager)(nil)
)

// Open creates the manager selected by cfg.Driver. Frame-based backends
// encode with c; a nil codec stores uncompressed frames.
func Open(ctx context.Context, cfg config.StorageConfig, c *codec.Codec, logger *zap.Logger) (Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	switch strings.ToLower(cfg.Driver) {
	case "", config.DriverMemory:
		return opened(memory.New(c, logger))
	case config.DriverMongoDB:
		return opened(mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.URI,
			Database: cfg.Database,
			Timeout:  cfg.Timeout,
		}, logger))
	case config.DriverRedis:
		return opened(redis.Connect(ctx, redis.Config{
			URL:       cfg.URI,
			KeyPrefix: cfg.KeyPrefix,
			Timeout:   cfg.Timeout,
		}, c, logger))
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown storage driver %q", cfg.Driver).
			WithDetail("driver", cfg.Driver)
	}
}

// opened keeps a failed constructor from returning a non-nil interface
// holding a nil pointer.
func opened(m Manager, err error) (Manager, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}
