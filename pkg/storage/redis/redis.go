// Package redis is a column family manager backed by Redis. Entities are
// stored as codec frames under "prefix:name:key". Entity names must not
// contain ':' so that a family never matches the keys of another.
package redis

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/codec"
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/metrics"
	"github.com/ajitpratap0/colmap/pkg/storage/internal/keys"
)

// Driver is the metrics and configuration name of this manager.
const Driver = "redis"

const scanCount = 256

// Config holds connection settings.
type Config struct {
	URL       string
	KeyPrefix string
	Timeout   time.Duration
}

// Manager stores column entities in Redis.
type Manager struct {
	client *redis.Client
	codec  *codec.Codec
	prefix string
	logger *zap.Logger
}

// Connect parses cfg.URL, opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, c *codec.Codec, logger *zap.Logger) (*Manager, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "parse redis URL")
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "redis ping failed")
	}
	m, err := New(client, c, cfg.KeyPrefix, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	m.logger.Info("connected to redis", zap.String("addr", opts.Addr))
	return m, nil
}

// New wraps an existing client. A nil codec stores uncompressed frames.
func New(client *redis.Client, c *codec.Codec, prefix string, logger *zap.Logger) (*Manager, error) {
	if client == nil {
		return nil, errors.NullArgument("client")
	}
	if c == nil {
		var err error
		if c, err = codec.New(nil); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client: client,
		codec:  c,
		prefix: prefix,
		logger: logger.With(zap.String("driver", Driver)),
	}, nil
}

// Key returns the Redis key of an entry.
func (m *Manager) Key(name, key string) string {
	if m.prefix == "" {
		return name + ":" + key
	}
	return m.prefix + ":" + name + ":" + key
}

// Insert stores e, replacing any previous entry.
func (m *Manager) Insert(ctx context.Context, e *column.Entity, key string) (err error) {
	defer func() { metrics.RecordStorage(Driver, "insert", err) }()
	k, frame, err := m.encode(e, key)
	if err != nil {
		return err
	}
	return m.failed(m.client.Set(ctx, k, frame, 0).Err(), "insert", e.Name())
}

// Update replaces an existing entry; a missing entry is a not_found error.
func (m *Manager) Update(ctx context.Context, e *column.Entity, key string) (err error) {
	defer func() { metrics.RecordStorage(Driver, "update", err) }()
	k, frame, err := m.encode(e, key)
	if err != nil {
		return err
	}
	ok, err := m.client.SetXX(ctx, k, frame, redis.KeepTTL).Result()
	if err != nil {
		return m.failed(err, "update", e.Name())
	}
	if !ok {
		return errors.Newf(errors.ErrorTypeNotFound, "%s not found", k).
			WithDetail("entity", e.Name()).
			WithDetail("key", k)
	}
	return nil
}

func (m *Manager) encode(e *column.Entity, key string) (string, []byte, error) {
	if e != nil {
		if err := checkName(e.Name()); err != nil {
			return "", nil, err
		}
	}
	kc, err := keys.Lookup(e, key)
	if err != nil {
		return "", nil, err
	}
	ks, err := keys.String(kc)
	if err != nil {
		return "", nil, err
	}
	frame, err := m.codec.Encode(e)
	if err != nil {
		return "", nil, err
	}
	return m.Key(e.Name(), ks), frame, nil
}

// Find returns the entry of name stored under key.
func (m *Manager) Find(ctx context.Context, name string, key column.Column) (e *column.Entity, found bool, err error) {
	defer func() { metrics.RecordStorage(Driver, "find", err) }()
	if err := checkName(name); err != nil {
		return nil, false, err
	}
	ks, err := keys.String(key)
	if err != nil {
		return nil, false, err
	}
	frame, err := m.client.Get(ctx, m.Key(name, ks)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, m.failed(err, "find", name)
	}
	e, err = m.codec.Decode(frame)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// FindAll scans the keys of name and returns their entries ordered by key.
func (m *Manager) FindAll(ctx context.Context, name string) (out []*column.Entity, err error) {
	defer func() { metrics.RecordStorage(Driver, "find_all", err) }()
	if err := checkName(name); err != nil {
		return nil, err
	}
	pattern := m.pattern(name)

	seen := make(map[string]struct{})
	var found []string
	iter := m.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		found = append(found, k)
	}
	if err := iter.Err(); err != nil {
		return nil, m.failed(err, "find_all", name)
	}
	sort.Strings(found)

	out = make([]*column.Entity, 0, len(found))
	for start := 0; start < len(found); start += scanCount {
		end := min(start+scanCount, len(found))
		values, err := m.client.MGet(ctx, found[start:end]...).Result()
		if err != nil {
			return nil, m.failed(err, "find_all", name)
		}
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				// deleted between SCAN and MGET
				continue
			}
			e, err := m.codec.Decode([]byte(s))
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// Delete removes the entry stored under key.
func (m *Manager) Delete(ctx context.Context, name string, key column.Column) (err error) {
	defer func() { metrics.RecordStorage(Driver, "delete", err) }()
	if err := checkName(name); err != nil {
		return err
	}
	ks, err := keys.String(key)
	if err != nil {
		return err
	}
	return m.failed(m.client.Del(ctx, m.Key(name, ks)).Err(), "delete", name)
}

// Close closes the client.
func (m *Manager) Close(context.Context) error {
	if err := m.client.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to close redis client")
	}
	return nil
}

func (m *Manager) failed(err error, operation, name string) error {
	if err == nil {
		return nil
	}
	m.logger.Error("redis operation failed",
		zap.String("operation", operation),
		zap.String("entity", name),
		zap.Error(err))
	return errors.Wrap(err, errors.ErrorTypeStorage, "redis "+operation+" failed").
		WithDetail("entity", name)
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// pattern is the SCAN MATCH pattern of every key of the family name.
func (m *Manager) pattern(name string) string {
	if m.prefix == "" {
		return escape(name) + ":*"
	}
	return escape(m.prefix) + ":" + escape(name) + ":*"
}

func checkName(name string) error {
	if name == "" {
		return errors.NullArgument("entity name")
	}
	if strings.Contains(name, ":") {
		return errors.Newf(errors.ErrorTypeValidation, "entity name %q must not contain ':'", name).
			WithDetail("entity", name)
	}
	return nil
}

// escape quotes glob metacharacters of a MATCH pattern.
func escape(s string) string {
	return globReplacer.Replace(s)
}
