// Package memory is an in-process column family manager. Entities are kept as
// encoded frames, so callers never share state with the store.
package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/codec"
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/metrics"
	"github.com/ajitpratap0/colmap/pkg/storage/internal/keys"
)

// Driver is the metrics and configuration name of this manager.
const Driver = "memory"

type family struct {
	order []string
	rows  map[string][]byte
}

// Manager stores column entities in memory, one family per entity name.
type Manager struct {
	mu       sync.RWMutex
	codec    *codec.Codec
	families map[string]*family
	closed   bool
	logger   *zap.Logger
}

// New creates an empty manager. A nil codec stores uncompressed frames.
func New(c *codec.Codec, logger *zap.Logger) (*Manager, error) {
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
		codec:    c,
		families: make(map[string]*family),
		logger:   logger.With(zap.String("driver", Driver)),
	}, nil
}

// Insert stores e under its key column, replacing any previous entry.
func (m *Manager) Insert(ctx context.Context, e *column.Entity, key string) (err error) {
	defer func() { metrics.RecordStorage(Driver, "insert", err) }()
	return m.put(ctx, e, key, false)
}

// Update replaces an existing entry; a missing entry is a not_found error.
func (m *Manager) Update(ctx context.Context, e *column.Entity, key string) (err error) {
	defer func() { metrics.RecordStorage(Driver, "update", err) }()
	return m.put(ctx, e, key, true)
}

func (m *Manager) put(ctx context.Context, e *column.Entity, key string, existing bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kc, err := keys.Lookup(e, key)
	if err != nil {
		return err
	}
	k, err := keys.String(kc)
	if err != nil {
		return err
	}
	frame, err := m.codec.Encode(e)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed()
	}
	f := m.families[e.Name()]
	if f == nil {
		if existing {
			return notFound(e.Name(), k)
		}
		f = &family{rows: make(map[string][]byte)}
		m.families[e.Name()] = f
	}
	if _, ok := f.rows[k]; !ok {
		if existing {
			return notFound(e.Name(), k)
		}
		f.order = append(f.order, k)
	}
	f.rows[k] = frame
	return nil
}

// Find returns the entry of family name stored under key.
func (m *Manager) Find(ctx context.Context, name string, key column.Column) (e *column.Entity, found bool, err error) {
	defer func() { metrics.RecordStorage(Driver, "find", err) }()
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	k, err := keys.String(key)
	if err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, false, errClosed()
	}
	var frame []byte
	if f := m.families[name]; f != nil {
		frame = f.rows[k]
	}
	m.mu.RUnlock()

	if frame == nil {
		return nil, false, nil
	}
	e, err = m.codec.Decode(frame)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// FindAll returns every entry of family name in insertion order.
func (m *Manager) FindAll(ctx context.Context, name string) (out []*column.Entity, err error) {
	defer func() { metrics.RecordStorage(Driver, "find_all", err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, errClosed()
	}
	var frames [][]byte
	if f := m.families[name]; f != nil {
		frames = make([][]byte, 0, len(f.order))
		for _, k := range f.order {
			frames = append(frames, f.rows[k])
		}
	}
	m.mu.RUnlock()

	out = make([]*column.Entity, 0, len(frames))
	for _, frame := range frames {
		e, err := m.codec.Decode(frame)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Delete removes the entry stored under key. Deleting a missing entry is not
// an error.
func (m *Manager) Delete(ctx context.Context, name string, key column.Column) (err error) {
	defer func() { metrics.RecordStorage(Driver, "delete", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := keys.String(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed()
	}
	f := m.families[name]
	if f == nil {
		return nil
	}
	if _, ok := f.rows[k]; !ok {
		return nil
	}
	delete(f.rows, k)
	for i, existing := range f.order {
		if existing == k {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports the number of entries of family name.
func (m *Manager) Len(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f := m.families[name]; f != nil {
		return len(f.rows)
	}
	return 0
}

// Close releases the stored entries. Operations after Close fail.
func (m *Manager) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.families = nil
	m.logger.Debug("memory store closed")
	return nil
}

func errClosed() error {
	return errors.New(errors.ErrorTypeStorage, "memory store is closed")
}

func notFound(name, key string) error {
	return errors.Newf(errors.ErrorTypeNotFound, "%s %s not found", name, key).
		WithDetail("entity", name).
		WithDetail("key", key)
}
