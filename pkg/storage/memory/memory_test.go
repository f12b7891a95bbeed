package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/colmap/pkg/codec"
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/compression"
	"github.com/ajitpratap0/colmap/pkg/errors"
)

func book(id int64, name string) *column.Entity {
	return column.EntityOf("Book", column.Of("_id", id), column.Of("name", name))
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	c, err := codec.NewWithConfig(&compression.Config{Algorithm: compression.S2})
	require.NoError(t, err)
	m, err := New(c, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestInsertFindDelete(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	require.NoError(t, m.Insert(ctx, book(1, "Effective Java"), "_id"))
	require.NoError(t, m.Insert(ctx, book(2, "TDD"), "_id"))
	assert.Equal(t, 2, m.Len("Book"))

	e, found, err := m.Find(ctx, "Book", column.Of("_id", 1))
	require.NoError(t, err)
	require.True(t, found, "int and int64 keys address the same entry")
	assert.Equal(t, book(1, "Effective Java").Columns(), e.Columns())

	_, found, err = m.Find(ctx, "Book", column.Of("_id", int64(3)))
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = m.Find(ctx, "Magazine", column.Of("_id", int64(1)))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Delete(ctx, "Book", column.Of("_id", int64(1))))
	require.NoError(t, m.Delete(ctx, "Book", column.Of("_id", int64(1))))
	all, err := m.FindAll(ctx, "Book")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "TDD", mustFind(t, all[0], "name"))
}

func TestSnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	e := book(1, "Effective Java")
	require.NoError(t, m.Insert(ctx, e, "_id"))
	require.NoError(t, e.Add("name", "changed after insert"))

	stored, _, err := m.Find(ctx, "Book", column.Of("_id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, "Effective Java", mustFind(t, stored, "name"))

	require.NoError(t, stored.Add("name", "changed after find"))
	again, _, err := m.Find(ctx, "Book", column.Of("_id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, "Effective Java", mustFind(t, again, "name"))
}

func TestInsertReplacesAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, m.Insert(ctx, book(i, "v1"), "_id"))
	}
	require.NoError(t, m.Insert(ctx, book(2, "v2"), "_id"))

	all, err := m.FindAll(ctx, "Book")
	require.NoError(t, err)
	require.Len(t, all, 3)
	var names []string
	for _, e := range all {
		names = append(names, mustFind(t, e, "name"))
	}
	assert.Equal(t, []string{"v1", "v2", "v1"}, names)

	empty, err := m.FindAll(ctx, "Magazine")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	err := m.Update(ctx, book(1, "missing"), "_id")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound), "got %v", err)

	require.NoError(t, m.Insert(ctx, book(1, "v1"), "_id"))
	err = m.Update(ctx, book(9, "missing"), "_id")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound), "got %v", err)

	require.NoError(t, m.Update(ctx, book(1, "v2"), "_id"))
	e, _, err := m.Find(ctx, "Book", column.Of("_id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, "v2", mustFind(t, e, "name"))
}

func TestValidationAndLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	err := m.Insert(ctx, column.EntityOf("Book", column.Of("name", "no key")), "_id")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
	assert.True(t, errors.IsNullArgument(m.Insert(ctx, nil, "_id")))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, m.Insert(cancelled, book(1, "x"), "_id"), context.Canceled)

	require.NoError(t, m.Close(ctx))
	require.NoError(t, m.Close(ctx))
	err = m.Insert(ctx, book(1, "x"), "_id")
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))
	_, _, err = m.Find(ctx, "Book", column.Of("_id", 1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))
}

func mustFind(t *testing.T, e *column.Entity, name string) string {
	t.Helper()
	v, ok, err := column.Find[string](e, name)
	require.NoError(t, err)
	require.True(t, ok)
	return v
}
