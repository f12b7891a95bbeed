package redis

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
)

// newOffline returns a manager whose client is never dialled.
func newOffline(t *testing.T, prefix string) *Manager {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	m, err := New(client, nil, prefix, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestKeyAndPattern(t *testing.T) {
	m := newOffline(t, "app[1]")
	assert.Equal(t, "app[1]:Book:7", m.Key("Book", "7"))
	assert.Equal(t, `app\[1\]:Book:*`, m.pattern("Book"))
	assert.Equal(t, `Bo\*k:*`, newOffline(t, "").pattern("Bo*k"))
}

func TestEntityNamesMustNotContainSeparator(t *testing.T) {
	ctx := context.Background()
	m := newOffline(t, "colmap")
	key := column.Of("_id", 1)

	err := m.Insert(ctx, column.EntityOf("Book:draft", key), "_id")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
	_, _, err = m.Find(ctx, "Book:draft", key)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
	_, err = m.FindAll(ctx, "Book:draft")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
	err = m.Delete(ctx, "", key)
	assert.True(t, errors.IsNullArgument(err), "got %v", err)
}
