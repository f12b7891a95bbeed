package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/colmap/pkg/codec"
	"github.com/ajitpratap0/colmap/pkg/compression"
	"github.com/ajitpratap0/colmap/pkg/config"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/storage"
	"github.com/ajitpratap0/colmap/pkg/storage/memory"
	"github.com/ajitpratap0/colmap/pkg/testutil"
)

func zstdCodec(t *testing.T) *codec.Codec {
	t.Helper()
	c, err := codec.NewWithConfig(&compression.Config{Algorithm: compression.Zstd})
	require.NoError(t, err)
	return c
}

func TestMemoryManager(t *testing.T) {
	c := zstdCodec(t)
	suite.Run(t, &testutil.ManagerSuite{
		Open: func(ctx context.Context) (storage.Manager, error) {
			return storage.Open(ctx, config.StorageConfig{Driver: config.DriverMemory}, c, testutil.TestLogger(t))
		},
	})
}

func TestMongoDBManager(t *testing.T) {
	uri := testutil.RequireEnv(t, testutil.EnvMongoURI)
	suite.Run(t, &testutil.ManagerSuite{
		Open: func(ctx context.Context) (storage.Manager, error) {
			return storage.Open(ctx, config.StorageConfig{
				Driver:   config.DriverMongoDB,
				URI:      uri,
				Database: "colmap_test",
			}, nil, testutil.TestLogger(t))
		},
	})
}

func TestRedisManager(t *testing.T) {
	addr := testutil.RequireEnv(t, testutil.EnvRedisAddr)
	c := zstdCodec(t)
	suite.Run(t, &testutil.ManagerSuite{
		Open: func(ctx context.Context) (storage.Manager, error) {
			return storage.Open(ctx, config.StorageConfig{
				Driver:    config.DriverRedis,
				URI:       "redis://" + addr,
				KeyPrefix: "colmap_test",
			}, c, testutil.TestLogger(t))
		},
	})
}

func TestOpen(t *testing.T) {
	ctx := testutil.TestContext(t)

	m, err := storage.Open(ctx, config.StorageConfig{}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Manager{}, m)
	require.NoError(t, m.Close(ctx))

	m, err = storage.Open(ctx, config.StorageConfig{Driver: "cassandra"}, nil, nil)
	assert.Nil(t, m)
	testutil.RequireErrorType(t, err, errors.ErrorTypeConfig)

	m, err = storage.Open(ctx, config.StorageConfig{Driver: config.DriverRedis}, nil, nil)
	assert.Nil(t, m)
	testutil.RequireErrorType(t, err, errors.ErrorTypeConfig)

	_, err = storage.Open(ctx, config.StorageConfig{Driver: config.DriverRedis, URI: "not a url"}, nil, nil)
	testutil.RequireErrorType(t, err, errors.ErrorTypeConfig)

	_, err = storage.Open(ctx, config.StorageConfig{Driver: config.DriverMongoDB}, nil, nil)
	testutil.RequireErrorType(t, err, errors.ErrorTypeConfig)
}
