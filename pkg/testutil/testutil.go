// Package testutil provides testing utilities for colmap
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// Environment variables enabling the storage integration tests.
const (
	EnvMongoURI  = "COLMAP_MONGO_URI"
	EnvRedisAddr = "COLMAP_REDIS_ADDR"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout that is
// cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// RequireEnv returns the value of key or skips the test when it is unset or
// the tests run in short mode.
func RequireEnv(t *testing.T, key string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set", key)
	}
	return v
}

// RequireErrorType fails the test unless err is a colmap error of errType.
func RequireErrorType(t *testing.T, err error, errType errors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.IsType(err, errType), "expected %s error, got %v", errType, err)
}
