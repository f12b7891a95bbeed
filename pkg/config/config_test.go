package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colmap/pkg/compression"
	"github.com/ajitpratap0/colmap/pkg/errors"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Positive(t, cfg.Converter.GetWorkers())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing name", func(c *Config) { c.Name = "" }},
		{"zero depth", func(c *Config) { c.Converter.MaxDepth = 0 }},
		{"negative workers", func(c *Config) { c.Converter.Workers = -1 }},
		{"unknown compression", func(c *Config) { c.Codec.Compression = "brotli" }},
		{"level out of range", func(c *Config) { c.Codec.Level = 12 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "cassandra" }},
		{"mongodb without uri", func(c *Config) { c.Storage.Driver = DriverMongoDB }},
		{"mongodb without database", func(c *Config) {
			c.Storage.Driver = DriverMongoDB
			c.Storage.URI = "mongodb://localhost"
			c.Storage.Database = ""
		}},
		{"redis without uri", func(c *Config) { c.Storage.Driver = DriverRedis }},
		{"negative timeout", func(c *Config) { c.Storage.Timeout = -time.Second }},
		{"log encoding", func(c *Config) { c.Observability.LogEncoding = "xml" }},
		{"sample rate", func(c *Config) { c.Observability.TracingSampleRate = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
		})
	}
}

func TestLoadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("COLMAP_TEST_URI", "mongodb://db:27017")
	path := filepath.Join(t.TempDir(), "colmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: orders
codec:
  compression: zstd
storage:
  driver: mongodb
  uri: ${COLMAP_TEST_URI}
  database: shop
  timeout: 3s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "orders", cfg.Name)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.URI)
	assert.Equal(t, 3*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 64, cfg.Converter.MaxDepth, "defaults survive a partial file")

	cc, err := cfg.Codec.CompressionConfig()
	require.NoError(t, err)
	assert.Equal(t, compression.Zstd, cc.Algorithm)
	assert.Equal(t, compression.Default, cc.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unterminated"), 0o600))
	_, err = Load(path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: cassandra\n"), 0o600))
	_, err = Load(path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colmap.yaml")
	cfg := New()
	cfg.Name = "saved"
	cfg.Storage.KeyPrefix = "app"
	require.NoError(t, Save(path, cfg))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)

	assert.True(t, errors.IsNullArgument(Save(path, nil)))
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("COLMAP_A", "x")
	assert.Equal(t, "x-x-", substituteEnvVars("${COLMAP_A}-${COLMAP_A}-${COLMAP_UNSET_VAR}"))
	assert.Equal(t, "keep ${open", substituteEnvVars("keep ${open"))
}
