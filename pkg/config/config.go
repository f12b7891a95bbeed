package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/ajitpratap0/colmap/pkg/compression"
	"github.com/ajitpratap0/colmap/pkg/errors"
)

// Storage drivers understood by storage.Open.
const (
	DriverMemory  = "memory"
	DriverMongoDB = "mongodb"
	DriverRedis   = "redis"
)

// Config is the configuration of a colmap process. It is organized into
// sections:
//   - Converter: recursion bound and batch concurrency
//   - Codec: payload compression of stored frames
//   - Storage: backend driver and connection settings
//   - Observability: logging, metrics and tracing
type Config struct {
	// Name identifies the process in logs and traces
	Name string `yaml:"name" json:"name"`

	Converter     ConverterConfig     `yaml:"converter" json:"converter"`
	Codec         CodecConfig         `yaml:"codec" json:"codec"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ConverterConfig controls entity conversion.
type ConverterConfig struct {
	// MaxDepth bounds the nesting of embedded entities
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	// Workers bounds concurrent conversions in batch operations
	Workers int `yaml:"workers" json:"workers"`
}

// CodecConfig selects how encoded entities are compressed.
type CodecConfig struct {
	// Compression is one of none, gzip, deflate, snappy, s2, zstd, lz4
	Compression string `yaml:"compression" json:"compression"`
	// Level sets compression ratio vs speed (1-9)
	Level int `yaml:"level" json:"level"`
}

// StorageConfig selects and configures the column family manager.
type StorageConfig struct {
	// Driver is one of memory, mongodb, redis
	Driver string `yaml:"driver" json:"driver"`
	// URI is the connection string of mongodb and redis
	URI string `yaml:"uri" json:"uri"`
	// Database names the MongoDB database
	Database string `yaml:"database" json:"database"`
	// KeyPrefix namespaces Redis keys
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
	// Timeout bounds connecting to the backend
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding is json or console
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	// Development enables development logging
	Development bool `yaml:"development" json:"development"`
	// EnableMetrics activates Prometheus conversion metrics
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// ServiceName is the traced service name
	ServiceName string `yaml:"service_name" json:"service_name"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// New creates a Config with defaults suitable for local use: in-memory
// storage with snappy-compressed frames.
func New() *Config {
	return &Config{
		Name: "colmap",
		Converter: ConverterConfig{
			MaxDepth: 64,
			Workers:  runtime.NumCPU(),
		},
		Codec: CodecConfig{
			Compression: string(compression.Snappy),
			Level:       int(compression.Default),
		},
		Storage: StorageConfig{
			Driver:    DriverMemory,
			Database:  "colmap",
			KeyPrefix: "colmap",
			Timeout:   10 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "json",
			EnableMetrics:     true,
			EnableTracing:     false,
			ServiceName:       "colmap",
			TracingSampleRate: 0.1,
		},
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Name == "" {
		return invalid("name is required")
	}
	if c.Converter.MaxDepth <= 0 {
		return invalid("converter.max_depth must be positive")
	}
	if c.Converter.Workers < 0 {
		return invalid("converter.workers cannot be negative")
	}
	if _, err := compression.ParseAlgorithm(c.Codec.Compression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid codec.compression")
	}
	if c.Codec.Level < 0 || c.Codec.Level > 9 {
		return invalid("codec.level must be between 0 and 9")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case DriverMemory:
	case DriverMongoDB:
		if c.Storage.URI == "" {
			return invalid("storage.uri is required for mongodb")
		}
		if c.Storage.Database == "" {
			return invalid("storage.database is required for mongodb")
		}
	case DriverRedis:
		if c.Storage.URI == "" {
			return invalid("storage.uri is required for redis")
		}
	default:
		return invalid("unknown storage.driver " + c.Storage.Driver)
	}
	if c.Storage.Timeout < 0 {
		return invalid("storage.timeout cannot be negative")
	}

	switch c.Observability.LogEncoding {
	case "", "json", "console":
	default:
		return invalid("observability.log_encoding must be json or console")
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return invalid("observability.tracing_sample_rate must be between 0 and 1")
	}
	return nil
}

// CompressionConfig returns the compressor configuration of the codec
// section.
func (c *CodecConfig) CompressionConfig() (*compression.Config, error) {
	algorithm, err := compression.ParseAlgorithm(c.Compression)
	if err != nil {
		return nil, err
	}
	level := compression.Level(c.Level)
	if level == 0 {
		level = compression.Default
	}
	return &compression.Config{Algorithm: algorithm, Level: level}, nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (c *ConverterConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

func invalid(msg string) error {
	return errors.New(errors.ErrorTypeConfig, msg)
}
