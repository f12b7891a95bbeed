// Package metrics exposes colmap's Prometheus instrumentation: conversion
// counts and latencies, storage operations, codec payload sizes and batch
// throughput.
//
// # Basic Usage
//
//	timer := metrics.NewTimer()
//	ce, err := conv.ToColumn(entity)
//	metrics.RecordConversion(metrics.DirectionToColumn, "Computer", timer.Stop(), err)
//
// Metrics are registered with the default Prometheus registry on package
// initialization.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion directions used as the direction label.
const (
	DirectionToColumn = "to_column"
	DirectionToEntity = "to_entity"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

var (
	// ConversionsTotal counts conversions.
	// Labels: direction (to_column/to_entity), entity, status (success/failure)
	//
	// Example:
	//	metrics.ConversionsTotal.WithLabelValues("to_column", "Computer", "success").Inc()
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colmap_conversions_total",
			Help: "Total number of entity conversions",
		},
		[]string{"direction", "entity", "status"},
	)

	// ConversionDuration tracks conversion latency in seconds. Buckets start at
	// one microsecond since conversions are in-memory walks.
	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "colmap_conversion_duration_seconds",
			Help: "Entity conversion latency in seconds",
			Buckets: []float64{
				1e-6, // 1μs
				1e-5, // 10μs
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms
			},
		},
		[]string{"direction", "entity"},
	)

	// StorageOperations counts column family manager calls.
	// Labels: driver (memory/mongodb/redis), operation, status
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colmap_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"driver", "operation", "status"},
	)

	// CodecPayloadBytes tracks encoded frame sizes per compression algorithm.
	CodecPayloadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colmap_codec_payload_bytes",
			Help:    "Size of encoded column entity frames in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"algorithm"},
	)

	// BatchThroughput tracks entities converted per second by batch calls.
	BatchThroughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colmap_batch_throughput_entities_per_second",
			Help: "Entities converted per second by the last batch",
		},
		[]string{"direction"},
	)
)

// RecordConversion updates the conversion counter and latency histogram.
func RecordConversion(direction, entity string, d time.Duration, err error) {
	ConversionsTotal.WithLabelValues(direction, entity, status(err)).Inc()
	ConversionDuration.WithLabelValues(direction, entity).Observe(d.Seconds())
}

// RecordStorage updates the storage operation counter.
func RecordStorage(driver, operation string, err error) {
	StorageOperations.WithLabelValues(driver, operation, status(err)).Inc()
}

// RecordPayload observes the size of an encoded frame.
func RecordPayload(algorithm string, size int) {
	CodecPayloadBytes.WithLabelValues(algorithm).Observe(float64(size))
}

func status(err error) string {
	if err != nil {
		return statusFailure
	}
	return statusSuccess
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the time elapsed since the timer started. It can be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker counts items over a window and reports the rate to
// BatchThroughput. Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	direction string
}

// NewThroughputTracker creates a tracker for one conversion direction.
func NewThroughputTracker(direction string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		direction: direction,
	}
}

// Increment adds n to the count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset computes items per second since the last reset, publishes it
// and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed
	t.count = 0
	t.lastReset = time.Now()

	BatchThroughput.WithLabelValues(t.direction).Set(throughput)
	return throughput
}
