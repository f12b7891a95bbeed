// Package pool provides typed object pools for the hot paths of colmap.
//
// Frame encoding allocates a scratch buffer per entity; pooling those
// buffers keeps bulk encoding from churning the garbage collector.
//
//	buf := pool.GetBuffer()
//	defer pool.PutBuffer(buf)
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool is a type safe wrapper around sync.Pool that tracks usage.
// It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. newFn builds an object when the pool is empty; reset,
// if not nil, clears an object before it goes back into the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get takes an object from the pool, allocating one if needed.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.gets, 1)
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Discard records that obj was checked out but will not be returned.
func (p *Pool[T]) Discard(T) {
	atomic.AddInt64(&p.stats.inUse, -1)
}

// Stats reports the objects allocated, currently checked out, and the
// number of Get calls. Gets beyond allocated were served from the pool.
func (p *Pool[T]) Stats() (allocated, inUse, gets int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.gets)
}

// MaxBufferSize is the largest buffer PutBuffer keeps; bigger ones are left
// to the garbage collector so one huge entity does not pin memory.
const MaxBufferSize = 1 << 20

// Buffers pools the scratch buffers used for encoding.
var Buffers = New(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 4096)) },
	func(b *bytes.Buffer) { b.Reset() },
)

// GetBuffer returns an empty buffer from Buffers.
func GetBuffer() *bytes.Buffer {
	return Buffers.Get()
}

// PutBuffer returns buf to Buffers unless it grew past MaxBufferSize.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() > MaxBufferSize {
		Buffers.Discard(buf)
		return
	}
	Buffers.Put(buf)
}
