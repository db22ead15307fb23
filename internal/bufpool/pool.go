// pool.go: scratch-buffer pool backing the DLT encoder's hot path.
//
// The encoder builds each wire frame into a pooled *bytes.Buffer, then
// copies the finished bytes out into an owned, immutable []byte before
// handing it to a ring buffer slot (the ring buffer's backing array is
// reused across records, so the encoded payload must not alias pool
// memory once TryEnqueue returns).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package bufpool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

var (
	getCount   int64
	putCount   int64
	allocCount int64
	dropCount  int64
)

const (
	// MaxBufferSize is the maximum buffer capacity before dropping.
	// Buffers larger than this are discarded to prevent memory bloat from
	// a single oversized payload pinning a large backing array in the pool.
	MaxBufferSize = 1 << 20 // 1 MiB

	// DefaultCapacity is the initial capacity hint for new buffers, sized
	// for a typical DLT verbose-mode frame carrying one string argument.
	DefaultCapacity = 256
)

var pool = sync.Pool{
	New: func() any {
		atomic.AddInt64(&allocCount, 1)
		return bytes.NewBuffer(make([]byte, 0, DefaultCapacity))
	},
}

// Get returns a clean *bytes.Buffer from the pool.
func Get() *bytes.Buffer {
	atomic.AddInt64(&getCount, 1)
	b := pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// Put returns b to the pool. Oversized buffers have their backing array
// released instead of being retained.
func Put(b *bytes.Buffer) {
	if b == nil {
		return
	}
	atomic.AddInt64(&putCount, 1)

	if b.Cap() > MaxBufferSize {
		atomic.AddInt64(&dropCount, 1)
		*b = *bytes.NewBuffer(make([]byte, 0, DefaultCapacity))
	}

	b.Reset()
	pool.Put(b)
}

// Stats is a snapshot of pool activity, for capacity-planning diagnostics.
type Stats struct {
	Gets        int64
	Puts        int64
	Allocations int64
	Drops       int64
}

// GetStats returns a snapshot of current pool statistics.
func GetStats() Stats {
	return Stats{
		Gets:        atomic.LoadInt64(&getCount),
		Puts:        atomic.LoadInt64(&putCount),
		Allocations: atomic.LoadInt64(&allocCount),
		Drops:       atomic.LoadInt64(&dropCount),
	}
}

// ResetStats resets all pool statistics to zero. Used by tests.
func ResetStats() {
	atomic.StoreInt64(&getCount, 0)
	atomic.StoreInt64(&putCount, 0)
	atomic.StoreInt64(&allocCount, 0)
	atomic.StoreInt64(&dropCount, 0)
}
