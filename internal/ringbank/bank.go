// bank.go: a fixed set of sibling Buffers sharing one overflow policy.
//
// A Bank is the concrete "Buffer Bank" of spec.md 4.3/4.6: N ring buffers,
// each independently sized, all governed by one Control-Surface-mutated
// overflow mode and timeout. Routing (spec.md 4.2) picks the buffer index;
// the Bank only owns storage and lifecycle.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringbank

const (
	// MinBuffers and MaxBuffers bound N per spec.md 4.1.
	MinBuffers = 1
	MaxBuffers = 64

	// DefaultBufferSize is used to fill any buffer_size[i] entry the caller
	// did not explicitly configure (resolves spec.md Open Question #1: a
	// missing per-buffer size repeats the last explicitly configured size,
	// or this default when none was configured at all).
	DefaultBufferSize = 2048
)

// Bank owns N sibling Buffer[T] instances plus the shared overflow-mode and
// timeout cells every buffer reads on each TryEnqueue.
type Bank[T any] struct {
	buffers []*Buffer[T]
	mode    PaddedInt64
	timeout PaddedInt64
	closed  PaddedInt64
}

// NewBank builds a Bank with len(sizes) buffers, each a capacity from sizes.
// Every size must already be a power of two (callers resolve the
// fill-forward default before calling NewBank; see ResolveSizes).
func NewBank[T any](sizes []int64, mode OverflowMode, timeout int64, idleFactory func() IdleStrategy) (*Bank[T], error) {
	n := len(sizes)
	if n < MinBuffers || n > MaxBuffers {
		return nil, ErrInvalidBufferCount
	}

	bank := &Bank[T]{buffers: make([]*Buffer[T], n)}
	bank.mode.Store(int64(mode))
	bank.timeout.Store(timeout)

	for i, size := range sizes {
		buf, err := New[T](size, &bank.mode, &bank.timeout, idleFactory)
		if err != nil {
			return nil, err
		}
		bank.buffers[i] = buf
	}
	return bank, nil
}

// ResolveSizes fills a caller-supplied, possibly sparse size list up to n
// entries: a zero or missing entry repeats the previous explicit value, or
// DefaultBufferSize if none has been seen yet.
func ResolveSizes(explicit []int64, n int) []int64 {
	resolved := make([]int64, n)
	last := int64(DefaultBufferSize)
	for i := 0; i < n; i++ {
		if i < len(explicit) && explicit[i] > 0 {
			last = explicit[i]
		}
		resolved[i] = last
	}
	return resolved
}

// NumBuffers reports N.
func (bk *Bank[T]) NumBuffers() int { return len(bk.buffers) }

// Buffer returns the i'th sibling buffer for direct enqueue/dequeue.
func (bk *Bank[T]) Buffer(i int) *Buffer[T] { return bk.buffers[i] }

// SetOverflowMode atomically changes the policy for every buffer in the
// bank in one store, per spec.md 4.6's Control Surface contract.
func (bk *Bank[T]) SetOverflowMode(mode OverflowMode) { bk.mode.Store(int64(mode)) }

// OverflowMode reads the current policy.
func (bk *Bank[T]) OverflowMode() OverflowMode { return OverflowMode(bk.mode.Load()) }

// SetTimeout atomically changes the BlockWithTimeout deadline duration
// (nanoseconds) for every buffer in the bank.
func (bk *Bank[T]) SetTimeout(nanos int64) { bk.timeout.Store(nanos) }

// Timeout reads the current timeout in nanoseconds.
func (bk *Bank[T]) Timeout() int64 { return bk.timeout.Load() }

// TotalLen sums the in-flight record count across every buffer.
func (bk *Bank[T]) TotalLen() int64 {
	var total int64
	for _, b := range bk.buffers {
		total += b.Len()
	}
	return total
}

// Stats aggregates counters across every sibling buffer.
func (bk *Bank[T]) Stats() Stats {
	var agg Stats
	for _, b := range bk.buffers {
		s := b.Stats()
		agg.Enqueued += s.Enqueued
		agg.Dropped += s.Dropped
		agg.Sent += s.Sent
	}
	return agg
}

// Close closes every sibling buffer; further TryEnqueue calls on any of
// them are refused.
func (bk *Bank[T]) Close() {
	bk.closed.Store(1)
	for _, b := range bk.buffers {
		b.Close()
	}
}

// Closed reports whether Close has been called.
func (bk *Bank[T]) Closed() bool { return bk.closed.Load() != 0 }
