// atomic.go: cache-line padded atomic counters for the MPSC buffer bank
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringbank

import "sync/atomic"

// PaddedInt64 is a cache-line padded atomic int64.
//
// Producer claim cursors, the reader cursor and per-slot availability
// markers each get their own cache line so a producer spinning on one
// counter never bounces the line a sibling producer, or the Worker, is
// touching.
type PaddedInt64 struct {
	_   [64]byte
	val int64
	_   [64]byte
}

func (a *PaddedInt64) Load() int64 { return atomic.LoadInt64(&a.val) }

func (a *PaddedInt64) Store(val int64) { atomic.StoreInt64(&a.val, val) }

func (a *PaddedInt64) Add(delta int64) int64 { return atomic.AddInt64(&a.val, delta) }

func (a *PaddedInt64) CompareAndSwap(old, new int64) bool {
	return atomic.CompareAndSwapInt64(&a.val, old, new)
}
