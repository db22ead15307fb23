// routing.go: stateless buffer selection by level
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import "github.com/agilira/dlt/internal/ringbank"

// RoutingState holds the round-robin counters Route advances. Warn/Info
// share one counter; Debug/Verbose share an independent one, per section
// 4.2. Both are cache-line padded so producers on different levels never
// bounce each other's cache line.
type RoutingState struct {
	warnInfo     ringbank.PaddedInt64
	debugVerbose ringbank.PaddedInt64
}

// NewRoutingState returns a zeroed RoutingState.
func NewRoutingState() *RoutingState { return &RoutingState{} }

// Route chooses a buffer index in [0, n) for level, given n buffers and
// shared round-robin state. Rules are fixed (section 4.2):
//
//	Fatal          -> 0
//	Error          -> min(1, n-1)
//	Warn, Info     -> round-robin over [0, n)
//	Debug, Verbose -> round-robin over [0, n), independent counter
//
// Imperfect distribution under races is acceptable: this is load spreading,
// not a correctness property.
func Route(level Level, n int, state *RoutingState) int {
	if n <= 0 {
		return 0
	}
	switch level {
	case Fatal:
		return 0
	case Error:
		if n-1 < 1 {
			return 0
		}
		return 1
	case Warn, Info:
		next := state.warnInfo.Add(1) - 1
		return int(next % int64(n))
	default: // Debug, Verbose
		next := state.debugVerbose.Add(1) - 1
		return int(next % int64(n))
	}
}
