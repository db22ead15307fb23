// idle_strategies.go: public constructors for Worker/BlockWithTimeout idling
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import "github.com/agilira/dlt/internal/ringbank"

// IdleStrategy controls CPU usage both for the Worker's idle loop (4.4 step
// 2) and a BlockWithTimeout producer's wait (4.3) — the same mechanism
// serves both call sites.
type IdleStrategy = ringbank.IdleStrategy

// NewSpinningIdleStrategy never yields; minimum latency, ~100% CPU when
// idle. Mainly useful for tests that need jitter-free timing.
func NewSpinningIdleStrategy() IdleStrategy {
	return ringbank.NewSpinningIdleStrategy()
}

// NewProgressiveIdleStrategy hot-spins, then yields, then backs off with
// growing sleeps; resets to hot-spin whenever work is found. This is the
// engine's default for both the Worker loop and BlockWithTimeout waits.
func NewProgressiveIdleStrategy() IdleStrategy {
	return ringbank.NewProgressiveIdleStrategy()
}

// SpinningStrategy is the shared jitter-free strategy instance, for tests.
var SpinningStrategy = NewSpinningIdleStrategy()

// BalancedStrategy is the production default: progressive spin/yield/sleep.
var BalancedStrategy = NewProgressiveIdleStrategy()
