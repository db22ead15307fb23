// control.go: Control Surface — atomic configuration and stats query API
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"sync/atomic"
	"time"

	"github.com/agilira/dlt/internal/ringbank"
)

// ControlSurface exposes the atomic operations of section 4.6, callable
// from any goroutine. All counters are monotonic; readers see eventually
// consistent values.
type ControlSurface struct {
	bank      *ringbank.Bank[EncodedRecord]
	localEcho atomic.Bool
}

func newControlSurface(bank *ringbank.Bank[EncodedRecord], localEchoDefault bool) *ControlSurface {
	c := &ControlSurface{bank: bank}
	c.localEcho.Store(localEchoDefault)
	return c
}

// SetOverflowMode atomically switches the Bank-wide overflow policy.
// In-flight TryEnqueue calls may observe either the old or new value.
func (c *ControlSurface) SetOverflowMode(mode OverflowMode) { c.bank.SetOverflowMode(mode) }

// GetOverflowMode reads the current overflow policy.
func (c *ControlSurface) GetOverflowMode() OverflowMode { return c.bank.OverflowMode() }

// SetTimeoutMs atomically sets the BlockWithTimeout deadline.
func (c *ControlSurface) SetTimeoutMs(ms int64) {
	c.bank.SetTimeout(int64(time.Duration(ms) * time.Millisecond))
}

// GetTimeoutMs reads the current BlockWithTimeout deadline in milliseconds.
func (c *ControlSurface) GetTimeoutMs() int64 {
	return int64(time.Duration(c.bank.Timeout()) / time.Millisecond)
}

// Stats returns the enqueued/dropped/sent counters for one buffer.
func (c *ControlSurface) Stats(bufferIndex int) (enqueued, dropped, sent int64) {
	s := c.bank.Buffer(bufferIndex).Stats()
	return s.Enqueued, s.Dropped, s.Sent
}

// TotalDropped sums the dropped counter across every buffer.
func (c *ControlSurface) TotalDropped() int64 {
	return c.bank.Stats().Dropped
}

// TotalStats aggregates enqueued/dropped/sent across every buffer.
func (c *ControlSurface) TotalStats() (enqueued, dropped, sent int64) {
	s := c.bank.Stats()
	return s.Enqueued, s.Dropped, s.Sent
}

// EnableLocalEcho toggles the process-wide local echo default.
func (c *ControlSurface) EnableLocalEcho(enabled bool) { c.localEcho.Store(enabled) }

// LocalEchoEnabled reports the current local echo default.
func (c *ControlSurface) LocalEchoEnabled() bool { return c.localEcho.Load() }
