// idle_strategy.go: idle behavior for the Worker's drain loop and for a
// producer spinning inside BlockWithTimeout.
//
// The teacher's zephyroslite offers five idle strategies (spinning,
// sleeping, yielding, channel-parked, progressive) as a general-purpose
// consumer-idle toolkit. This engine only ever needs two of them: a pure
// spin for deterministic tests (capacity/timeout assertions that cannot
// tolerate a sleeping idle strategy's jitter) and a progressive
// spin/yield/backoff strategy for the Worker's real idle loop and for
// producers waiting out BlockWithTimeout. The other three never had a call
// site here, so they are gone rather than carried as unused surface.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringbank

import (
	"runtime"
	"sync/atomic"
	"time"
)

// IdleStrategy is shared by the Worker's main loop, when every Buffer is
// empty, and a producer spinning inside TryEnqueue under BlockWithTimeout.
// Neither call site ever blocks on anything but its own local state, so one
// producer waiting never holds up another.
type IdleStrategy interface {
	// Idle is called once per iteration when no work was found.
	Idle() bool

	// Reset clears any accumulated backoff state; called as soon as work
	// is found again, so the next idle spell starts back at a hot spin.
	Reset()

	String() string
}

// SpinningIdleStrategy never yields or sleeps. Used where a test needs a
// deterministic, jitter-free wait (e.g. BlockWithTimeout deadline math) and
// where the caller already knows spin time will be short.
type SpinningIdleStrategy struct{}

func NewSpinningIdleStrategy() *SpinningIdleStrategy { return &SpinningIdleStrategy{} }

func (s *SpinningIdleStrategy) Idle() bool     { return true }
func (s *SpinningIdleStrategy) Reset()         {}
func (s *SpinningIdleStrategy) String() string { return "spinning" }

// ProgressiveIdleStrategy hot-spins for low latency, then yields
// occasionally, then backs off with a growing sleep the longer a Buffer
// stays empty (or a producer stays blocked). Reset snaps back to hot-spin
// the instant work shows up, so a bursty producer never pays the sleep
// tail from a prior quiet spell. This is the default for both the Worker's
// idle loop and BlockWithTimeout's wait.
type ProgressiveIdleStrategy struct {
	spins        int64
	sleepCounter int64

	hotSpinThreshold  int
	warmSpinThreshold int
	sleepDuration     time.Duration
	maxSleepDuration  time.Duration
}

func NewProgressiveIdleStrategy() *ProgressiveIdleStrategy {
	return &ProgressiveIdleStrategy{
		hotSpinThreshold:  1000,
		warmSpinThreshold: 10000,
		sleepDuration:     time.Microsecond,
		maxSleepDuration:  time.Millisecond,
	}
}

func (s *ProgressiveIdleStrategy) Idle() bool {
	spins := atomic.AddInt64(&s.spins, 1)

	switch {
	case spins < int64(s.hotSpinThreshold):
		return true
	case spins < int64(s.warmSpinThreshold):
		if spins&7 == 0 {
			runtime.Gosched()
		}
		return true
	default:
		sleepCounter := atomic.LoadInt64(&s.sleepCounter)
		shift := sleepCounter / 2
		if shift > 10 {
			shift = 10
		}
		sleepDuration := s.sleepDuration * time.Duration(1<<shift)
		if sleepDuration > s.maxSleepDuration {
			sleepDuration = s.maxSleepDuration
		}

		time.Sleep(sleepDuration)
		atomic.AddInt64(&s.sleepCounter, 1)
		atomic.StoreInt64(&s.spins, 0)
		return true
	}
}

func (s *ProgressiveIdleStrategy) Reset() {
	atomic.StoreInt64(&s.spins, 0)
	atomic.StoreInt64(&s.sleepCounter, 0)
}

func (s *ProgressiveIdleStrategy) String() string { return "progressive" }
