// dlt.go: the public facade wiring Encoder + Routing + Bank + Worker +
// Control Surface into one cohesive engine.
//
// Generalizes the teacher's Logger type (construction on first use,
// explicit Start/Close lifecycle, atomics-only hot path) from a
// general-purpose structured logger to the DLT producer pipeline of
// SPEC_FULL.md section 9's "process-wide logging state" pattern.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"context"
	"sync"

	"github.com/agilira/dlt/internal/ringbank"
)

// EnqueueOutcome is re-exported from internal/ringbank so callers of Log
// never need that import path directly.
type EnqueueOutcome = ringbank.EnqueueOutcome

const (
	Accepted = ringbank.Accepted
	Dropped  = ringbank.Dropped
	Replaced = ringbank.Replaced
	TimedOut = ringbank.TimedOut
)

// Engine is the top-level logging pipeline: one Bank, one Worker, one
// Control Surface. Construction does not start the Worker; call Start
// explicitly, mirroring the teacher's Logger/Start separation.
type Engine struct {
	cfg     *Config
	encoder *Encoder
	bank    *ringbank.Bank[EncodedRecord]
	routing *RoutingState
	control *ControlSurface
	worker  *Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	closed  bool
}

// New validates cfg, applies defaults, and constructs the Bank, Encoder,
// Routing state, Worker and Control Surface. It does not dial the
// Transport or start the Worker goroutine; call Start for that.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	resolved := cfg.withDefaults()

	idleFactory := func() IdleStrategy { return NewProgressiveIdleStrategy() }
	bank, err := ringbank.NewBank[EncodedRecord](
		resolved.BufferSize,
		resolved.OverflowMode,
		int64(resolved.TimeoutMs)*1_000_000,
		idleFactory,
	)
	if err != nil {
		return nil, wrapEngineError(err, ErrCodeInvalidConfig, "failed to construct buffer bank")
	}

	control := newControlSurface(bank, resolved.LocalEchoDefault)

	var transport Transport
	if resolved.Network == "tcp" {
		transport = NewTCPTransport(resolved.SocketPath)
	} else {
		transport = NewUnixTransport(resolved.SocketPath)
	}

	worker := newWorker(resolved, bank, transport, control)

	return &Engine{
		cfg:     resolved,
		encoder: NewEncoder(resolved.EcuID, MaxPayload, resolved.TimeFn),
		bank:    bank,
		routing: NewRoutingState(),
		control: control,
		worker:  worker,
	}, nil
}

// Start spawns the Worker goroutine. Calling Start more than once is a
// no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.worker.Run(ctx)
}

// Close requests cooperative shutdown: the Worker finishes its current
// batch, performs one bounded final drain, and exits. Close blocks until
// the Worker has stopped. Safe to call multiple times.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.started {
		e.worker.Stop()
		e.cancel()
	}
	e.bank.Close()
	return nil
}

// Log encodes record and routes it to a Buffer. Returns the
// EnqueueOutcome per section 4.3; an encode failure (TooLarge/BadId)
// returns it as the second value without ever touching the Bank.
func (e *Engine) Log(record LogRecord) (EnqueueOutcome, error) {
	if record.LocalEcho == nil {
		v := e.control.LocalEchoEnabled()
		record.LocalEcho = &v
	}

	encoded, err := e.encoder.Encode(record)
	if err != nil {
		return Dropped, err
	}

	idx := record.BufferIndex
	if !record.ExplicitBuffer || idx < 0 || idx >= e.bank.NumBuffers() {
		idx = Route(record.Level, e.bank.NumBuffers(), e.routing)
	}
	encoded.bufferIndex = idx

	outcome := e.bank.Buffer(idx).TryEnqueue(func(slot *EncodedRecord) {
		*slot = encoded
	})
	return outcome, nil
}

// Control returns the Control Surface for atomic configuration changes and
// stats queries.
func (e *Engine) Control() *ControlSurface { return e.control }

// NumBuffers reports the Bank size N.
func (e *Engine) NumBuffers() int { return e.bank.NumBuffers() }
