// worker.go: the single consumer that drains the Bank and ships bytes
//
// Generalizes the teacher's ZephyrosLight.LoopProcess consumer loop from a
// single in-process sink to a Disconnected/Connected state machine driving
// a Transport, per SPEC_FULL.md section 4.4. Idle/backoff reuses the same
// IdleStrategy abstraction the Buffer Bank uses for BlockWithTimeout.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/agilira/go-errors"

	"github.com/agilira/dlt/internal/ringbank"
)

const (
	reconnectBackoffMin = 10 * time.Millisecond
	reconnectBackoffMax = 1 * time.Second
	reconnectJitter     = 0.25

	// finalDrainRounds bounds the number of extra drain passes the Worker
	// performs per buffer during cooperative shutdown.
	finalDrainRounds = 1
)

type workerConnState int32

const (
	workerDisconnected workerConnState = iota
	workerConnected
)

// Worker is the single, long-lived consumer task described in section 4.4.
// Exactly one instance runs per Engine.
type Worker struct {
	bank      *ringbank.Bank[EncodedRecord]
	transport Transport
	batchSize int64
	rotation  int

	connState atomic.Int32

	// pending holds records dequeued while Disconnected, bounded to one
	// batch; records beyond that bound are marked dropped immediately.
	pending    []EncodedRecord
	pendingCap int

	echo             *localEchoWriter
	localEchoDefault func() bool

	errorHandler func(msg string, err error)

	sendBufBytes atomic.Int64

	shutdown atomic.Bool
	done     chan struct{}
	once     sync.Once

	idleFactory func() IdleStrategy

	ioErrors atomic.Int64
}

func newWorker(cfg *Config, bank *ringbank.Bank[EncodedRecord], transport Transport, control *ControlSurface) *Worker {
	w := &Worker{
		bank:             bank,
		transport:        transport,
		batchSize:        int64(cfg.BatchSize),
		pendingCap:       cfg.BatchSize,
		echo:             newLocalEchoWriter(cfg),
		localEchoDefault: control.LocalEchoEnabled,
		done:             make(chan struct{}),
		idleFactory:      func() IdleStrategy { return NewProgressiveIdleStrategy() },
	}
	w.sendBufBytes.Store(int64(cfg.SocketSendBufBytes))
	w.connState.Store(int32(workerDisconnected))
	handler := cfg.ErrorHandler
	if handler == nil {
		handler = GetErrorHandler()
	}
	w.errorHandler = func(msg string, err error) {
		if e, ok := err.(*goerrors.Error); ok {
			handler(e)
			return
		}
		handler(wrapEngineError(err, ErrCodeIOOther, msg))
	}
	return w
}

func (w *Worker) setSendBuffer(bytes int) {
	w.sendBufBytes.Store(int64(bytes))
	_ = w.transport.SetSendBuffer(bytes)
}

// Run executes the Worker's main loop until ctx is cancelled or Stop is
// called. It is meant to be run in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	backoff := reconnectBackoffMin
	idle := w.idleFactory()

	for {
		if w.shutdown.Load() {
			w.finalDrain()
			return
		}
		select {
		case <-ctx.Done():
			w.finalDrain()
			return
		default:
		}

		if workerConnState(w.connState.Load()) == workerDisconnected {
			if err := w.transport.Connect(ctx); err != nil {
				w.errorHandler("connect failed", err)
				// Keep draining while disconnected so producers keep making
				// progress; accumulate into the bounded pending vector.
				batch := w.drainRound()
				w.echoBatch(batch)
				w.pending = append(w.pending, batch...)
				w.enforcePendingCap()
				w.sleepBackoff(ctx, &backoff)
				continue
			}
			_ = w.transport.SetSendBuffer(int(w.sendBufBytes.Load()))
			w.connState.Store(int32(workerConnected))
			backoff = reconnectBackoffMin
			// Any records accumulated in w.pending while Disconnected are
			// combined with this round's fresh batch and shipped together
			// below — satisfies "upon successful connect, immediately
			// attempt to ship the pending vector" without a separate path.
		}

		batch := w.drainRound()
		if len(batch) == 0 && len(w.pending) == 0 {
			if !idle.Idle() {
				w.finalDrain()
				return
			}
			continue
		}
		idle.Reset()

		w.echoBatch(batch)
		w.pending = append(w.pending, batch...)
		w.sendPending(ctx)
	}
}

// Stop requests cooperative shutdown: the Worker finishes its current
// batch, drains each buffer once more with a bounded budget, then exits.
// Stop blocks until the loop has returned.
func (w *Worker) Stop() {
	w.once.Do(func() { w.shutdown.Store(true) })
	<-w.done
}

func (w *Worker) sleepBackoff(ctx context.Context, backoff *time.Duration) {
	jitter := 1 + (rand.Float64()*2-1)*reconnectJitter
	d := time.Duration(float64(*backoff) * jitter)
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	*backoff *= 2
	if *backoff > reconnectBackoffMax {
		*backoff = reconnectBackoffMax
	}
}

// echoBatch writes each newly-dequeued record's payload to the local echo
// sink exactly once, at the moment it enters w.pending. Echoing here rather
// than inside sendPending's retry loop means a record that survives a
// WouldBlock/reconnect and is retried several times is never re-echoed.
func (w *Worker) echoBatch(batch []EncodedRecord) {
	for _, r := range batch {
		if r.localEcho {
			w.echo.Echo(r.echo)
		}
	}
}

// drainRound pulls up to batchSize records from each buffer in rotation,
// advancing the rotation index, per section 4.4 step 1.
func (w *Worker) drainRound() []EncodedRecord {
	n := w.bank.NumBuffers()
	var batch []EncodedRecord
	for i := 0; i < n; i++ {
		idx := (w.rotation + i) % n
		buf := w.bank.Buffer(idx)
		for j := int64(0); j < w.batchSize; j++ {
			rec, ok := buf.TryDequeue()
			if !ok {
				break
			}
			rec.bufferIndex = idx
			batch = append(batch, rec)
		}
	}
	w.rotation = (w.rotation + 1) % n
	return batch
}

// sendPending assembles a scatter-gather vector from w.pending and writes
// it, recovering from short writes by re-slicing, per section 4.4 step 4.
func (w *Worker) sendPending(ctx context.Context) {
	for len(w.pending) > 0 {
		if w.shutdown.Load() {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		vec := make(net.Buffers, len(w.pending))
		for i, r := range w.pending {
			vec[i] = r.Bytes()
		}

		n, err := w.transport.WriteVectored(vec)
		if err == nil {
			w.markSentPrefix(len(w.pending))
			w.pending = w.pending[:0]
			return
		}

		switch {
		case err == ErrWouldBlock:
			w.reslicePending(n)
			return
		case IsEngineError(err, ErrCodeIOBrokenPipe):
			_ = w.transport.Disconnect()
			w.connState.Store(int32(workerDisconnected))
			w.reslicePending(n)
			w.enforcePendingCap()
			return
		default:
			w.ioErrors.Add(1)
			w.errorHandler("vectored write failed", err)
			w.markDroppedAll()
			w.pending = w.pending[:0]
			_ = w.transport.Disconnect()
			w.connState.Store(int32(workerDisconnected))
			return
		}
	}
}

// reslicePending discards the fully-written prefix of w.pending given n
// bytes were confirmed written, preserving the unwritten suffix for the
// next send attempt. A record is counted sent only once all of its bytes
// are written: a short write that lands inside a record's bytes leaves
// that record at the front of the next attempt. While the connection is
// still up, only its unwritten tail is kept, so the retry does not repeat
// bytes already on the stream; after a disconnect the record is resent
// whole on the new connection.
func (w *Worker) reslicePending(n int64) {
	remaining := n
	i := 0
	for i < len(w.pending) {
		l := int64(w.pending[i].Len())
		if remaining < l {
			break
		}
		remaining -= l
		i++
	}
	if i < len(w.pending) && remaining > 0 && workerConnState(w.connState.Load()) == workerConnected {
		w.pending[i].bytes = w.pending[i].bytes[remaining:]
	}
	w.markSentPrefix(i)
	w.pending = w.pending[i:]
}

func (w *Worker) markSentPrefix(count int) {
	for i := 0; i < count; i++ {
		w.bank.Buffer(w.pending[i].bufferIndex).MarkSent(1)
	}
}

func (w *Worker) markDroppedAll() {
	for _, r := range w.pending {
		w.bank.Buffer(r.bufferIndex).MarkDropped(1)
	}
}

// enforcePendingCap drops the oldest overflow once the pending vector
// exceeds its bounded size, per section 4.4's reconnect policy.
func (w *Worker) enforcePendingCap() {
	if len(w.pending) <= w.pendingCap {
		return
	}
	overflow := w.pending[:len(w.pending)-w.pendingCap]
	for _, r := range overflow {
		w.bank.Buffer(r.bufferIndex).MarkDropped(1)
	}
	w.pending = w.pending[len(w.pending)-w.pendingCap:]
}

// finalDrain performs a single bounded extra pass over every buffer at
// shutdown; anything still undelivered afterward counts as dropped.
func (w *Worker) finalDrain() {
	for round := 0; round < finalDrainRounds; round++ {
		batch := w.drainRound()
		w.echoBatch(batch)
		w.pending = append(w.pending, batch...)
	}
	if workerConnState(w.connState.Load()) == workerConnected && len(w.pending) > 0 {
		vec := make(net.Buffers, len(w.pending))
		for i, r := range w.pending {
			vec[i] = r.Bytes()
		}
		n, err := w.transport.WriteVectored(vec)
		if err == nil {
			w.markSentPrefix(len(w.pending))
			w.pending = w.pending[:0]
		} else {
			w.reslicePending(n)
		}
	}
	w.markDroppedAll()
	w.pending = nil
	_ = w.transport.Disconnect()
	_ = w.echo.Close()
}
