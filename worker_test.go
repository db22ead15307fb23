// worker_test.go: integration tests for the Worker state machine against a
// fake Transport double.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agilira/dlt/internal/ringbank"
)

// fakeTransport is an in-memory Transport double: WriteVectored always
// succeeds unless primed with an error, and every written frame's bytes are
// recorded in delivery order for assertions.
type fakeTransport struct {
	mu         sync.Mutex
	connectErr error
	writeErr   error
	received   [][]byte
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeTransport) SetSendBuffer(bytes int) error { return nil }

func (f *fakeTransport) WriteVectored(bufs net.Buffers) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		err := f.writeErr
		f.writeErr = nil
		return 0, err
	}
	var total int64
	for _, b := range bufs {
		f.received = append(f.received, append([]byte(nil), b...))
		total += int64(len(b))
	}
	return total, nil
}

func (f *fakeTransport) Disconnect() error { return nil }

func (f *fakeTransport) setConnectErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

func (f *fakeTransport) snapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.received))
	copy(out, f.received)
	return out
}

func newTestWorker(t *testing.T, numBuffers int, bufferSize []int64, batchSize int, mode OverflowMode, transport Transport) (*Worker, *ringbank.Bank[EncodedRecord], *ControlSurface) {
	t.Helper()
	cfg := (&Config{
		NumBuffers:   numBuffers,
		BufferSize:   bufferSize,
		BatchSize:    batchSize,
		OverflowMode: mode,
	}).withDefaults()

	bank, err := ringbank.NewBank[EncodedRecord](cfg.BufferSize, cfg.OverflowMode, cfg.TimeoutMs*int64(time.Millisecond), nil)
	require.NoError(t, err)

	control := newControlSurface(bank, false)
	worker := newWorker(cfg, bank, transport, control)
	return worker, bank, control
}

func enqueueMessages(t *testing.T, bank *ringbank.Bank[EncodedRecord], idx int, prefix string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		msg := fmt.Sprintf("%s%d", prefix, i)
		bank.Buffer(idx).TryEnqueue(func(slot *EncodedRecord) {
			*slot = EncodedRecord{bytes: []byte(msg)}
		})
	}
}

// enqueueEchoMessages enqueues n records with local_echo forced on, each
// with distinct echo payload text so a test can count exactly how many
// times each one reached the echo sink.
func enqueueEchoMessages(t *testing.T, bank *ringbank.Bank[EncodedRecord], idx int, prefix string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		msg := fmt.Sprintf("%s%d", prefix, i)
		bank.Buffer(idx).TryEnqueue(func(slot *EncodedRecord) {
			*slot = EncodedRecord{bytes: []byte(msg), echo: []byte(msg), localEcho: true}
		})
	}
}

// safeEchoBuffer is a mutex-guarded io.Writer standing in for the local
// echo sink so a test can count writes without lethe's rotation machinery.
type safeEchoBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *safeEchoBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, string(p))
	return len(p), nil
}

func (b *safeEchoBuffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func TestWorker_DeliversAllRecordsInOrder(t *testing.T) {
	transport := &fakeTransport{}
	worker, bank, control := newTestWorker(t, 1, []int64{32}, 4, DropNewest, transport)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	defer func() { worker.Stop(); cancel() }()

	enqueueMessages(t, bank, 0, "m", 10)

	require.Eventually(t, func() bool {
		return len(transport.snapshot()) >= 10
	}, 2*time.Second, 5*time.Millisecond)

	received := transport.snapshot()
	for i := 0; i < 10; i++ {
		require.Equal(t, fmt.Sprintf("m%d", i), string(received[i]))
	}

	require.Eventually(t, func() bool {
		_, _, sent := control.TotalStats()
		return sent == 10
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWorker_ReplaysPendingAfterTransientDisconnect(t *testing.T) {
	transport := &fakeTransport{}
	transport.setConnectErr(errors.New("collector not listening yet"))

	worker, bank, _ := newTestWorker(t, 1, []int64{1024}, 16, DropNewest, transport)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	defer func() { worker.Stop(); cancel() }()

	enqueueMessages(t, bank, 0, "m", 5)
	time.Sleep(30 * time.Millisecond)
	transport.setConnectErr(nil)
	enqueueMessages(t, bank, 0, "n", 5) // second batch: "n0".."n4"

	require.Eventually(t, func() bool {
		return len(transport.snapshot()) >= 10
	}, 2*time.Second, 5*time.Millisecond)

	received := transport.snapshot()
	// What matters for a reconnect-replay guarantee is that nothing was
	// silently lost and the first batch's five records still precede the
	// second batch's five in delivery order.
	require.Len(t, received, 10)
	for i := 0; i < 5; i++ {
		require.Equal(t, fmt.Sprintf("m%d", i), string(received[i]))
		require.Equal(t, fmt.Sprintf("n%d", i), string(received[5+i]))
	}
}

func TestWorker_OverwriteEvictsOldestUnderSustainedDisconnect(t *testing.T) {
	transport := &fakeTransport{}
	transport.setConnectErr(errors.New("permanently unreachable"))

	worker, bank, control := newTestWorker(t, 1, []int64{8}, 4, Overwrite, transport)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	enqueueMessages(t, bank, 0, "m", 100)

	require.Eventually(t, func() bool {
		enqueued, _, _ := control.TotalStats()
		return enqueued == 100
	}, 2*time.Second, 5*time.Millisecond)

	// A handful of records may still sit in the Worker's bounded pending
	// vector (neither sent nor dropped yet) while the connection stays
	// down; Stop's final drain resolves every one of them, at which point
	// the accounting invariant must hold exactly.
	worker.Stop()
	cancel()

	enqueued, dropped, sent := control.TotalStats()
	require.Equal(t, int64(100), enqueued)
	require.Equal(t, enqueued, dropped+sent, "invariant: enqueued == sent + dropped once the Worker has stopped")
	require.Zero(t, len(transport.snapshot()), "a permanently unreachable transport should deliver nothing")
}

func TestWorker_EchoesEachRecordExactlyOnceAcrossRetries(t *testing.T) {
	transport := &fakeTransport{}
	worker, bank, _ := newTestWorker(t, 1, []int64{32}, 16, DropNewest, transport)

	echoBuf := &safeEchoBuffer{}
	worker.echo = &localEchoWriter{w: echoBuf}

	// Force the first write attempt to report WouldBlock so the pending
	// vector survives into a second sendPending call on the very same
	// records, which is exactly the retry path that used to re-echo them.
	transport.mu.Lock()
	transport.writeErr = ErrWouldBlock
	transport.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	defer func() { worker.Stop(); cancel() }()

	enqueueEchoMessages(t, bank, 0, "e", 3)

	require.Eventually(t, func() bool {
		return len(transport.snapshot()) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	// Give the Worker a little longer to settle in case any stray extra
	// sendPending pass would have produced a duplicate echo.
	time.Sleep(20 * time.Millisecond)

	lines := echoBuf.snapshot()
	for i := 0; i < 3; i++ {
		msg := fmt.Sprintf("e%d", i)
		count := 0
		for _, l := range lines {
			if l == msg {
				count++
			}
		}
		require.Equal(t, 1, count, "record %q echoed %d times, want exactly 1", msg, count)
	}
}

func TestWorker_BrokenPipeTriggersReconnect(t *testing.T) {
	transport := &fakeTransport{}
	worker, bank, _ := newTestWorker(t, 1, []int64{32}, 4, DropNewest, transport)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	defer func() { worker.Stop(); cancel() }()

	enqueueMessages(t, bank, 0, "m", 1)
	require.Eventually(t, func() bool { return len(transport.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)

	transport.mu.Lock()
	transport.writeErr = wrapEngineError(errors.New("broken pipe"), ErrCodeIOBrokenPipe, "simulated")
	transport.mu.Unlock()

	enqueueMessages(t, bank, 0, "n", 1)

	// The Worker should reconnect (Connect always succeeds here) and retry
	// the write rather than getting stuck.
	require.Eventually(t, func() bool { return len(transport.snapshot()) >= 2 }, 2*time.Second, 5*time.Millisecond)
}
