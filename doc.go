// Package dlt implements the producer-side half of a COVESA DLT-compatible
// logging pipeline: the in-process path from a log call to bytes on the
// wire, handed off to a collector process over a local stream socket.
//
// # Architecture
//
// Five pieces, leaves first:
//
//   - Encoder: a pure function from a LogRecord to DLT wire bytes.
//   - Buffer Bank (internal/ringbank): N bounded MPSC ring buffers holding
//     already-encoded records, with a Bank-wide overflow policy.
//   - Routing: a stateless function choosing which buffer a record lands
//     in, by level and round-robin counters.
//   - Worker: the single consumer goroutine that drains the Bank in fair
//     rotation, batches records, and issues vectored writes.
//   - Transport: a connect/write_vectored/disconnect abstraction over a
//     local stream socket or TCP.
//
// A Control Surface sits alongside these: atomic configuration (overflow
// mode, timeout) and per-buffer counters (enqueued, dropped, sent),
// queryable from any goroutine and optionally hot-reloaded from a JSON
// file via github.com/agilira/argus.
//
// # Quick start
//
//	eng, err := dlt.New(dlt.Config{SocketPath: "/tmp/dlt"})
//	if err != nil {
//		panic(err)
//	}
//	eng.Start()
//	defer eng.Close()
//
//	eng.Log(dlt.LogRecord{
//		AppID: "APP1", CtxID: "CTX1", Level: dlt.Info,
//		Payload: []byte("hello dlt"),
//	})
//
// Producers never block on I/O: Log routes to a buffer and returns once
// TryEnqueue resolves, which never waits on a lock under the default
// Overwrite and DropNewest policies (an Overwrite eviction may retry under
// contention) and is bounded-time under BlockWithTimeout. Delivery to the
// collector is best-effort beyond that point, observable through
// eng.Control().Stats and eng.Control().TotalStats.
package dlt
