// record.go: the Encoder's input and output types
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import "time"

// MaxPayload is the default maximum LogRecord.Payload length in bytes.
// Payloads at or below this size are guaranteed to fit in a single
// encoded frame; larger ones are rejected at encode time.
const MaxPayload = 65000

// LogRecord is the structured input to Encode. AppID and CtxID are
// right-padded with NUL to 4 bytes; EcuID, if empty, falls back to the
// Engine's configured default.
type LogRecord struct {
	AppID string
	CtxID string
	EcuID string

	Level Level

	// Timestamp is captured at enqueue time via the configured TimeFn
	// (default timecache.CachedTime) if zero.
	Timestamp time.Time

	Payload  []byte
	ArgCount uint8

	// LocalEcho requests the Worker also write Payload to the local echo
	// sink before network send. Zero value defers to Config.LocalEchoDefault.
	LocalEcho *bool

	// BufferIndex overrides Routing Policy selection when ExplicitBuffer is
	// true. The zero value of BufferIndex is a valid buffer index, so the
	// override must be requested explicitly rather than inferred from
	// BufferIndex alone.
	BufferIndex    int
	ExplicitBuffer bool
}

func (r *LogRecord) localEcho(fallback bool) bool {
	if r.LocalEcho == nil {
		return fallback
	}
	return *r.LocalEcho
}

// EncodedRecord is the immutable, owned output of Encode. Once produced,
// its Bytes are never mutated; ownership passes to a Buffer slot on
// TryEnqueue, then to the Worker on TryDequeue.
type EncodedRecord struct {
	bytes []byte
	// echo, when non-nil, is the payload bytes to local-echo (distinct
	// from the wire bytes, which the collector side is not expected to
	// pretty-print).
	echo      []byte
	localEcho bool
	// bufferIndex records which Bank slot produced this record, so the
	// Worker can attribute MarkSent/MarkDropped to the right buffer after
	// a batch write resolves.
	bufferIndex int
}

// Bytes returns the encoded DLT frame.
func (e EncodedRecord) Bytes() []byte { return e.bytes }

// Len returns the encoded frame length.
func (e EncodedRecord) Len() int { return len(e.bytes) }
