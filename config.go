// config.go: process-wide configuration for the DLT logging engine
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"fmt"
	"time"

	timecache "github.com/agilira/go-timecache"

	"github.com/agilira/dlt/internal/ringbank"
)

// OverflowMode is re-exported so callers configuring a Config never need
// to import internal/ringbank directly.
type OverflowMode = ringbank.OverflowMode

const (
	Overwrite        = ringbank.Overwrite
	DropNewest       = ringbank.DropNewest
	BlockWithTimeout = ringbank.BlockWithTimeout
)

// Config is the recognized option set of spec.md section 6, plus the
// ambient fields (EcuID, error handler, local-echo destination) every
// production engine needs around that core.
type Config struct {
	// NumBuffers is N, the Bank size. Range [1,64]; default 4.
	NumBuffers int

	// BufferSize gives per-buffer capacity in slots. A missing or zero
	// entry repeats the previous explicit value (see ringbank.ResolveSizes);
	// an empty slice uses ringbank.DefaultBufferSize (2048) for every buffer.
	BufferSize []int64

	// BatchSize B bounds records drained per buffer per Worker round.
	// Range [1, IOVMax]; default 16.
	BatchSize int

	// OverflowMode selects Buffer Bank behavior when a buffer is full.
	// Default Overwrite.
	OverflowMode OverflowMode

	// TimeoutMs bounds BlockWithTimeout producer waits. Default 100.
	TimeoutMs int64

	// SocketSendBufBytes is the requested socket send buffer size,
	// applied best-effort at connect time. Default 65536.
	SocketSendBufBytes int

	// SocketPath is the local stream socket path the Worker dials.
	// Default "/tmp/dlt".
	SocketPath string

	// Network selects the Transport variant: "unix" (default) or "tcp".
	// When "tcp", SocketPath is interpreted as a host:port address.
	Network string

	// EcuID is the 4-byte ECU identifier stamped into the storage header
	// and, when WEID is set, the standard header.
	EcuID string

	// LocalEchoDefault is the local_echo value used for records that do
	// not set LogRecord.LocalEcho explicitly.
	LocalEchoDefault bool

	// LocalEchoPath, if set, routes local echo through a rotating
	// github.com/agilira/lethe.Logger instead of bare stderr.
	LocalEchoPath string

	// TimeFn overrides the timestamp source; default timecache.CachedTime.
	TimeFn func() time.Time

	// ErrorHandler receives asynchronous engine errors (transport
	// failures, etc). Defaults to the package-level handler.
	ErrorHandler ErrorHandler
}

// IOVMax bounds BatchSize; most platforms cap scatter-gather writes at
// 1024 iovecs (Linux UIO_MAXIOV).
const IOVMax = 1024

// withDefaults returns a copy of c with every unset field given a sensible
// default, per spec.md section 6's recognized option set.
func (c *Config) withDefaults() *Config {
	out := *c

	if out.NumBuffers <= 0 {
		out.NumBuffers = 4
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 16
	}
	if out.TimeoutMs <= 0 {
		out.TimeoutMs = 100
	}
	if out.SocketSendBufBytes <= 0 {
		out.SocketSendBufBytes = 65536
	}
	if out.SocketPath == "" {
		out.SocketPath = "/tmp/dlt"
	}
	if out.Network == "" {
		out.Network = "unix"
	}
	if out.EcuID == "" {
		out.EcuID = "ECU1"
	}
	if out.TimeFn == nil {
		out.TimeFn = timecache.CachedTime
	}
	if out.ErrorHandler == nil {
		out.ErrorHandler = GetErrorHandler()
	}
	out.BufferSize = ringbank.ResolveSizes(out.BufferSize, out.NumBuffers)

	return &out
}

// Validate checks Config for internal consistency, per spec.md section 6.
func (c *Config) Validate() error {
	if c.NumBuffers != 0 && (c.NumBuffers < ringbank.MinBuffers || c.NumBuffers > ringbank.MaxBuffers) {
		return newEngineError(ErrCodeInvalidConfig,
			fmt.Sprintf("num_buffers must be between %d and %d, got %d", ringbank.MinBuffers, ringbank.MaxBuffers, c.NumBuffers))
	}
	if c.BatchSize < 0 || c.BatchSize > IOVMax {
		return newEngineError(ErrCodeInvalidConfig,
			fmt.Sprintf("batch_size must be between 1 and %d, got %d", IOVMax, c.BatchSize))
	}
	if c.TimeoutMs < 0 {
		return newEngineError(ErrCodeInvalidConfig, "timeout_ms cannot be negative")
	}
	if c.Network != "" && c.Network != "unix" && c.Network != "tcp" {
		return newEngineError(ErrCodeInvalidConfig, fmt.Sprintf("unknown network %q", c.Network))
	}
	if len(c.EcuID) > 4 {
		return newEngineError(ErrCodeInvalidConfig, "ecu_id must be at most 4 characters")
	}
	return nil
}

// Clone returns a shallow copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.BufferSize = append([]int64(nil), c.BufferSize...)
	return &clone
}
