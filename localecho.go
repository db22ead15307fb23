// localecho.go: optional duplication of record payloads to a local sink
//
// Per spec.md section 4.4 step 5, the Worker writes a record's payload to
// the local echo destination before the network send, and ignores any
// failure from that write. The default destination is stderr; configuring
// Config.LocalEchoPath switches to a rotating file via
// github.com/agilira/lethe, reusing the pack's rotation library instead of
// hand-rolling one.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"io"
	"os"
	"sync"

	"github.com/agilira/lethe"
)

// localEchoWriter is the Worker-owned sink for local_echo records. Writes
// are best-effort: a failed write is swallowed, never surfaced to producers
// or counted against delivery stats.
type localEchoWriter struct {
	mu sync.Mutex
	w  io.Writer
	// closer, if non-nil, is called on Close (the rotating-file path).
	closer io.Closer
}

// newLocalEchoWriter builds the echo sink described by cfg. An empty
// LocalEchoPath uses stderr; otherwise a lethe.Logger rotates the file at
// that path using its library defaults.
func newLocalEchoWriter(cfg *Config) *localEchoWriter {
	if cfg.LocalEchoPath == "" {
		return &localEchoWriter{w: os.Stderr}
	}
	rotator := &lethe.Logger{
		Filename: cfg.LocalEchoPath,
	}
	return &localEchoWriter{w: rotator, closer: rotator}
}

// Echo writes payload followed by a newline, ignoring any error: local
// echo is diagnostic, never a delivery guarantee.
func (l *localEchoWriter) Echo(payload []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(payload)
	_, _ = l.w.Write([]byte{'\n'})
}

// Close releases the rotating-file handle, if one was opened. Stderr is
// never closed.
func (l *localEchoWriter) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
