// transport.go: stream-socket abstraction with vectored, non-blocking writes
//
// net.Buffers.WriteTo is the idiomatic Go vectored-write primitive — the
// runtime maps it to writev(2) for *net.UnixConn and *net.TCPConn. No pack
// example offers a nicer scatter-gather abstraction, so this is the one
// intentionally stdlib-only component (see DESIGN.md).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"context"
	"errors"
	"net"
	"time"
)

// Transport is the Worker's sole I/O boundary, polymorphic over a local
// stream socket and TCP, per section 4.5.
type Transport interface {
	// Connect establishes the connection and applies non-blocking-friendly
	// defaults.
	Connect(ctx context.Context) error

	// SetSendBuffer requests a socket send buffer size, best-effort.
	SetSendBuffer(bytes int) error

	// WriteVectored issues a single scatter-gather write. Partial writes
	// are surfaced as the smaller byte count, not an error.
	WriteVectored(bufs net.Buffers) (int64, error)

	// Disconnect idempotently closes the connection.
	Disconnect() error
}

// writeTimeout bounds a single WriteVectored call so the Worker's
// "non-blocking is mandatory" requirement holds even though net.Conn has
// no raw EWOULDBLOCK signal: a short write deadline is the idiomatic Go
// equivalent, and its expiry is treated as WouldBlock.
const writeTimeout = 20 * time.Millisecond

// ErrWouldBlock is returned by WriteVectored when the write deadline
// elapses without completing, standing in for the classic WouldBlock
// signal Go's net package does not expose directly.
var ErrWouldBlock = errors.New("dlt: transport write would block")

type streamTransport struct {
	network string
	address string
	sendBuf int
	conn    net.Conn
}

// NewUnixTransport dials a local stream socket at path.
func NewUnixTransport(path string) Transport {
	return &streamTransport{network: "unix", address: path}
}

// NewTCPTransport dials addr (host:port) over TCP, provided for parity
// with the collector-to-viewer TCP endpoint described in section 6; the
// Worker's Transport abstraction is polymorphic over both by design.
func NewTCPTransport(addr string) Transport {
	return &streamTransport{network: "tcp", address: addr}
}

func (t *streamTransport) Connect(ctx context.Context) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, t.network, t.address)
	if err != nil {
		return wrapEngineError(err, ErrCodeTransportDial, "connect failed")
	}
	t.conn = conn
	if t.sendBuf > 0 {
		_ = t.SetSendBuffer(t.sendBuf)
	}
	return nil
}

func (t *streamTransport) SetSendBuffer(bytes int) error {
	t.sendBuf = bytes
	if t.conn == nil {
		return nil
	}
	switch c := t.conn.(type) {
	case *net.UnixConn:
		if err := c.SetWriteBuffer(bytes); err != nil {
			return wrapEngineError(err, ErrCodeTransportOption, "set send buffer failed")
		}
		return nil
	case *net.TCPConn:
		if err := c.SetWriteBuffer(bytes); err != nil {
			return wrapEngineError(err, ErrCodeTransportOption, "set send buffer failed")
		}
		return nil
	default:
		return nil
	}
}

func (t *streamTransport) WriteVectored(bufs net.Buffers) (int64, error) {
	if t.conn == nil {
		return 0, wrapEngineError(errNotConnected, ErrCodeIOOther, "write on disconnected transport")
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, wrapEngineError(err, ErrCodeIOOther, "set write deadline failed")
	}

	n, err := bufs.WriteTo(t.conn)
	if err == nil {
		return n, nil
	}

	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return n, ErrWouldBlock
	}
	if isBrokenConnection(err) {
		return n, wrapEngineError(err, ErrCodeIOBrokenPipe, "connection broken")
	}
	return n, wrapEngineError(err, ErrCodeIOOther, "vectored write failed")
}

func (t *streamTransport) Disconnect() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		return wrapEngineError(err, ErrCodeIOOther, "disconnect failed")
	}
	return nil
}

var errNotConnected = errors.New("dlt: transport not connected")

func isBrokenConnection(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return !opErr.Timeout()
	}
	return false
}
