// errors.go: error taxonomy for the DLT logging engine
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/agilira/go-errors"
)

// Error codes, one per taxonomy entry. Producer-visible EnqueueOutcome is
// never wrapped as one of these: it is a counted, synchronous return value,
// not an exceptional condition.
const (
	// Encoder errors (4.1): returned synchronously, record never enqueued.
	ErrCodeEncodeTooLarge errors.ErrorCode = "DLT_ENCODE_TOO_LARGE"
	ErrCodeEncodeBadID    errors.ErrorCode = "DLT_ENCODE_BAD_ID"

	// Transport/Worker errors (4.4/4.5): never surfaced to producers,
	// observed only via Control Surface counters or the error handler.
	ErrCodeIOBrokenPipe    errors.ErrorCode = "DLT_IO_BROKEN_PIPE"
	ErrCodeIOWouldBlock    errors.ErrorCode = "DLT_IO_WOULD_BLOCK"
	ErrCodeIORefused       errors.ErrorCode = "DLT_IO_REFUSED"
	ErrCodeIOOther         errors.ErrorCode = "DLT_IO_OTHER"
	ErrCodeTransportDial   errors.ErrorCode = "DLT_TRANSPORT_DIAL"
	ErrCodeTransportOption errors.ErrorCode = "DLT_TRANSPORT_OPTION"

	// Configuration errors (6): surfaced to the caller of New/Validate.
	ErrCodeInvalidConfig errors.ErrorCode = "DLT_INVALID_CONFIG"

	// Lifecycle.
	ErrCodeShutdown errors.ErrorCode = "DLT_SHUTDOWN"
)

// ErrorHandler receives errors the Worker cannot surface synchronously
// (transport failures, encode failures for local-echo-only paths, etc).
type ErrorHandler func(err *errors.Error)

var defaultErrorHandler ErrorHandler = func(err *errors.Error) {
	fmt.Fprintf(os.Stderr, "[dlt] %s: %s\n", err.Code, err.Message)
	if err.Cause != nil {
		fmt.Fprintf(os.Stderr, "[dlt] caused by: %v\n", err.Cause)
	}
}

var currentErrorHandler = defaultErrorHandler

// SetErrorHandler installs a custom handler for asynchronous engine errors.
// Passing nil restores the default stderr handler.
func SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		currentErrorHandler = defaultErrorHandler
		return
	}
	currentErrorHandler = handler
}

// GetErrorHandler returns the currently installed handler.
func GetErrorHandler() ErrorHandler { return currentErrorHandler }

func handleError(err *errors.Error) {
	if err == nil {
		return
	}
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context["goroutines"] = runtime.NumGoroutine()
	currentErrorHandler(err)
}

// newEngineError builds a tagged error with standard context, mirroring
// the shape every other taxonomy entry in this file uses.
func newEngineError(code errors.ErrorCode, message string) *errors.Error {
	return errors.New(code, message).
		WithSeverity("error").
		WithContext("component", "dlt_engine").
		WithContext("timestamp", time.Now().UTC())
}

func wrapEngineError(cause error, code errors.ErrorCode, message string) *errors.Error {
	return errors.Wrap(cause, code, message).
		WithSeverity("error").
		WithContext("component", "dlt_engine").
		WithContext("timestamp", time.Now().UTC())
}

// IsRetryableError reports whether err carries a retryable classification.
func IsRetryableError(err error) bool {
	if e, ok := err.(*errors.Error); ok {
		return e.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the taxonomy code from err, or "" if err is not
// one of this package's errors.
func GetErrorCode(err error) errors.ErrorCode {
	if e, ok := err.(*errors.Error); ok {
		return e.ErrorCode()
	}
	return ""
}

// IsEngineError reports whether err carries the given taxonomy code.
func IsEngineError(err error, code errors.ErrorCode) bool {
	return errors.HasCode(err, code)
}
