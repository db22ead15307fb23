// config_test.go: tests for Config defaulting and validation
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import "testing"

func TestConfig_WithDefaults_FillsEverything(t *testing.T) {
	var cfg Config
	resolved := cfg.withDefaults()

	if resolved.NumBuffers != 4 {
		t.Errorf("NumBuffers = %d, want 4", resolved.NumBuffers)
	}
	if resolved.BatchSize != 16 {
		t.Errorf("BatchSize = %d, want 16", resolved.BatchSize)
	}
	if resolved.TimeoutMs != 100 {
		t.Errorf("TimeoutMs = %d, want 100", resolved.TimeoutMs)
	}
	if resolved.SocketSendBufBytes != 65536 {
		t.Errorf("SocketSendBufBytes = %d, want 65536", resolved.SocketSendBufBytes)
	}
	if resolved.SocketPath != "/tmp/dlt" {
		t.Errorf("SocketPath = %q, want /tmp/dlt", resolved.SocketPath)
	}
	if resolved.Network != "unix" {
		t.Errorf("Network = %q, want unix", resolved.Network)
	}
	if resolved.EcuID != "ECU1" {
		t.Errorf("EcuID = %q, want ECU1", resolved.EcuID)
	}
	if len(resolved.BufferSize) != resolved.NumBuffers {
		t.Errorf("BufferSize has %d entries, want %d", len(resolved.BufferSize), resolved.NumBuffers)
	}
	if resolved.TimeFn == nil || resolved.ErrorHandler == nil {
		t.Error("TimeFn/ErrorHandler should never be nil after withDefaults")
	}
}

func TestConfig_WithDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{NumBuffers: 8, BatchSize: 32, SocketPath: "/tmp/custom"}
	resolved := cfg.withDefaults()

	if resolved.NumBuffers != 8 {
		t.Errorf("NumBuffers = %d, want 8", resolved.NumBuffers)
	}
	if resolved.BatchSize != 32 {
		t.Errorf("BatchSize = %d, want 32", resolved.BatchSize)
	}
	if resolved.SocketPath != "/tmp/custom" {
		t.Errorf("SocketPath = %q, want /tmp/custom", resolved.SocketPath)
	}
}

func TestConfig_Validate_RejectsOutOfRangeNumBuffers(t *testing.T) {
	cfg := Config{NumBuffers: -1}
	if err := cfg.Validate(); !IsEngineError(err, ErrCodeInvalidConfig) {
		t.Errorf("NumBuffers=-1: got %v, want ErrCodeInvalidConfig", err)
	}

	cfg = Config{NumBuffers: 100}
	if err := cfg.Validate(); !IsEngineError(err, ErrCodeInvalidConfig) {
		t.Errorf("NumBuffers=100: got %v, want ErrCodeInvalidConfig", err)
	}
}

func TestConfig_Validate_RejectsBadBatchSize(t *testing.T) {
	cfg := Config{NumBuffers: 4, BatchSize: IOVMax + 1}
	if err := cfg.Validate(); !IsEngineError(err, ErrCodeInvalidConfig) {
		t.Errorf("BatchSize too large: got %v, want ErrCodeInvalidConfig", err)
	}
}

func TestConfig_Validate_RejectsUnknownNetwork(t *testing.T) {
	cfg := Config{NumBuffers: 4, Network: "carrier-pigeon"}
	if err := cfg.Validate(); !IsEngineError(err, ErrCodeInvalidConfig) {
		t.Errorf("unknown network: got %v, want ErrCodeInvalidConfig", err)
	}
}

func TestConfig_Validate_RejectsLongEcuID(t *testing.T) {
	cfg := Config{NumBuffers: 4, EcuID: "TOOLONG"}
	if err := cfg.Validate(); !IsEngineError(err, ErrCodeInvalidConfig) {
		t.Errorf("7-char ecu_id: got %v, want ErrCodeInvalidConfig", err)
	}
}

func TestConfig_Validate_AcceptsZeroValue(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero-value Config should validate (defaults fill in later): %v", err)
	}
}

func TestConfig_Clone_IsIndependent(t *testing.T) {
	cfg := Config{NumBuffers: 4, BufferSize: []int64{8, 16}}
	clone := cfg.Clone()
	clone.BufferSize[0] = 999

	if cfg.BufferSize[0] == 999 {
		t.Error("Clone() shares backing array with the original BufferSize slice")
	}
}
