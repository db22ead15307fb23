// config_loader.go: JSON configuration loading and hot-reload
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package dlt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// validateFilePath rejects empty paths and directory traversal attempts
// before a path is handed to os.ReadFile.
func validateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("empty file path")
	}
	clean := filepath.Clean(filename)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("path contains directory traversal: %s", filename)
	}
	return nil
}

// jsonConfig mirrors the recognized option set of spec.md section 6.
type jsonConfig struct {
	NumBuffers         int     `json:"num_buffers"`
	BufferSize         []int64 `json:"buffer_size"`
	BatchSize          int     `json:"batch_size"`
	OverflowMode       string  `json:"overflow_mode"`
	TimeoutMs          int64   `json:"timeout_ms"`
	SocketSendBufBytes int     `json:"socket_send_buf_bytes"`
	SocketPath         string  `json:"socket_path"`
	Network            string  `json:"network"`
	EcuID              string  `json:"ecu_id"`
	LocalEchoDefault   bool    `json:"local_echo_default"`
	LocalEchoPath      string  `json:"local_echo_path"`
}

func parseOverflowMode(s string) OverflowMode {
	switch strings.ToLower(s) {
	case "drop_newest", "dropnewest":
		return DropNewest
	case "block_with_timeout", "blockwithtimeout", "block":
		return BlockWithTimeout
	case "overwrite", "":
		return Overwrite
	default:
		return Overwrite
	}
}

// LoadConfigFromJSON loads a Config from a JSON file using spec.md section
// 6's recognized option set. Fields absent from the file keep Go's zero
// value and are filled in later by Config.withDefaults.
func LoadConfigFromJSON(filename string) (*Config, error) {
	var cfg Config

	if err := validateFilePath(filename); err != nil {
		return &cfg, fmt.Errorf("invalid file path: %w", err)
	}

	data, err := os.ReadFile(filename) // #nosec G304 -- path validated above
	if err != nil {
		return &cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return &cfg, fmt.Errorf("failed to parse JSON config: %w", err)
	}

	cfg.NumBuffers = jc.NumBuffers
	cfg.BufferSize = jc.BufferSize
	cfg.BatchSize = jc.BatchSize
	cfg.OverflowMode = parseOverflowMode(jc.OverflowMode)
	cfg.TimeoutMs = jc.TimeoutMs
	cfg.SocketSendBufBytes = jc.SocketSendBufBytes
	cfg.SocketPath = jc.SocketPath
	cfg.Network = jc.Network
	cfg.EcuID = jc.EcuID
	cfg.LocalEchoDefault = jc.LocalEchoDefault
	cfg.LocalEchoPath = jc.LocalEchoPath

	return &cfg, nil
}

// ConfigWatcher hot-reloads overflow_mode, timeout_ms and
// socket_send_buf_bytes from a JSON file into a running Engine's Control
// Surface, per SPEC_FULL.md section 4.6. No other fields are mutated at
// runtime: num_buffers/batch_size/socket_path/network are fixed once the
// Bank and Transport are constructed.
type ConfigWatcher struct {
	path    string
	engine  *Engine
	watcher *argus.Watcher
	mu      sync.Mutex
	running bool
}

// WatchConfigFile starts an argus.Watcher on path, applying
// overflow_mode/timeout_ms/socket_send_buf_bytes changes to engine's
// Control Surface as they're written, and returns a stop function.
func (e *Engine) WatchConfigFile(path string) (stop func() error, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, fmt.Errorf("config file does not exist: %w", statErr)
	}

	cfg := argus.Config{
		PollInterval:         2 * time.Second,
		OptimizationStrategy: argus.OptimizationAuto,
		ErrorHandler: func(watchErr error, watchPath string) {
			handleError(wrapEngineError(watchErr, ErrCodeInvalidConfig,
				fmt.Sprintf("config watcher error for %s", watchPath)))
		},
	}

	w := &ConfigWatcher{path: path, engine: e, watcher: argus.New(*cfg.WithDefaults())}

	watchErr := w.watcher.Watch(path, func(event argus.ChangeEvent) {
		loaded, loadErr := LoadConfigFromJSON(event.Path)
		if loadErr != nil {
			handleError(wrapEngineError(loadErr, ErrCodeInvalidConfig,
				fmt.Sprintf("failed to reload config from %s", event.Path)))
			return
		}
		e.control.SetOverflowMode(loaded.OverflowMode)
		if loaded.TimeoutMs > 0 {
			e.control.SetTimeoutMs(loaded.TimeoutMs)
		}
		if loaded.SocketSendBufBytes > 0 {
			e.worker.setSendBuffer(loaded.SocketSendBufBytes)
		}
	})
	if watchErr != nil {
		return nil, fmt.Errorf("failed to watch config file: %w", watchErr)
	}

	if startErr := w.watcher.Start(); startErr != nil {
		return nil, fmt.Errorf("failed to start config watcher: %w", startErr)
	}
	w.running = true

	return func() error {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.running {
			return nil
		}
		w.running = false
		return w.watcher.Stop()
	}, nil
}
