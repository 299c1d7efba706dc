// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging owns the process-wide structured logger.
//
// The TUI draws on the terminal, so logs go to a file by default. Event
// names are snake_case (turn_started, stream_failed) with typed zap fields.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink values accepted by Init besides "file:<path>".
const (
	SinkStderr  = "stderr"
	SinkDiscard = "discard"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// L returns the current logger. It is a no-op logger until Init is called.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Set replaces the global logger. Used by tests to capture output.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	log = l
	mu.Unlock()
}

// ParseLevel maps debug|info|warn|error to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init builds the global logger.
//
// sink is "stderr", "discard" or "file:<path>". When the log file cannot be
// opened Init falls back to stderr and returns the error so the caller can
// report it.
func Init(level, sink string) error {
	lvl := ParseLevel(level)

	var (
		ws      zapcore.WriteSyncer
		openErr error
	)
	switch {
	case sink == SinkDiscard:
		Set(zap.NewNop())
		return nil
	case strings.HasPrefix(sink, "file:"):
		path := strings.TrimPrefix(sink, "file:")
		f, err := openLogFile(path)
		if err != nil {
			openErr = fmt.Errorf("failed to open log file %s: %w", path, err)
			ws = zapcore.Lock(os.Stderr)
		} else {
			ws = zapcore.AddSync(f)
		}
	default:
		ws = zapcore.Lock(os.Stderr)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, lvl)
	Set(zap.New(core, zap.AddCaller()).Named("procubot"))
	return openErr
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}
