// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error variables shared by every provider. Concrete clients wrap these with
// %w so callers can classify with errors.Is.
var (
	// ErrMissingCredential indicates no API key was found.
	ErrMissingCredential = errors.New("API key not configured")

	// ErrInvalidCredential indicates the API key was rejected.
	ErrInvalidCredential = errors.New("API key invalid")

	// ErrRateLimited indicates a rate limit or exhausted quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrSafetyBlocked indicates the prompt or response was blocked by a
	// content safety filter.
	ErrSafetyBlocked = errors.New("blocked by safety filter")

	// ErrUnsupportedMIME indicates an attachment type the model cannot read.
	ErrUnsupportedMIME = errors.New("unsupported mime type")

	// ErrUnavailable indicates a transient upstream failure (5xx, overloaded).
	ErrUnavailable = errors.New("model unavailable")

	// ErrTimeout indicates no fragment arrived within the allowed wait.
	ErrTimeout = errors.New("response timed out")
)

// =============================================================================
// STREAM ERROR
// =============================================================================

// StreamError is an error that occurred mid-stream, preserving how much
// content arrived before it.
type StreamError struct {
	Partial string // Content received before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// RATE LIMIT ERROR
// =============================================================================

// RateLimitError represents a rate limit error with retry information.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	msg := "rate limited"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %v)", e.RetryAfter)
	}
	return msg
}

// Is allows RateLimitError to be compared with ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an
// HTTP date. Returns 0 when absent or unparseable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
