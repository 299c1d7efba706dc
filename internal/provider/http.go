// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultConnectTimeout bounds the wait for response headers.
	DefaultConnectTimeout = 60 * time.Second

	// MaxErrorBodySize is the largest error body read from a failed request.
	MaxErrorBodySize = 1 << 20

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Streaming requests have no client timeout; they are bounded by context.
var sharedTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: DefaultConnectTimeout,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// NewStreamingClient returns an HTTP client for streaming requests. A
// non-zero headerTimeout replaces the default wait for response headers.
func NewStreamingClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 || headerTimeout == DefaultConnectTimeout {
		return &http.Client{Transport: sharedTransport}
	}
	tr := sharedTransport.Clone()
	tr.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: tr}
}

// ReadErrorBody reads at most MaxErrorBodySize bytes of a failed response.
func ReadErrorBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
	return body
}

// Backoff returns the exponential delay before retry attempt n (n >= 1).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay
}

// IsRetryableStatus reports whether a status is worth retrying before any
// content has streamed.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry sends a request built by newReq, retrying retryable statuses
// and connection errors up to maxRetries extra times with exponential
// backoff. The caller owns the returned response body. When every attempt
// fails with a status, the last non-OK response is returned with a nil error
// so the caller can map it.
func DoWithRetry(ctx context.Context, client *http.Client, maxRetries int, newReq func() (*http.Request, error)) (*http.Response, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(Backoff(attempt)):
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		if attempt < maxRetries && IsRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

// KeyFingerprint returns a short SHA-256 fingerprint of a credential for
// logging. SECURITY: Never log key fragments.
func KeyFingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:4])
}
