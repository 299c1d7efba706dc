// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/procubot-tui/internal/provider"
)

// APIError is an error returned by the Gemini API.
type APIError struct {
	HTTPStatus int    // HTTP status of the response, 0 for in-stream errors
	Code       int    // error.code from the body
	Status     string // error.status, e.g. RESOURCE_EXHAUSTED
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini error [%s] (HTTP %d): %s", e.Status, e.code(), e.Message)
	}
	return fmt.Sprintf("gemini error (HTTP %d): %s", e.code(), e.Message)
}

func (e *APIError) code() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return e.Code
}

// Is maps the API error onto the shared provider sentinels.
func (e *APIError) Is(target error) bool {
	code := e.code()
	msg := strings.ToLower(e.Message)
	switch target {
	case provider.ErrRateLimited:
		return code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
	case provider.ErrInvalidCredential:
		return code == http.StatusUnauthorized ||
			e.Status == "UNAUTHENTICATED" ||
			strings.Contains(msg, "api key not valid") ||
			(code == http.StatusForbidden && strings.Contains(msg, "api key"))
	case provider.ErrUnsupportedMIME:
		return code == http.StatusBadRequest &&
			(strings.Contains(msg, "mime") || strings.Contains(msg, "unsupported file"))
	case provider.ErrUnavailable:
		return code >= 500 || e.Status == "UNAVAILABLE" || e.Status == "INTERNAL"
	}
	return false
}

// parseErrorResponse converts a non-200 response body into an error.
func parseErrorResponse(status int, body []byte, retryAfter string) error {
	apiErr := &APIError{HTTPStatus: status, Message: http.StatusText(status)}

	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Code = parsed.Error.Code
		apiErr.Status = parsed.Error.Status
		apiErr.Message = parsed.Error.Message
	} else if len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if status == http.StatusTooManyRequests {
		return &provider.RateLimitError{
			RetryAfter: provider.ParseRetryAfter(retryAfter),
			Message:    apiErr.Error(),
		}
	}
	return apiErr
}

// BlockedError reports a prompt or response withheld by a safety filter.
type BlockedError struct {
	Reason string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return "gemini: response blocked: " + e.Reason
}

// Is allows BlockedError to be compared with provider.ErrSafetyBlocked.
func (e *BlockedError) Is(target error) bool {
	return target == provider.ErrSafetyBlocked
}
