// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/provider"
)

// Configuration constants for OpenRouter API.
const (
	// DefaultOpenRouterURL is the base URL for OpenRouter API.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// DefaultModel is the model used when the config names none.
	DefaultModel = "google/gemini-2.5-pro"

	siteURL  = "https://github.com/jeranaias/procubot-tui"
	siteName = "ProcuBot"
)

// OpenRouterModels maps friendly names to full model identifiers.
var OpenRouterModels = map[string]string{
	"auto":       "openrouter/auto",
	"gemini-pro": "google/gemini-2.5-pro",
	"gpt4o":      "openai/gpt-4o",
}

// Error variables for OpenRouter-specific failures. Each also matches the
// corresponding provider sentinel through errors.Is.
var (
	// ErrInsufficientCredits indicates the account has insufficient credits.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// OpenRouterError represents an error from the OpenRouter API.
type OpenRouterError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *OpenRouterError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("OpenRouter error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("OpenRouter error (HTTP %d): %s", e.Status, e.Message)
}

// Is maps HTTP statuses and messages onto the provider sentinels.
func (e *OpenRouterError) Is(target error) bool {
	msg := strings.ToLower(e.Message)
	switch target {
	case provider.ErrInvalidCredential:
		return e.Status == http.StatusUnauthorized
	case provider.ErrRateLimited:
		return e.Status == http.StatusTooManyRequests || e.Status == http.StatusPaymentRequired
	case ErrInsufficientCredits:
		return e.Status == http.StatusPaymentRequired
	case ErrModelNotFound:
		return e.Status == http.StatusNotFound
	case provider.ErrSafetyBlocked:
		// 403 is returned when input is flagged by moderation
		return e.Status == http.StatusForbidden && strings.Contains(msg, "moderation")
	case provider.ErrUnsupportedMIME:
		return e.Status == http.StatusBadRequest &&
			(strings.Contains(msg, "mime") || strings.Contains(msg, "unsupported"))
	case provider.ErrUnavailable:
		return e.Status >= 500 || e.Status == http.StatusRequestTimeout
	}
	return false
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// OpenRouterClient is a chat session with OpenRouter. It implements
// provider.Session and keeps the conversation history between turns.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	temperature  *float64
	search       bool
	maxRetries   int
	httpClient   *http.Client

	mu      sync.Mutex
	history []ChatMessage
}

// New is the provider.Factory for OpenRouter.
func New(cfg provider.Config) (provider.Session, error) {
	return NewOpenRouterClient(cfg)
}

// NewOpenRouterClient creates a new OpenRouter session.
// Returns provider.ErrMissingCredential when no API key is configured.
func NewOpenRouterClient(cfg provider.Config) (*OpenRouterClient, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, provider.ErrMissingCredential
	}
	c := &OpenRouterClient{
		apiKey:       key,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		search:       cfg.Search,
		maxRetries:   cfg.MaxRetries,
		httpClient:   provider.NewStreamingClient(cfg.ConnectTimeout),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultOpenRouterURL
	}
	c.SetModel(cfg.Model)

	logging.L().Debug("openrouter_session_created",
		zap.String("model", c.model),
		zap.Bool("search", c.search),
		zap.String("api_key", c.APIKeyMasked()),
	)
	return c, nil
}

// SetModel sets the model, resolving friendly names.
func (c *OpenRouterClient) SetModel(model string) {
	if model == "" {
		c.model = DefaultModel
		return
	}
	if fullModel, ok := OpenRouterModels[model]; ok {
		c.model = fullModel
		return
	}
	c.model = model
}

// GetModel returns the current model.
func (c *OpenRouterClient) GetModel() string {
	return c.model
}

// APIKeyMasked returns a masked version of the API key for display.
// SECURITY: Never exposes API key fragments - use fingerprint instead.
func (c *OpenRouterClient) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), provider.KeyFingerprint(c.apiKey))
}

// History returns a copy of the committed conversation history.
func (c *OpenRouterClient) History() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatMessage(nil), c.history...)
}

// setHeaders sets the required headers for OpenRouter API requests.
func (c *OpenRouterClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "procubot/1.0")
	req.Header.Set("HTTP-Referer", siteURL)
	req.Header.Set("X-Title", siteName)
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func handleErrorResponse(statusCode int, body []byte, retryAfter string) error {
	orErr := &OpenRouterError{Status: statusCode, Message: http.StatusText(statusCode)}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		orErr.Message = apiErr.Error.Message
		orErr.Code = strings.Trim(string(apiErr.Error.Code), `"`)
	} else if len(body) > 0 {
		orErr.Message = strings.TrimSpace(string(body))
	}

	if statusCode == http.StatusTooManyRequests {
		return &provider.RateLimitError{
			RetryAfter: provider.ParseRetryAfter(retryAfter),
			Message:    orErr.Error(),
		}
	}
	return orErr
}
