// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini implements a streaming chat session against the Gemini
// generateContent REST API.
//
// The session keeps the conversation history itself, the same way the
// official SDK chat object does: each call sends the whole history plus the
// new user turn, and the turn is committed only once its stream completes.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/provider"
	"github.com/jeranaias/procubot-tui/internal/sse"
)

// Configuration constants for the Gemini API.
const (
	// DefaultBaseURL is the base URL for the Generative Language API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model used when the config names none.
	DefaultModel = "gemini-3-pro-preview"

	// APIVersion is the REST API version path segment.
	APIVersion = "v1beta"

	roleUser  = "user"
	roleModel = "model"
)

// Client is a Gemini chat session. It implements provider.Session.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	temperature  *float64
	search       bool
	maxRetries   int
	httpClient   *http.Client

	mu      sync.Mutex
	history []Content
}

// New is the provider.Factory for Gemini.
func New(cfg provider.Config) (provider.Session, error) {
	return NewClient(cfg)
}

// NewClient creates a Gemini session from the config.
// Returns provider.ErrMissingCredential when no API key is configured.
func NewClient(cfg provider.Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, provider.ErrMissingCredential
	}
	c := &Client{
		apiKey:       key,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		search:       cfg.Search,
		maxRetries:   cfg.MaxRetries,
		httpClient:   provider.NewStreamingClient(cfg.ConnectTimeout),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	logging.L().Debug("gemini_session_created",
		zap.String("model", c.model),
		zap.Bool("search", c.search),
		zap.String("key_fingerprint", provider.KeyFingerprint(key)),
	)
	return c, nil
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// History returns a copy of the committed conversation history.
func (c *Client) History() []Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Content(nil), c.history...)
}

// =============================================================================
// STREAMING
// =============================================================================

// SendStreaming implements provider.Session.
//
// The returned Stream must be ranged over to release the response body.
func (c *Client) SendStreaming(ctx context.Context, payload provider.Payload) (provider.Stream, error) {
	userTurn := toContent(roleUser, payload.AsParts())
	body, err := json.Marshal(c.buildRequest(userTurn))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.streamURL()
	start := time.Now()
	resp, err := provider.DoWithRetry(ctx, c.httpClient, c.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	logging.L().Debug("gemini_response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp.StatusCode, provider.ReadErrorBody(resp), resp.Header.Get("Retry-After"))
	}

	return func(yield func(provider.Fragment, error) bool) {
		defer resp.Body.Close()

		text, err := c.consume(ctx, resp.Body, yield)
		switch {
		case errors.Is(err, errStopped):
			// Abandoned turns never become history
		case err != nil:
			if text != "" {
				err = &provider.StreamError{Partial: text, Err: err}
			}
			yield(provider.Fragment{}, err)
		default:
			c.commit(userTurn, text)
		}
	}, nil
}

// consume reads SSE chunks and yields fragments until the stream ends.
// Returns the accumulated text; errStopped when the consumer stopped early.
func (c *Client) consume(ctx context.Context, body io.Reader, yield func(provider.Fragment, error) bool) (string, error) {
	reader := sse.NewReader(body)
	var acc strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return acc.String(), err
		}

		ev, err := reader.ReadEvent()
		if errors.Is(err, io.EOF) {
			return acc.String(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return acc.String(), ctxErr
			}
			return acc.String(), fmt.Errorf("%w: %w", provider.ErrUnavailable, err)
		}

		var chunk GenerateResponse
		if err := json.Unmarshal(ev.Data, &chunk); err != nil {
			// Skip malformed chunks
			logging.L().Warn("gemini_malformed_chunk", zap.Error(err))
			continue
		}
		if chunk.Error != nil {
			return acc.String(), &APIError{Code: chunk.Error.Code, Status: chunk.Error.Status, Message: chunk.Error.Message}
		}
		if reason := chunk.BlockReason(); reason != "" {
			return acc.String(), &BlockedError{Reason: reason}
		}

		frag := provider.Fragment{TextDelta: chunk.Text(), Citations: chunk.Citations()}
		if frag.TextDelta == "" && len(frag.Citations) == 0 {
			continue
		}
		acc.WriteString(frag.TextDelta)
		if !yield(frag, nil) {
			return acc.String(), errStopped
		}
	}
}

// errStopped marks a stream abandoned by its consumer. It is never yielded.
var errStopped = errors.New("gemini: stream stopped by consumer")

// commit appends a completed turn to the history.
func (c *Client) commit(userTurn Content, modelText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, userTurn, Content{
		Role:  roleModel,
		Parts: []Part{{Text: modelText}},
	})
}

// buildRequest assembles the request body: history plus the new turn.
func (c *Client) buildRequest(userTurn Content) GenerateRequest {
	c.mu.Lock()
	contents := make([]Content, 0, len(c.history)+1)
	contents = append(contents, c.history...)
	c.mu.Unlock()
	contents = append(contents, userTurn)

	req := GenerateRequest{Contents: contents}
	if c.systemPrompt != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: c.systemPrompt}}}
	}
	if c.temperature != nil {
		req.GenerationConfig = &GenerationConfig{Temperature: c.temperature}
	}
	if c.search {
		req.Tools = []Tool{{GoogleSearch: &struct{}{}}}
	}
	return req
}

func (c *Client) streamURL() string {
	return fmt.Sprintf("%s/%s/models/%s:streamGenerateContent?alt=sse",
		c.baseURL, APIVersion, url.PathEscape(c.model))
}

// setHeaders sets the required headers for Gemini API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", "procubot/1.0")
}

// toContent converts provider parts to a wire Content.
func toContent(role string, parts []provider.Part) Content {
	out := Content{Role: role, Parts: make([]Part, 0, len(parts))}
	for _, p := range parts {
		if p.IsInline() {
			out.Parts = append(out.Parts, Part{InlineData: &Blob{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data}})
			continue
		}
		out.Parts = append(out.Parts, Part{Text: p.Text})
	}
	return out
}
