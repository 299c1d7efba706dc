// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/provider"
	"github.com/jeranaias/procubot-tui/internal/sse"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatMessage is one message in the chat completions format. Content is a
// plain string for text-only turns and a list of ContentPart otherwise.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", or "system"
	Content any    `json:"content"`
}

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type       string      `json:"type"` // text, image_url, file, input_audio
	Text       string      `json:"text,omitempty"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	File       *FilePart   `json:"file,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

// ImageURL references an image, here always as a data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// FilePart carries a document such as a PDF as a data URL.
type FilePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// InputAudio carries base64 audio.
type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// Plugin enables an OpenRouter plugin such as web search.
type Plugin struct {
	ID string `json:"id"`
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	Plugins     []Plugin      `json:"plugins,omitempty"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// URLCitation is a web search result citation.
type URLCitation struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content,omitempty"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// Annotation is attached to a delta when the web plugin cites a source.
type Annotation struct {
	Type        string       `json:"type"`
	URLCitation *URLCitation `json:"url_citation,omitempty"`
}

// StreamChunk represents a single chunk from the OpenRouter streaming response.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content     string       `json:"content"`
			Role        string       `json:"role,omitempty"`
			Annotations []Annotation `json:"annotations,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`

	// Error is set when the upstream provider fails mid-stream
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error,omitempty"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// GetFinishReason returns the finish reason if streaming is complete.
func (c *StreamChunk) GetFinishReason() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason
	}
	return ""
}

// Citations returns the url_citation annotations of the first choice.
func (c *StreamChunk) Citations() []model.Citation {
	if len(c.Choices) == 0 {
		return nil
	}
	var out []model.Citation
	for _, a := range c.Choices[0].Delta.Annotations {
		if a.Type != "url_citation" || a.URLCitation == nil || a.URLCitation.URL == "" {
			continue
		}
		out = append(out, model.Citation{Title: a.URLCitation.Title, URI: a.URLCitation.URL})
	}
	return out
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// SendStreaming implements provider.Session.
//
// The returned Stream must be ranged over to release the response body.
func (c *OpenRouterClient) SendStreaming(ctx context.Context, payload provider.Payload) (provider.Stream, error) {
	userTurn := toChatMessage(payload)
	bodyBytes, err := json.Marshal(c.buildRequest(userTurn))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	resp, err := provider.DoWithRetry(ctx, c.httpClient, c.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, handleErrorResponse(resp.StatusCode, provider.ReadErrorBody(resp), resp.Header.Get("Retry-After"))
	}

	return func(yield func(provider.Fragment, error) bool) {
		defer resp.Body.Close()

		text, err := c.processStream(ctx, resp.Body, yield)
		switch {
		case errors.Is(err, errStopped):
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

var errStopped = errors.New("cloud: stream stopped by consumer")

// processStream reads and processes the SSE stream.
func (c *OpenRouterClient) processStream(ctx context.Context, body io.Reader, yield func(provider.Fragment, error) bool) (string, error) {
	reader := sse.NewReader(body)
	var acc strings.Builder

	for {
		select {
		case <-ctx.Done():
			return acc.String(), ctx.Err()
		default:
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

		// Check for [DONE] signal
		if ev.IsDone() {
			return acc.String(), nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(ev.Data, &chunk); err != nil {
			// Skip malformed chunks
			logging.L().Warn("openrouter_malformed_chunk", zap.Error(err))
			continue
		}
		if chunk.Error != nil {
			status := http.StatusBadGateway
			var code int
			if json.Unmarshal(chunk.Error.Code, &code) == nil && code >= 400 {
				status = code
			}
			return acc.String(), &OpenRouterError{Status: status, Message: chunk.Error.Message}
		}
		if chunk.GetFinishReason() == "content_filter" {
			return acc.String(), fmt.Errorf("%w: content_filter", provider.ErrSafetyBlocked)
		}

		frag := provider.Fragment{TextDelta: chunk.GetContent(), Citations: chunk.Citations()}
		if frag.TextDelta == "" && len(frag.Citations) == 0 {
			continue
		}
		acc.WriteString(frag.TextDelta)
		if !yield(frag, nil) {
			return acc.String(), errStopped
		}
	}
}

// commit appends a completed turn to the history.
func (c *OpenRouterClient) commit(userTurn ChatMessage, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, userTurn, ChatMessage{Role: "assistant", Content: text})
}

// buildRequest assembles system prompt, history and the new turn.
func (c *OpenRouterClient) buildRequest(userTurn ChatMessage) ChatRequest {
	c.mu.Lock()
	messages := make([]ChatMessage, 0, len(c.history)+2)
	if c.systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, c.history...)
	c.mu.Unlock()
	messages = append(messages, userTurn)

	req := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.temperature,
	}
	if c.search {
		req.Plugins = []Plugin{{ID: "web"}}
	}
	return req
}

// toChatMessage converts a payload into a user message. Text payloads stay
// plain strings; parts become typed content parts by MIME type.
func toChatMessage(payload provider.Payload) ChatMessage {
	if text, ok := payload.Text(); ok {
		return ChatMessage{Role: "user", Content: text}
	}
	parts, _ := payload.Parts()
	content := make([]ContentPart, 0, len(parts))
	docN := 0
	for _, p := range parts {
		if !p.IsInline() {
			content = append(content, ContentPart{Type: "text", Text: p.Text})
			continue
		}
		mt := p.InlineData.MimeType
		dataURL := "data:" + mt + ";base64," + p.InlineData.Data
		switch model.KindForMIME(mt) {
		case model.KindImage:
			content = append(content, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}})
		case model.KindAudio:
			content = append(content, ContentPart{Type: "input_audio", InputAudio: &InputAudio{
				Data:   p.InlineData.Data,
				Format: audioFormat(mt),
			}})
		default:
			docN++
			content = append(content, ContentPart{Type: "file", File: &FilePart{
				Filename: fmt.Sprintf("document-%d", docN),
				FileData: dataURL,
			}})
		}
	}
	return ChatMessage{Role: "user", Content: content}
}

// audioFormat maps an audio MIME type to the input_audio format name.
func audioFormat(mimeType string) string {
	sub := mimeType
	if i := strings.IndexByte(sub, '/'); i >= 0 {
		sub = sub[i+1:]
	}
	if i := strings.IndexByte(sub, ';'); i >= 0 {
		sub = sub[:i]
	}
	switch sub {
	case "mpeg":
		return "mp3"
	case "x-wav", "wave":
		return "wav"
	default:
		return sub
	}
}
