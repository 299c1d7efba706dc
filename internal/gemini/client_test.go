// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/provider"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeServer records request bodies and replays canned SSE chunks.
type fakeServer struct {
	mu       sync.Mutex
	requests []GenerateRequest
	paths    []string
	keys     []string
	status   int
	errBody  string
	chunks   []string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req GenerateRequest
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.paths = append(f.paths, r.URL.Path+"?"+r.URL.RawQuery)
	f.keys = append(f.keys, r.Header.Get("x-goog-api-key"))
	status, errBody, chunks := f.status, f.errBody, f.chunks
	f.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		io.WriteString(w, errBody)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		fmt.Fprintf(w, "data: %s\r\n\r\n", c)
	}
}

func newTestClient(t *testing.T, f *fakeServer, mutate func(*provider.Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	cfg := provider.Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-test"}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func textChunk(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
}

func collect(t *testing.T, stream provider.Stream) ([]provider.Fragment, error) {
	t.Helper()
	var frags []provider.Fragment
	for frag, err := range stream {
		if err != nil {
			return frags, err
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewClient_MissingCredential(t *testing.T) {
	_, err := NewClient(provider.Config{APIKey: "  "})
	assert.ErrorIs(t, err, provider.ErrMissingCredential)

	_, err = New(provider.Config{})
	assert.ErrorIs(t, err, provider.ErrMissingCredential)
}

func TestSendStreaming_TextPayload(t *testing.T) {
	f := &fakeServer{chunks: []string{textChunk("Total"), textChunk(" Cost of Ownership...")}}
	temp := 0.4
	c := newTestClient(t, f, func(cfg *provider.Config) {
		cfg.SystemPrompt = "You are ProcuBot"
		cfg.Temperature = &temp
	})

	stream, err := c.SendStreaming(context.Background(), provider.Text("What is a TCO analysis?"))
	require.NoError(t, err)
	frags, err := collect(t, stream)
	require.NoError(t, err)

	require.Len(t, frags, 2)
	assert.Equal(t, "Total", frags[0].TextDelta)
	assert.Equal(t, " Cost of Ownership...", frags[1].TextDelta)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "/v1beta/models/gemini-test:streamGenerateContent?alt=sse", f.paths[0])
	assert.Equal(t, "test-key", f.keys[0])
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "user", req.Contents[0].Role)
	assert.Equal(t, "What is a TCO analysis?", req.Contents[0].Parts[0].Text)
	require.NotNil(t, req.SystemInstruction)
	assert.Equal(t, "You are ProcuBot", req.SystemInstruction.Parts[0].Text)
	require.NotNil(t, req.GenerationConfig)
	assert.InDelta(t, 0.4, *req.GenerationConfig.Temperature, 1e-9)
	assert.Empty(t, req.Tools)
}

func TestSendStreaming_InlineParts(t *testing.T) {
	f := &fakeServer{chunks: []string{textChunk("ok")}}
	c := newTestClient(t, f, nil)

	payload := provider.BuildPayload("", []model.Attachment{{Kind: model.KindImage, MimeType: "image/png", InlineData: "iVBOR"}})
	stream, err := c.SendStreaming(context.Background(), payload)
	require.NoError(t, err)
	_, err = collect(t, stream)
	require.NoError(t, err)

	parts := f.requests[0].Contents[0].Parts
	require.Len(t, parts, 1)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MimeType)
	assert.Equal(t, "iVBOR", parts[0].InlineData.Data)
	assert.Empty(t, parts[0].Text)
}

func TestSendStreaming_SearchGroundingCitations(t *testing.T) {
	grounded := `{"candidates":[{"content":{"parts":[{"text":" Acme is one."}]},` +
		`"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://acme.example","title":"Acme Corp"}},{"retrievedContext":{}}]}}]}`
	f := &fakeServer{chunks: []string{textChunk("Suppliers:"), grounded}}
	c := newTestClient(t, f, func(cfg *provider.Config) { cfg.Search = true })

	stream, err := c.SendStreaming(context.Background(), provider.Text("find suppliers"))
	require.NoError(t, err)
	frags, err := collect(t, stream)
	require.NoError(t, err)

	require.Len(t, frags, 2)
	assert.Empty(t, frags[0].Citations)
	assert.Equal(t, []model.Citation{{Title: "Acme Corp", URI: "https://acme.example"}}, frags[1].Citations)

	require.Len(t, f.requests[0].Tools, 1)
	assert.NotNil(t, f.requests[0].Tools[0].GoogleSearch)
}

func TestSendStreaming_HistoryCommittedOnSuccess(t *testing.T) {
	f := &fakeServer{chunks: []string{textChunk("A"), textChunk("B")}}
	c := newTestClient(t, f, nil)

	for _, q := range []string{"first", "second"} {
		stream, err := c.SendStreaming(context.Background(), provider.Text(q))
		require.NoError(t, err)
		_, err = collect(t, stream)
		require.NoError(t, err)
	}

	require.Len(t, f.requests, 2)
	second := f.requests[1].Contents
	require.Len(t, second, 3)
	assert.Equal(t, "first", second[0].Parts[0].Text)
	assert.Equal(t, "model", second[1].Role)
	assert.Equal(t, "AB", second[1].Parts[0].Text)
	assert.Equal(t, "second", second[2].Parts[0].Text)
	assert.Len(t, c.History(), 4)
}

func TestSendStreaming_StoppedConsumerDoesNotCommit(t *testing.T) {
	f := &fakeServer{chunks: []string{textChunk("A"), textChunk("B")}}
	c := newTestClient(t, f, nil)

	stream, err := c.SendStreaming(context.Background(), provider.Text("q"))
	require.NoError(t, err)
	for range stream {
		break
	}
	assert.Empty(t, c.History())
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestSendStreaming_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{
			name:   "quota exhausted",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`,
			want:   provider.ErrRateLimited,
		},
		{
			name:   "bad key",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			want:   provider.ErrInvalidCredential,
		},
		{
			name:   "unsupported mime",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"Unsupported MIME type: application/x-msdownload","status":"INVALID_ARGUMENT"}}`,
			want:   provider.ErrUnsupportedMIME,
		},
		{
			name:   "overloaded",
			status: http.StatusServiceUnavailable,
			body:   `{"error":{"code":503,"message":"The model is overloaded.","status":"UNAVAILABLE"}}`,
			want:   provider.ErrUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeServer{status: tc.status, errBody: tc.body}
			c := newTestClient(t, f, nil)

			stream, err := c.SendStreaming(context.Background(), provider.Text("hi"))
			require.Nil(t, stream)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "error %v is not %v", err, tc.want)
		})
	}
}

func TestSendStreaming_SafetyBlock(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
	}{
		{"prompt feedback", `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"finish reason", `{"candidates":[{"content":{"parts":[]},"finishReason":"PROHIBITED_CONTENT"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeServer{chunks: []string{textChunk("partial"), tc.chunk}}
			c := newTestClient(t, f, nil)

			stream, err := c.SendStreaming(context.Background(), provider.Text("hi"))
			require.NoError(t, err)
			frags, err := collect(t, stream)
			require.Len(t, frags, 1)
			assert.ErrorIs(t, err, provider.ErrSafetyBlocked)

			var se *provider.StreamError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "partial", se.Partial)
			assert.Empty(t, c.History())
		})
	}
}

func TestSendStreaming_InStreamError(t *testing.T) {
	f := &fakeServer{chunks: []string{`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`}}
	c := newTestClient(t, f, nil)

	stream, err := c.SendStreaming(context.Background(), provider.Text("hi"))
	require.NoError(t, err)
	_, err = collect(t, stream)
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestSendStreaming_SkipsMalformedChunks(t *testing.T) {
	f := &fakeServer{chunks: []string{"{not json", textChunk("fine")}}
	c := newTestClient(t, f, nil)

	stream, err := c.SendStreaming(context.Background(), provider.Text("hi"))
	require.NoError(t, err)
	frags, err := collect(t, stream)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "fine", frags[0].TextDelta)
}

func TestGenerateResponse_TextJoinsParts(t *testing.T) {
	var r GenerateResponse
	require.NoError(t, json.Unmarshal([]byte(`{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`), &r))
	assert.Equal(t, "ab", r.Text())
	assert.Empty(t, (&GenerateResponse{}).Text())
	assert.True(t, strings.HasPrefix((&BlockedError{Reason: "SAFETY"}).Error(), "gemini"))
}
