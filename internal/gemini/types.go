// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"strings"

	"github.com/jeranaias/procubot-tui/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Content is one turn of the conversation on the wire.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is a text or inline-data element of a Content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is base64 inline data.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig holds sampling parameters.
type GenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// Tool enables a server-side tool. Only Google Search grounding is used.
type Tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

// GenerateRequest is the body of a streamGenerateContent call.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is one streamed chunk.
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`

	// Error is set when the server reports a failure inside the stream
	Error *apiErrorBody `json:"error,omitempty"`
}

// Candidate is one generated response option.
type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GroundingMetadata carries the web sources used by search grounding.
type GroundingMetadata struct {
	GroundingChunks  []GroundingChunk `json:"groundingChunks,omitempty"`
	WebSearchQueries []string         `json:"webSearchQueries,omitempty"`
}

// GroundingChunk is one grounding source.
type GroundingChunk struct {
	Web *WebChunk `json:"web,omitempty"`
}

// WebChunk is a web page used as a grounding source.
type WebChunk struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// PromptFeedback reports why a prompt was rejected.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata reports token usage.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// apiErrorBody is the error object of a failed call.
type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// apiErrorResponse wraps apiErrorBody for non-200 responses.
type apiErrorResponse struct {
	Error apiErrorBody `json:"error"`
}

// safetyFinishReasons are finish reasons that mean the output was withheld
// by a content filter.
var safetyFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
	"IMAGE_SAFETY":       true,
}

// Text returns the concatenated text of the first candidate.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 1 {
		return parts[0].Text
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Citations returns the web grounding sources of the first candidate.
func (r *GenerateResponse) Citations() []model.Citation {
	if len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []model.Citation
	for _, ch := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if ch.Web == nil || ch.Web.URI == "" {
			continue
		}
		out = append(out, model.Citation{Title: ch.Web.Title, URI: ch.Web.URI})
	}
	return out
}

// BlockReason returns the reason the prompt or output was blocked, or "".
func (r *GenerateResponse) BlockReason() string {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return r.PromptFeedback.BlockReason
	}
	if len(r.Candidates) > 0 && safetyFinishReasons[r.Candidates[0].FinishReason] {
		return r.Candidates[0].FinishReason
	}
	return ""
}
