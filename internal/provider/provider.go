// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the narrow contract between the conversation
// controller and a hosted chat model.
//
// A Session accepts one Payload at a time and returns a Stream of Fragments.
// Concrete clients live in the gemini and cloud packages; tests use the
// scripted session in providertest.
package provider

import (
	"context"
	"iter"
	"time"

	"github.com/jeranaias/procubot-tui/internal/model"
)

// =============================================================================
// PAYLOAD
// =============================================================================

// PayloadKind tags which variant a Payload holds.
type PayloadKind int

const (
	// PayloadText is a bare text message.
	PayloadText PayloadKind = iota
	// PayloadParts is an ordered list of text and inline-data parts.
	PayloadParts
)

// String returns the variant name.
func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadParts:
		return "parts"
	default:
		return "unknown"
	}
}

// InlineData is base64 file content with its MIME type.
type InlineData struct {
	MimeType string
	Data     string
}

// Part is one element of a Parts payload. Exactly one of Text or
// InlineData is set.
type Part struct {
	Text       string
	InlineData *InlineData
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart returns an inline-data part.
func InlinePart(mimeType, data string) Part {
	return Part{InlineData: &InlineData{MimeType: mimeType, Data: data}}
}

// IsInline reports whether the part carries inline data.
func (p Part) IsInline() bool {
	return p.InlineData != nil
}

// Payload is the message sent to a provider: Text(string) or Parts([]Part).
// The zero value is an empty Text payload.
type Payload struct {
	kind  PayloadKind
	text  string
	parts []Part
}

// Text builds a text payload.
func Text(text string) Payload {
	return Payload{kind: PayloadText, text: text}
}

// Parts builds a parts payload. The slice is copied.
func Parts(parts ...Part) Payload {
	return Payload{kind: PayloadParts, parts: append([]Part(nil), parts...)}
}

// Kind returns the variant tag.
func (p Payload) Kind() PayloadKind {
	return p.kind
}

// Text returns the text of a Text payload, and false for any other variant.
func (p Payload) Text() (string, bool) {
	if p.kind != PayloadText {
		return "", false
	}
	return p.text, true
}

// Parts returns the parts of a Parts payload, and false for any other variant.
func (p Payload) Parts() ([]Part, bool) {
	if p.kind != PayloadParts {
		return nil, false
	}
	return append([]Part(nil), p.parts...), true
}

// AsParts normalizes either variant into a part list, which is the shape
// both wire formats ultimately need.
func (p Payload) AsParts() []Part {
	if p.kind == PayloadText {
		return []Part{TextPart(p.text)}
	}
	return append([]Part(nil), p.parts...)
}

// BuildPayload chooses the payload variant for a user submission: bare text
// when there are no attachments, otherwise an optional text part (only when
// text is non-empty) followed by one inline part per attachment, in order.
// Attachments without inline data cannot be transmitted and are skipped.
func BuildPayload(text string, attachments []model.Attachment) Payload {
	if len(attachments) == 0 {
		return Text(text)
	}
	parts := make([]Part, 0, len(attachments)+1)
	if text != "" {
		parts = append(parts, TextPart(text))
	}
	for _, att := range attachments {
		if !att.HasInlineData() {
			continue
		}
		parts = append(parts, InlinePart(att.MimeType, att.InlineData))
	}
	return Parts(parts...)
}

// =============================================================================
// STREAM
// =============================================================================

// Fragment is one incremental piece of a streamed response.
type Fragment struct {
	TextDelta string
	Citations []model.Citation
}

// Stream yields fragments in arrival order. A non-nil error is yielded at
// most once and ends the stream.
type Stream = iter.Seq2[Fragment, error]

// Session is an open chat with a model. Implementations keep their own
// history; a turn only becomes history once its stream completes.
type Session interface {
	// SendStreaming sends one user turn. Errors that occur before the first
	// byte is streamed are returned directly; later ones are yielded by the
	// Stream. Cancelling ctx ends the stream.
	SendStreaming(ctx context.Context, payload Payload) (Stream, error)
}

// =============================================================================
// SESSION CONFIG
// =============================================================================

// Config is the opaque session configuration. The controller passes it to
// the Factory without looking inside.
type Config struct {
	// Model identifier, e.g. "gemini-3-pro-preview"
	Model string

	// SystemPrompt is the natural-language instruction for the model
	SystemPrompt string

	// Temperature is sent only when non-nil
	Temperature *float64

	// Search enables web-search grounding
	Search bool

	// APIKey is the credential; empty means not configured
	APIKey string

	// BaseURL overrides the provider endpoint (tests, proxies)
	BaseURL string

	// MaxRetries bounds connection-level retries before any byte streamed
	MaxRetries int

	// ConnectTimeout bounds the wait for response headers
	ConnectTimeout time.Duration
}

// Factory creates a fresh session. It returns ErrMissingCredential when the
// config has no API key.
type Factory func(cfg Config) (Session, error)
