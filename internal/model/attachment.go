// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/base64"
	"errors"
	"strings"
)

// =============================================================================
// ATTACHMENT KIND
// =============================================================================

// AttachmentKind classifies an attachment for display and transmission.
type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindAudio    AttachmentKind = "audio"
	KindDocument AttachmentKind = "document"
)

// KindForMIME returns the attachment kind for a MIME type. Anything that is
// not an image or audio is treated as a document.
func KindForMIME(mimeType string) AttachmentKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "audio/"):
		return KindAudio
	default:
		return KindDocument
	}
}

// =============================================================================
// ATTACHMENT
// =============================================================================

// ErrNoAttachmentSource is returned when an attachment has neither inline
// data nor a display URL.
var ErrNoAttachmentSource = errors.New("attachment has no inline data or display url")

// Attachment is a file, image or recording sent along with a user message.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	MimeType string         `json:"mime_type"`

	// InlineData is the base64-encoded file content. Required to transmit.
	InlineData string `json:"inline_data,omitempty"`

	// DisplayURL is an optional pre-resolved source for display.
	DisplayURL string `json:"display_url,omitempty"`

	FileName string `json:"file_name,omitempty"`

	// Size is the decoded byte length, when known.
	Size int64 `json:"size,omitempty"`
}

// HasInlineData reports whether the attachment can be sent to a provider.
func (a Attachment) HasInlineData() bool {
	return a.InlineData != ""
}

// Validate checks that the attachment has something to display.
func (a Attachment) Validate() error {
	if a.InlineData == "" && a.DisplayURL == "" {
		return ErrNoAttachmentSource
	}
	return nil
}

// DisplaySource returns a renderable source for the attachment: the display
// URL when present, otherwise a data URL built from the inline data.
// Returns "" when the attachment has neither.
func (a Attachment) DisplaySource() string {
	if a.DisplayURL != "" {
		return a.DisplayURL
	}
	if a.InlineData == "" {
		return ""
	}
	return "data:" + a.MimeType + ";base64," + a.InlineData
}

// Decode returns the raw bytes of the inline data.
func (a Attachment) Decode() ([]byte, error) {
	if a.InlineData == "" {
		return nil, ErrNoAttachmentSource
	}
	return base64.StdEncoding.DecodeString(a.InlineData)
}

// Label returns the file name, or the MIME subtype when the name is unknown.
// "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
// becomes "document".
func (a Attachment) Label() string {
	if a.FileName != "" {
		return a.FileName
	}
	sub := a.MimeType
	if i := strings.LastIndex(sub, "/"); i >= 0 {
		sub = sub[i+1:]
	}
	if i := strings.LastIndex(sub, "."); i >= 0 {
		sub = sub[i+1:]
	}
	return sub
}
