// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment turns files and microphone recordings into
// model.Attachment values and opens attachments in the system viewer.
//
// Files are read fully into memory and base64-encoded. No client-side size
// limit is applied; oversized files surface as provider errors.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/procubot-tui/internal/model"
)

// ErrUnsupportedType is returned for files outside the accepted set.
var ErrUnsupportedType = errors.New("unsupported file type")

// Office Open XML MIME types.
const (
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEPptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEPDF  = "application/pdf"
)

// AudioMIMEPreference is the order in which recording formats are tried.
var AudioMIMEPreference = []string{"audio/webm", "audio/mp4", "audio/ogg", "audio/wav"}

// acceptedExact lists accepted non-image types.
var acceptedExact = map[string]bool{
	MIMEPDF:      true,
	MIMEDocx:     true,
	MIMEXlsx:     true,
	MIMEPptx:     true,
	"audio/webm": true,
	"audio/mp4":  true,
	"audio/ogg":  true,
	"audio/wav":  true,
	"audio/mpeg": true,
}

// extensionTypes covers extensions that the platform MIME table often lacks.
var extensionTypes = map[string]string{
	".pdf":  MIMEPDF,
	".docx": MIMEDocx,
	".xlsx": MIMEXlsx,
	".pptx": MIMEPptx,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
}

// Accepted reports whether mimeType may be attached.
func Accepted(mimeType string) bool {
	mt := normalizeMIME(mimeType)
	return strings.HasPrefix(mt, "image/") || acceptedExact[mt]
}

// DetectMIME determines a file's MIME type from its extension, falling back
// to content sniffing of head.
func DetectMIME(path string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return normalizeMIME(mt)
	}
	return normalizeMIME(http.DetectContentType(head))
}

// normalizeMIME strips parameters and canonicalizes aliases.
func normalizeMIME(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	switch mt {
	case "audio/x-wav", "audio/wave":
		return "audio/wav"
	case "audio/mp3":
		return "audio/mpeg"
	}
	return mt
}

// Load reads path and returns it as an attachment.
func Load(path string) (model.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mt := DetectMIME(path, head)
	if !Accepted(mt) {
		return model.Attachment{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, filepath.Base(path), mt)
	}
	return FromBytes(filepath.Base(path), mt, data), nil
}

// FromBytes builds an attachment from raw content.
func FromBytes(name, mimeType string, data []byte) model.Attachment {
	mt := normalizeMIME(mimeType)
	return model.Attachment{
		Kind:       model.KindForMIME(mt),
		MimeType:   mt,
		InlineData: base64.StdEncoding.EncodeToString(data),
		FileName:   name,
		Size:       int64(len(data)),
	}
}

// FromRecording builds the audio attachment for one recording session.
// The blob is one contiguous encoded recording.
func FromRecording(blob []byte, mimeType string) model.Attachment {
	att := FromBytes("", mimeType, blob)
	att.Kind = model.KindAudio
	return att
}

// Describe returns a one-line label such as "報價單.pdf (1.2 MB)", with the
// name truncated to maxWidth terminal cells (0 means no limit).
func Describe(att model.Attachment, maxWidth int) string {
	name := att.Label()
	if maxWidth > 0 && runewidth.StringWidth(name) > maxWidth {
		name = runewidth.Truncate(name, maxWidth, "…")
	}
	if att.Size <= 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, humanize.Bytes(uint64(att.Size)))
}
