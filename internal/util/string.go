// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: Width-aware helpers. Chinese text occupies two terminal columns
// per character, so byte or rune counts misalign the layout.

// Ellipsis is appended to truncated strings.
const Ellipsis = "…"

// TruncateWidth truncates s to at most maxWidth terminal columns, ending in
// an ellipsis when anything was cut. The result never exceeds maxWidth.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// StringWidth returns the display width of a string.
// Double-width characters (CJK) count as 2 columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces to width columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// FirstLine returns the first line of s, truncated to maxWidth columns.
// Used for one-line previews of multi-line prompts in logs and listings.
func FirstLine(s string, maxWidth int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i]) + " " + Ellipsis
	}
	return TruncateWidth(s, maxWidth)
}
