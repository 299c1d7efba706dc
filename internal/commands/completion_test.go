// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(completions []Completion) []string {
	out := make([]string, len(completions))
	for i, c := range completions {
		out[i] = c.Value
	}
	return out
}

func TestCompleterComplete(t *testing.T) {
	completer := NewCompleter(NewRegistry())
	completer.FilesFn = func(prefix string) []string {
		return []string{"bid.pdf", "bids/", "contract.docx"}
	}

	tests := []struct {
		name      string
		input     string
		wantFirst string
		wantAll   []string
		wantNone  bool
	}{
		{name: "chat text", input: "hello", wantNone: true},
		{name: "all commands", input: "/", wantFirst: "/help"},
		{name: "prefix", input: "/at", wantFirst: "/attach"},
		{name: "exact wins", input: "/open", wantFirst: "/open"},
		{name: "alias", input: "/ne", wantAll: []string{"/new"}},
		{name: "case insensitive", input: "/HE", wantFirst: "/help"},
		{name: "enum arg", input: "/lang z", wantAll: []string{"zh-TW"}},
		{name: "enum arg empty", input: "/lang ", wantAll: []string{"en", "zh-TW"}},
		{name: "file arg", input: "/attach bi", wantAll: []string{"bid.pdf", "bids/"}},
		{name: "variadic file arg", input: "/attach bid.pdf con", wantAll: []string{"contract.docx"}},
		{name: "no completion for numbers", input: "/open ", wantNone: true},
		{name: "unknown command", input: "/zzz ", wantNone: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := completer.Complete(tc.input)
			if tc.wantNone {
				assert.Empty(t, got)
				return
			}
			require.NotEmpty(t, got)
			if tc.wantFirst != "" {
				assert.Equal(t, tc.wantFirst, got[0].Value)
			}
			if tc.wantAll != nil {
				assert.ElementsMatch(t, tc.wantAll, values(got))
			}
		})
	}
}

func TestCompleterLine(t *testing.T) {
	completer := NewCompleter(NewRegistry())
	completer.FilesFn = func(prefix string) []string {
		return []string{"bid summary.pdf"}
	}

	assert.Equal(t, []string{"/lang zh-TW"}, completer.Line("/lang zh"))
	assert.Equal(t, []string{`/attach "bid summary.pdf"`}, completer.Line("/attach b"))
	assert.Contains(t, completer.Line("/so"), "/sources")
	assert.Nil(t, completer.Line("no command"))
}

func TestDefaultFileCompletion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rfq.pdf"), []byte("data"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "rfqs"), 0700))

	got := defaultFileCompletion(dir + string(os.PathSeparator) + "rf")
	require.Len(t, got, 2)
	assert.Equal(t, filepath.Join(dir, "rfqs")+string(os.PathSeparator), got[0].Value, "directories rank first")
	assert.Equal(t, "directory", got[0].Description)
	assert.Equal(t, filepath.Join(dir, "rfq.pdf"), got[1].Value)
	assert.Equal(t, "4 B", got[1].Description)

	all := defaultFileCompletion(dir + string(os.PathSeparator))
	assert.Len(t, all, 2, "hidden files are skipped")

	hidden := defaultFileCompletion(filepath.Join(dir, ".h"))
	require.Len(t, hidden, 1)
	assert.Equal(t, ".hidden.pdf", hidden[0].Display)

	assert.Nil(t, defaultFileCompletion(filepath.Join(dir, "missing", "x")))
}

func TestCalculateScore(t *testing.T) {
	assert.Greater(t, calculateScore("/open", "/open"), calculateScore("/opener", "/open"))
	assert.Greater(t, calculateScore("/help", "/h"), calculateScore("/helpers", "/h"))
}
