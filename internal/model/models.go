// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a chat model ProcuBot knows how to talk to.
// Used for the header, `procubot config show` and config validation warnings.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider is the provider key: "gemini" or "openrouter"
	Provider string `json:"provider"`

	// MaxTokens is the context window size
	MaxTokens int `json:"max_tokens"`

	// Documents is true when the model accepts PDF and Office inline data
	Documents bool `json:"documents"`

	// Audio is true when the model accepts audio inline data
	Audio bool `json:"audio"`

	// Search is true when web-search grounding is available
	Search bool `json:"search"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the registry of known models keyed by short name.
var Models = map[string]ModelInfo{
	"gemini-3-pro": {
		ID:        "gemini-3-pro-preview",
		Name:      "Gemini 3 Pro (preview)",
		Provider:  "gemini",
		MaxTokens: 1048576,
		Documents: true,
		Audio:     true,
		Search:    true,
	},
	"gemini-2.5-pro": {
		ID:        "gemini-2.5-pro",
		Name:      "Gemini 2.5 Pro",
		Provider:  "gemini",
		MaxTokens: 1048576,
		Documents: true,
		Audio:     true,
		Search:    true,
	},
	"gemini-2.5-flash": {
		ID:        "gemini-2.5-flash",
		Name:      "Gemini 2.5 Flash",
		Provider:  "gemini",
		MaxTokens: 1048576,
		Documents: true,
		Audio:     true,
		Search:    true,
	},
	"or-gemini-2.5-pro": {
		ID:        "google/gemini-2.5-pro",
		Name:      "Gemini 2.5 Pro via OpenRouter",
		Provider:  "openrouter",
		MaxTokens: 1048576,
		Documents: true,
		Audio:     true,
		Search:    true,
	},
	"or-gpt-4o": {
		ID:        "openai/gpt-4o",
		Name:      "GPT-4o via OpenRouter",
		Provider:  "openrouter",
		MaxTokens: 128000,
		Documents: true,
		Search:    true,
	},
	"or-auto": {
		ID:        "openrouter/auto",
		Name:      "OpenRouter Auto",
		Provider:  "openrouter",
		MaxTokens: 128000,
		Search:    true,
	},
}

// =============================================================================
// MODEL INFO METHODS
// =============================================================================

// CapabilitiesString returns a comma-separated list of input capabilities.
func (m ModelInfo) CapabilitiesString() string {
	caps := []string{"Text", "Images"}
	if m.Documents {
		caps = append(caps, "Documents")
	}
	if m.Audio {
		caps = append(caps, "Audio")
	}
	if m.Search {
		caps = append(caps, "Web search")
	}
	return strings.Join(caps, ", ")
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.MaxTokens >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	}
	if m.MaxTokens >= 1000 {
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	}
	return fmt.Sprintf("%d tokens", m.MaxTokens)
}

// Accepts reports whether the model is known to accept the attachment kind.
func (m ModelInfo) Accepts(kind AttachmentKind) bool {
	switch kind {
	case KindImage:
		return true
	case KindAudio:
		return m.Audio
	default:
		return m.Documents
	}
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by short name or ID.
// Returns the ModelInfo and true if found, otherwise empty ModelInfo and false.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	if info, ok := Models[nameOrID]; ok {
		return info, true
	}
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// GetModelsByProvider returns all models for a provider, sorted by ID.
func GetModelsByProvider(provider string) []ModelInfo {
	result := []ModelInfo{}
	lowerProvider := strings.ToLower(provider)

	for _, info := range Models {
		if info.Provider == lowerProvider {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
