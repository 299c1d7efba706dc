// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// BRAND COLORS
// =============================================================================

// Blue - Brand color, user bubble gradient start
var Blue = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}

// BlueDeep - User bubble gradient end, header badge
var BlueDeep = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#1E40AF"}

// BlueWash - Language toggle hover background
var BlueWash = lipgloss.AdaptiveColor{Light: "#EFF6FF", Dark: "#172554"}

// Cyan - Accent for links, sources and the model icon
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#67E8F9"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Red - Reset button, failed responses
var Red = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// RedWash - Reset button background, error bubble background
var RedWash = lipgloss.AdaptiveColor{Light: "#FEF2F2", Dark: "#450A0A"}

// Amber - Recording indicator, warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Emerald - Attachment chips, success notices
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Header, input and icon backgrounds
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0F172A"}

// ModelBubble - Model bubble background and icon borders
var ModelBubble = lipgloss.AdaptiveColor{Light: "#F1F5F9", Dark: "#1E293B"}

// Border - Separators and the input frame
var Border = lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#334155"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E2E8F0"}

// TextSecondary - Labels, the user icon, list markers
var TextSecondary = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}

// TextMuted - Hints and timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}

// TextInverse - Text on the user bubble
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}

// =============================================================================
// ACCESSIBILITY: Shapes alongside colors
// =============================================================================

// StatusIndicatorSet contains text indicators for status states.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators provides ASCII indicators so state never depends on
// color alone.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}
