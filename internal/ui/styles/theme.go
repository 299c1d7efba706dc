// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme (the ui.theme setting).
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBadge lipgloss.Style
	HeaderTitle lipgloss.Style
	ResetButton lipgloss.Style
	LangButton  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble     lipgloss.Style
	ModelBubble    lipgloss.Style
	ErrorBubble    lipgloss.Style
	UserIcon       lipgloss.Style
	ModelIcon      lipgloss.Style
	AttachmentChip lipgloss.Style
	AttachmentMeta lipgloss.Style
	SourcesTitle   lipgloss.Style
	SourceItem     lipgloss.Style
	SourceURI      lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputBox     lipgloss.Style
	Pending      lipgloss.Style
	Recording    lipgloss.Style
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Notice       lipgloss.Style
	NoticeError  lipgloss.Style
}

// NewTheme creates a theme. mode is "auto", "dark" or "light"; anything
// else is treated as auto.
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	// AdaptiveColor consults the default renderer, so a forced mode has to
	// be pushed down to it.
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return ModeDark
	}
	return ModeLight
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(Surface).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Border).
		Padding(0, 2)

	t.HeaderBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(BlueDeep).
		Bold(true).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.ResetButton = lipgloss.NewStyle().
		Foreground(Red).
		Background(RedWash).
		Bold(true).
		Padding(0, 1)

	t.LangButton = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	// Messages
	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Blue).
		Padding(0, 2).
		MarginLeft(4)

	t.ModelBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(ModelBubble).
		Padding(0, 1).
		MarginRight(4)

	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(Red).
		Background(RedWash).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Red).
		Padding(0, 1).
		MarginRight(4)

	t.UserIcon = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)
	t.ModelIcon = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	t.AttachmentChip = lipgloss.NewStyle().
		Foreground(Emerald).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Emerald).
		Padding(0, 1)

	t.AttachmentMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.SourcesTitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.SourceItem = lipgloss.NewStyle().Foreground(Cyan)
	t.SourceURI = lipgloss.NewStyle().Foreground(TextMuted).Underline(true)

	// Input and status
	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	t.Pending = lipgloss.NewStyle().Foreground(Emerald)
	t.Recording = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.Spinner = lipgloss.NewStyle().Foreground(Cyan)
	t.ThinkingText = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Notice = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.NoticeError = lipgloss.NewStyle().Foreground(Red)
}
