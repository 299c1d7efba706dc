// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/ui/render"
	"github.com/jeranaias/procubot-tui/internal/ui/styles"
	"github.com/jeranaias/procubot-tui/internal/util"
)

// minViewportHeight keeps the conversation visible in tiny terminals.
const minViewportHeight = 3

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes the viewport and input box to the window. The header is
// rendered to measure it because the language button has a border.
func (m *Model) layout() {
	headerHeight := lipgloss.Height(m.renderHeader())
	inputBoxHeight := inputHeight + m.theme.InputBox.GetVerticalFrameSize()
	const pendingRow, statusRow = 1, 1

	vpHeight := m.height - headerHeight - inputBoxHeight - pendingRow - statusRow
	if vpHeight < minViewportHeight {
		vpHeight = minViewportHeight
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(m.width - m.theme.InputBox.GetHorizontalFrameSize())
}

// refresh re-renders the conversation into the viewport. The view follows
// the tail when asked to, or when it was already at the bottom.
func (m *Model) refresh(toBottom bool) {
	if !m.ready {
		return
	}
	follow := toBottom || m.viewport.AtBottom()

	var content string
	if m.help != "" {
		content = m.help
	} else {
		content = m.renderer.Conversation(m.messages, m.lang, m.viewport.Width, m.spinner.View())
	}
	m.viewport.SetContent(content)

	if follow && m.help == "" {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "  Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderPending(),
		m.theme.InputBox.Width(m.width - m.theme.InputBox.GetHorizontalMargins() - 2).Render(m.input.View()),
		m.renderStatusBar(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader draws the title on the left and the language and reset
// buttons on the right.
func (m Model) renderHeader() string {
	left := lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.HeaderBadge.Render("ProcuBot"),
		" ",
		m.theme.HeaderTitle.Render(i18n.T(m.lang, i18n.KeyTitle)),
	)
	right := lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.LangButton.Render(i18n.T(m.lang, i18n.KeyLanguageToggle)),
		" ",
		m.theme.ResetButton.Render(i18n.T(m.lang, i18n.KeyReset)),
	)

	inner := m.width - m.theme.Header.GetHorizontalFrameSize()
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, left, strings.Repeat(" ", gap), right)
	return m.theme.Header.Width(m.width).Render(row)
}

// renderPending shows the recording indicator or the queued attachments.
// It is always one line tall.
func (m Model) renderPending() string {
	width := m.width - 2
	if width < 1 {
		width = 1
	}

	if m.cmdCtx.Recording() {
		text := "● " + i18n.T(m.lang, i18n.KeyListening) + "  Esc: " + i18n.T(m.lang, i18n.KeyStopRecording)
		return " " + m.theme.Recording.Render(util.TruncateWidth(text, width))
	}

	items := m.cmdCtx.Queue.Items()
	if len(items) == 0 {
		return ""
	}
	labels := make([]string, len(items))
	for i, att := range items {
		labels[i] = fmt.Sprintf("[%d] %s", i+1, render.Attachment(att, m.lang, 28))
	}
	return " " + m.theme.Pending.Render(util.TruncateWidth(strings.Join(labels, "  "), width))
}

// renderStatusBar shows the notice when there is one, otherwise the
// shortcuts and the model name.
func (m Model) renderStatusBar() string {
	inner := m.width - m.theme.StatusBar.GetHorizontalFrameSize()
	if inner < 1 {
		inner = 1
	}

	if m.notice != "" {
		style, indicator := m.theme.Notice, styles.StatusIndicators.Info
		if m.noticeErr {
			style, indicator = m.theme.NoticeError, styles.StatusIndicators.Error
		}
		return m.theme.StatusBar.Render(style.Render(util.FirstLine(indicator+" "+m.notice, inner)))
	}

	var parts []string
	for _, b := range m.keyMap.ShortHelp() {
		h := b.Help()
		desc := h.Desc
		if b.Keys()[0] == m.keyMap.Language.Keys()[0] {
			desc = i18n.T(m.lang, i18n.KeyLanguageToggle)
		}
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(desc))
	}
	left := strings.Join(parts, m.theme.ShortcutDesc.Render(" · "))

	right := m.theme.ShortcutDesc.Render(fmt.Sprintf("%s · %d", m.modelName, len(m.messages)))
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return m.theme.StatusBar.Render(left)
	}
	return m.theme.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

// keyHelp lists every key binding.
func keyHelp(km KeyMap) string {
	var sb strings.Builder
	sb.WriteString("Keys\n")
	for _, group := range km.FullHelp() {
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "  %-20s %s\n", h.Key, h.Desc)
		}
	}
	sb.WriteString("\nEsc closes this help.")
	return sb.String()
}
