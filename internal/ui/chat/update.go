// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/commands"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/model"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case EventMsg:
		return m.handleEvent(msg.Event)

	case redrawMsg:
		m.throttle.flushed()
		m.refresh(false)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// The spinner frame is part of an empty placeholder's content
		if m.waitingForFirstFragment() {
			m.refresh(false)
		}
		return m, cmd

	case commands.SubmitMsg:
		return m.submit(msg.Text, msg.Attachments, false)

	case commands.NoticeMsg:
		// Listings (sources, stats) do not fit the status bar
		if strings.Contains(msg.Text, "\n") {
			m.help = msg.Text + "\n\nEsc closes this panel."
			m.refresh(false)
			m.viewport.GotoTop()
			return m, nil
		}
		cmd := m.setNotice(msg.Text, msg.IsError)
		return m, cmd

	case commands.ShowHelpMsg:
		m.help = msg.Text + "\n\n" + keyHelp(m.keyMap)
		m.refresh(false)
		m.viewport.GotoTop()
		return m, nil

	case commands.ResetMsg:
		m.help = ""
		m.renderer.Forget()
		m.messages = m.ctrl.Snapshot()
		m.refresh(true)
		cmd := m.setNotice("", false)
		return m, cmd

	case commands.LanguageMsg:
		m.lang = msg.Lang
		m.input.Placeholder = i18n.T(m.lang, i18n.KeyPlaceholder)
		m.refresh(false)
		return m, nil

	case commands.RecordingStoppedMsg:
		if errors.Is(msg.Err, context.Canceled) {
			return m, nil
		}
		cmd := m.setNotice(commands.MicrophoneError(m.lang, msg.Err), true)
		return m, cmd

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)

	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice, m.noticeErr = "", false
		}
		return m, nil
	}

	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.cmdCtx.StopRecording()
		m.ctrl.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		switch {
		case m.help != "":
			m.help = ""
			m.refresh(true)
		case m.cmdCtx.StopRecording():
		case m.ctrl.Cancel():
		default:
			m.input.Reset()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submitInput()

	case key.Matches(msg, m.keyMap.Newline):
		m.input.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keyMap.Reset):
		return m, commands.HandleReset(m.cmdCtx, nil)

	case key.Matches(msg, m.keyMap.Language):
		return m, commands.HandleLanguage(m.cmdCtx, nil)

	case key.Matches(msg, m.keyMap.Complete):
		return m.complete()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput sends the input box: a slash command runs, anything else is a
// message carrying the queued attachments.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	result := m.parser.Parse(value)
	if result.IsCommand {
		m.input.Reset()
		m.help = ""
		return m, m.registry.Execute(m.cmdCtx, result)
	}
	return m.submit(value, m.cmdCtx.Queue.Items(), true)
}

// submit starts a turn. fromInput turns go with the attachment queue, which
// is only consumed once the controller accepts the turn.
func (m Model) submit(text string, atts []model.Attachment, fromInput bool) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(text) == "" && len(atts) == 0 {
		return m, nil
	}
	if m.ctrl.InFlight() {
		cmd := m.setNotice(i18n.T(m.lang, i18n.KeyBusy), false)
		return m, cmd
	}

	if _, ok := m.ctrl.Submit(context.Background(), text, atts); !ok {
		return m, nil
	}
	if fromInput {
		m.cmdCtx.Queue.Take()
		m.input.Reset()
	}
	m.help = ""
	m.messages = m.ctrl.Snapshot()
	m.refresh(true)
	return m, nil
}

// complete applies the best tab completion. Several candidates are listed
// in the status bar.
func (m Model) complete() (tea.Model, tea.Cmd) {
	lines := m.completer.Line(m.input.Value())
	switch len(lines) {
	case 0:
		return m, nil
	case 1:
		m.input.SetValue(lines[0])
		return m, nil
	}

	candidates := m.completer.Complete(m.input.Value())
	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		labels = append(labels, c.Display)
	}
	m.input.SetValue(commonPrefix(lines))
	cmd := m.setNotice(strings.Join(labels, "  "), false)
	return m, cmd
}

// commonPrefix returns the longest shared prefix, cut on a rune boundary.
func commonPrefix(values []string) string {
	prefix := values[0]
	for _, v := range values[1:] {
		for !strings.HasPrefix(v, prefix) {
			_, size := utf8.DecodeLastRuneInString(prefix)
			prefix = prefix[:len(prefix)-size]
		}
	}
	return prefix
}

// =============================================================================
// CONTROLLER EVENTS
// =============================================================================

func (m Model) handleEvent(ev controller.Event) (tea.Model, tea.Cmd) {
	m.messages = m.ctrl.Snapshot()

	switch ev.Kind {
	case controller.EventMessage:
		if ev.Message.IsStreaming {
			draw, cmd := m.throttle.streaming()
			if draw {
				m.refresh(false)
			}
			return m, cmd
		}
		m.refresh(false)

	case controller.EventTurnDone:
		m.refresh(false)

	case controller.EventReset:
		m.renderer.Forget()
		m.refresh(true)
	}
	return m, nil
}

func (m Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		logging.L().Warn("config_reload_failed", zap.Error(msg.Err))
		cmd := m.setNotice("Config reload failed: "+msg.Err.Error(), true)
		return m, cmd
	}
	logging.L().Info("config_reloaded")
	notice := m.setNotice("Configuration reloaded.", false)
	return m, tea.Batch(commands.HandleReset(m.cmdCtx, nil), notice)
}

// waitingForFirstFragment reports whether the last message is an empty
// streaming placeholder, which shows the spinner.
func (m Model) waitingForFirstFragment() bool {
	if len(m.messages) == 0 {
		return false
	}
	last := m.messages[len(m.messages)-1]
	return last.IsStreaming && last.Text == ""
}

// setNotice shows text in the status bar until it expires. Empty text
// clears it.
func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.noticeID++
	m.notice, m.noticeErr = text, isErr
	if text == "" {
		return nil
	}
	return expireNotice(m.noticeID)
}
