// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/commands"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/provider"
	"github.com/jeranaias/procubot-tui/internal/provider/providertest"
	"github.com/jeranaias/procubot-tui/internal/ui/render"
	"github.com/jeranaias/procubot-tui/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T, sess provider.Session) (Model, *controller.Controller) {
	t.Helper()
	f := &providertest.Factory{Session: sess}
	ctrl := controller.New(f.New, controller.Options{Logger: zap.NewNop()})
	theme := styles.NewTheme("dark")
	m := New(Deps{
		Controller: ctrl,
		Commands:   commands.NewContext(ctrl, nil, nil, nil),
		Theme:      theme,
		Renderer:   render.New(theme, "monokai"),
		ModelName:  "test-model",
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, ctrl
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeAndSend(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	return updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func waitIdle(t *testing.T, ctrl *controller.Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return !ctrl.InFlight() }, 2*time.Second, 5*time.Millisecond)
}

// =============================================================================
// MODEL
// =============================================================================

func TestModel_StartsWithGreeting(t *testing.T) {
	m, _ := newTestModel(t, providertest.NewSession())

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleModel, msgs[0].Role)

	view := m.View()
	assert.Contains(t, view, "ProcuBot")
	assert.Contains(t, view, "send")
}

func TestModel_InputBoxSpansWindow(t *testing.T) {
	for _, width := range []int{80, 52} {
		m, _ := newTestModel(t, providertest.NewSession())
		m = update(t, m, tea.WindowSizeMsg{Width: width, Height: 24})

		var bottom string
		for _, line := range strings.Split(m.View(), "\n") {
			if strings.HasPrefix(line, "╰") {
				bottom = line
			}
		}
		require.NotEmpty(t, bottom, "input box border not found")
		assert.LessOrEqual(t, lipgloss.Width(bottom), width)
		assert.GreaterOrEqual(t, lipgloss.Width(bottom), width-4)
	}
}

func TestModel_SubmitStreamsReply(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{
		providertest.Frag("Hello "),
		providertest.Frag("buyer"),
	})
	m, ctrl := newTestModel(t, sess)

	m, _ = typeAndSend(t, m, "What is an RFQ?")
	assert.Empty(t, m.Input(), "input clears once the turn is accepted")

	waitIdle(t, ctrl)
	m = update(t, m, EventMsg{Event: controller.Event{Kind: controller.EventTurnDone}})

	msgs := m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "What is an RFQ?", msgs[1].Text)
	assert.Equal(t, "Hello buyer", msgs[2].Text)
	assert.False(t, msgs[2].IsStreaming)
}

func TestModel_SubmitWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	sess := providertest.NewSession([]providertest.Step{
		{Fragment: provider.Fragment{TextDelta: "done"}, Gate: gate},
	})
	m, ctrl := newTestModel(t, sess)

	m, _ = typeAndSend(t, m, "first")
	require.True(t, ctrl.InFlight())

	m, _ = typeAndSend(t, m, "second")
	notice, isErr := m.Notice()
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyBusy), notice)
	assert.False(t, isErr)
	assert.Equal(t, "second", m.Input(), "rejected input is kept")

	close(gate)
	waitIdle(t, ctrl)
	assert.Equal(t, 3, ctrl.MessageCount())
}

func TestModel_BlankInputIgnored(t *testing.T) {
	m, ctrl := newTestModel(t, providertest.NewSession())

	m, cmd := typeAndSend(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, ctrl.InFlight())
	assert.Len(t, m.Messages(), 1)
}

func TestModel_SubmitTakesQueuedAttachments(t *testing.T) {
	sess := providertest.NewSession()
	m, ctrl := newTestModel(t, sess)
	m.cmdCtx.Queue.Add(model.Attachment{
		Kind:       model.KindDocument,
		MimeType:   "application/pdf",
		InlineData: "JVBERi0xLjQ=",
		FileName:   "rfq.pdf",
	})

	m, _ = typeAndSend(t, m, "Summarize this")
	waitIdle(t, ctrl)

	assert.Equal(t, 0, m.cmdCtx.Queue.Len())
	payloads := sess.Payloads()
	require.Len(t, payloads, 1)
}

func TestModel_ResetKey(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{providertest.Frag("reply")})
	m, ctrl := newTestModel(t, sess)

	m, _ = typeAndSend(t, m, "hello")
	waitIdle(t, ctrl)

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, commands.ResetMsg{}, msg)

	m = update(t, m, msg)
	assert.Len(t, m.Messages(), 1)
	assert.Equal(t, 1, ctrl.MessageCount())
}

func TestModel_LanguageCommand(t *testing.T) {
	m, ctrl := newTestModel(t, providertest.NewSession())

	m, cmd := typeAndSend(t, m, "/lang zh-TW")
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Equal(t, i18n.TraditionalChinese, m.lang)
	assert.Equal(t, i18n.TraditionalChinese, ctrl.Language())
	assert.Equal(t, i18n.T(i18n.TraditionalChinese, i18n.KeyPlaceholder), m.input.Placeholder)
	assert.Contains(t, m.View(), i18n.T(i18n.TraditionalChinese, i18n.KeyTitle))
}

func TestModel_MultiLineNoticeOpensPanel(t *testing.T) {
	m, _ := newTestModel(t, providertest.NewSession())

	m = update(t, m, commands.NoticeMsg{Text: "Sources:\n  1. FAR Part 15"})
	assert.Contains(t, m.help, "FAR Part 15")
	notice, _ := m.Notice()
	assert.Empty(t, notice)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.help)
}

func TestModel_NoticeExpires(t *testing.T) {
	m, _ := newTestModel(t, providertest.NewSession())

	m = update(t, m, commands.NoticeMsg{Text: "first"})
	stale := m.noticeID
	m = update(t, m, commands.NoticeMsg{Text: "second"})

	assert.Contains(t, m.View(), styles.StatusIndicators.Info+" second")

	m = update(t, m, noticeExpiredMsg{id: stale})
	notice, _ := m.Notice()
	assert.Equal(t, "second", notice, "an older expiry does not clear a newer notice")

	m = update(t, m, noticeExpiredMsg{id: m.noticeID})
	notice, _ = m.Notice()
	assert.Empty(t, notice)
}

func TestModel_EscClearsInputWhenIdle(t *testing.T) {
	m, _ := newTestModel(t, providertest.NewSession())
	m.input.SetValue("draft")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.Input())
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"shared word", []string{"/lang en", "/lang zh-TW"}, "/lang "},
		{"single", []string{"/help"}, "/help"},
		{"nothing shared", []string{"/a", "/b"}, "/"},
		{"cjk", []string{"中文甲", "中文乙"}, "中文"},
		{"shared lead byte", []string{"é", "è"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commonPrefix(tt.values))
		})
	}
}

// =============================================================================
// THROTTLE
// =============================================================================

func TestRedrawThrottle(t *testing.T) {
	th := newRedrawThrottle(10)

	draw, cmd := th.streaming()
	assert.True(t, draw)
	assert.Nil(t, cmd)

	draw, cmd = th.streaming()
	assert.False(t, draw)
	assert.NotNil(t, cmd, "an early fragment schedules a deferred redraw")

	draw, cmd = th.streaming()
	assert.False(t, draw)
	assert.Nil(t, cmd, "only one redraw is pending at a time")

	th.flushed()
	_, cmd = th.streaming()
	assert.NotNil(t, cmd)
}

func TestNewRedrawThrottle_Default(t *testing.T) {
	assert.Equal(t, time.Second/defaultMaxFPS, newRedrawThrottle(0).interval)
	assert.Equal(t, time.Second/defaultMaxFPS, newRedrawThrottle(500).interval)
	assert.Equal(t, time.Second/20, newRedrawThrottle(20).interval)
}

// =============================================================================
// BRIDGE
// =============================================================================

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

func (s *recordingSender) received() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

func TestBridge_DeliversInOrder(t *testing.T) {
	b := NewBridge()
	defer b.Close()

	b.Send("dropped before attach")

	s := &recordingSender{}
	b.Attach(s)
	for i := 0; i < 5; i++ {
		b.Send(i)
	}

	require.Eventually(t, func() bool { return len(s.received()) == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, []tea.Msg{0, 1, 2, 3, 4}, s.received())
}

type blockingSender struct {
	release chan struct{}
}

func (s *blockingSender) Send(tea.Msg) { <-s.release }

func TestBridge_SendDoesNotBlock(t *testing.T) {
	b := NewBridge()
	s := &blockingSender{release: make(chan struct{})}
	b.Attach(s)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Send(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a busy program")
	}
	b.Close()
	close(s.release)
}

func TestBridge_OnUpdateWrapsEvents(t *testing.T) {
	b := NewBridge()
	defer b.Close()
	s := &recordingSender{}
	b.Attach(s)

	b.OnUpdate(controller.Event{Kind: controller.EventReset})

	require.Eventually(t, func() bool { return len(s.received()) == 1 }, time.Second, time.Millisecond)
	ev, ok := s.received()[0].(EventMsg)
	require.True(t, ok)
	assert.Equal(t, controller.EventReset, ev.Kind)
}

func TestBridge_ClosedDropsMessages(t *testing.T) {
	b := NewBridge()
	s := &recordingSender{}
	b.Attach(s)
	b.Close()
	b.Close()

	b.Send("late")
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, s.received())
}
