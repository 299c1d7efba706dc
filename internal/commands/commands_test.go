// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/attachment"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/provider"
	"github.com/jeranaias/procubot-tui/internal/provider/providertest"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestLanguageCodes(t *testing.T) {
	assert.Equal(t, []string{"en", "zh-TW"}, languageCodes())

	cmd := NewRegistry().Get("/lang")
	require.NotNil(t, cmd)
	assert.Equal(t, languageCodes(), cmd.Args[0].Values)
}

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"/lang zh-TW", true},
		{"  /help", true},
		{"hello", false},
		{"what is /attach for?", false},
		{"", false},
		{"/", true},
	}

	for _, tc := range tests {
		got := IsCommand(tc.input)
		if got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/help", "/help"},
		{"/attach a.pdf b.pdf", "/attach"},
		{"  /reset  ", "/reset"},
		{"hello", ""},
		{"/", "/"},
	}

	for _, tc := range tests {
		got := ExtractCommandName(tc.input)
		if got != tc.want {
			t.Errorf("ExtractCommandName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "a.pdf b.pdf", []string{"a.pdf", "b.pdf"}},
		{"double quotes", `"bid summary.pdf" x.png`, []string{"bid summary.pdf", "x.png"}},
		{"single quotes", `'Q3 prices.xlsx'`, []string{"Q3 prices.xlsx"}},
		{"escaped quote", `"say \"hi\""`, []string{`say "hi"`}},
		{"empty quoted", `"" next`, []string{"", "next"}},
		{"windows path", `C:\docs\rfq.pdf`, []string{`C:\docs\rfq.pdf`}},
		{"cjk name", "報價單.pdf 合約 草案.docx", []string{"報價單.pdf", "合約", "草案.docx"}},
		{"cjk quoted", `"合約 草案.docx"`, []string{"合約 草案.docx"}},
		{"extra spaces", "  a   b  ", []string{"a", "b"}},
		{"empty", "", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseArgs(tc.input))
		})
	}
}

func TestParser_Parse(t *testing.T) {
	p := NewParser(NewRegistry())

	res := p.Parse("  /ATTACH \"my file.pdf\" other.png ")
	assert.True(t, res.IsCommand)
	assert.Equal(t, "/attach", res.CommandName)
	assert.Equal(t, []string{"my file.pdf", "other.png"}, res.Args)
	assert.Equal(t, `"my file.pdf" other.png`, res.RawArgs)
	require.NotNil(t, res.Command)
	assert.Equal(t, "/attach", res.Command.Name)

	alias := p.Parse("/new")
	require.NotNil(t, alias.Command)
	assert.Equal(t, "/reset", alias.Command.Name)

	chat := p.Parse("What is an RFQ?")
	assert.False(t, chat.IsCommand)
	assert.Nil(t, chat.Command)

	unknown := p.Parse("/frobnicate")
	assert.True(t, unknown.IsCommand)
	assert.Nil(t, unknown.Command)
}

func TestValidateArgs(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name    string
		cmd     string
		args    []string
		wantErr string
	}{
		{"attach needs a path", "/attach", nil, "required argument missing"},
		{"attach ok", "/attach", []string{"a.pdf"}, ""},
		{"lang enum ok", "/lang", []string{"zh-tw"}, ""},
		{"lang enum bad", "/lang", []string{"fr"}, "invalid value"},
		{"record number ok", "/record", []string{"30"}, ""},
		{"record zero", "/record", []string{"0"}, "invalid number"},
		{"open not a number", "/open", []string{"two"}, "invalid number"},
		{"open optional", "/open", nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateArgs(r.Get(tc.cmd), tc.args)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	assert.NoError(t, ValidateArgs(nil, []string{"x"}))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Command: "/lang", Arg: "language", Message: "invalid value", Got: "fr", Expected: "en, zh-TW"}
	assert.Equal(t, "/lang: invalid value for argument 'language' (got: fr), expected: en, zh-TW", err.Error())
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"/attach", "/detach", "/voice", "/record", "/open", "/sources",
		"/reset", "/cancel", "/lang", "/stats", "/help", "/quit"} {
		cmd := r.Get(name)
		if assert.NotNil(t, cmd, name) {
			assert.NotNil(t, cmd.Handler, name)
			assert.NotEmpty(t, cmd.Description, name)
		}
	}
	assert.Nil(t, r.Get("/model"))

	all := r.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	r := NewRegistry()
	r.Register(&Command{Name: "/secret", Hidden: true, Handler: HandleHelp})
	r.Register(&Command{Name: "/misc", Handler: HandleHelp})

	groups := r.ByCategory()
	assert.NotEmpty(t, groups[CategoryMessage])
	assert.NotEmpty(t, groups[CategorySession])
	for _, cmds := range groups {
		for _, cmd := range cmds {
			assert.NotEqual(t, "/secret", cmd.Name)
		}
	}
	assert.Contains(t, names(groups[CategoryGeneral]), "/misc")
}

func names(cmds []*Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Name
	}
	return out
}

func TestRegistry_ExecuteErrors(t *testing.T) {
	r := NewRegistry()
	p := NewParser(r)
	ctx := NewContext(nil, r, nil, nil)

	msg := run(r.Execute(ctx, p.Parse("/nope")))
	n, ok := msg.(NoticeMsg)
	require.True(t, ok)
	assert.True(t, n.IsError)
	assert.Contains(t, n.Text, "unknown command: /nope")

	n = run(r.Execute(ctx, p.Parse("/reset now"))).(NoticeMsg)
	assert.Contains(t, n.Text, "too many arguments")

	n = run(r.Execute(ctx, p.Parse("/voice"))).(NoticeMsg)
	assert.Contains(t, n.Text, "required argument missing")
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func newTestContext(t *testing.T, sess provider.Session) *Context {
	t.Helper()
	f := &providertest.Factory{Session: sess}
	ctrl := controller.New(f.New, controller.Options{Logger: zap.NewNop()})
	r := NewRegistry()
	return NewContext(ctrl, r, nil, func() string { return "3 turns" })
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

var pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

func TestHandleAttachAndDetach(t *testing.T) {
	ctx := newTestContext(t, providertest.NewSession())
	pdf := writeFile(t, "rfq.pdf", pdfBytes)
	png := writeFile(t, "logo.png", []byte("\x89PNG\r\n\x1a\n0000"))

	n := run(HandleAttach(ctx, []string{pdf, png})).(NoticeMsg)
	assert.False(t, n.IsError)
	assert.Contains(t, n.Text, "rfq.pdf")
	assert.Contains(t, n.Text, "logo.png")

	items := ctx.Queue.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "application/pdf", items[0].MimeType)
	assert.Equal(t, model.KindImage, items[1].Kind)

	// A bad file leaves the queue untouched.
	txt := writeFile(t, "notes.exe", []byte{0x4d, 0x5a, 0x90, 0x00})
	n = run(HandleAttach(ctx, []string{pdf, txt})).(NoticeMsg)
	assert.True(t, n.IsError)
	assert.Equal(t, 2, ctx.Queue.Len())

	n = run(HandleDetach(ctx, nil)).(NoticeMsg)
	assert.Equal(t, "Attachments cleared.", n.Text)
	assert.Zero(t, ctx.Queue.Len())
}

func TestHandleVoice(t *testing.T) {
	ctx := newTestContext(t, providertest.NewSession())
	wav := writeFile(t, "memo.wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt "))

	msg, ok := run(HandleVoice(ctx, []string{wav})).(SubmitMsg)
	require.True(t, ok)
	assert.Equal(t, "Please listen to this audio.", msg.Text)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, model.KindAudio, msg.Attachments[0].Kind)

	ctx.Controller.SetLanguage(i18n.TraditionalChinese)
	msg = run(HandleVoice(ctx, []string{wav})).(SubmitMsg)
	assert.Equal(t, i18n.T(i18n.TraditionalChinese, i18n.KeyAudioCaption), msg.Text)

	pdf := writeFile(t, "rfq.pdf", pdfBytes)
	n := run(HandleVoice(ctx, []string{pdf})).(NoticeMsg)
	assert.True(t, n.IsError)
	assert.Contains(t, n.Text, "not an audio file")
}

func TestHandleRecord_NoMicrophone(t *testing.T) {
	ctx := newTestContext(t, providertest.NewSession())
	ctx.Recorder = &attachment.Recorder{}

	n := run(HandleRecord(ctx, nil)).(NoticeMsg)
	assert.True(t, n.IsError)
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyNoMic), n.Text)
	assert.False(t, ctx.Recording())
}

func TestMicrophoneError(t *testing.T) {
	zh := i18n.TraditionalChinese
	assert.Equal(t, i18n.T(zh, i18n.KeyNoMic), MicrophoneError(zh, attachment.ErrNoMicrophone))
	assert.Equal(t, i18n.T(zh, i18n.KeyMicDenied), MicrophoneError(zh, attachment.ErrMicrophoneDenied))
	assert.Equal(t, i18n.T(zh, i18n.KeyMicError), MicrophoneError(zh, context.DeadlineExceeded))
}

func TestContext_Recording(t *testing.T) {
	ctx := NewContext(nil, nil, nil, nil)
	assert.False(t, ctx.StopRecording())

	stopped := false
	require.True(t, ctx.startRecording(func() { stopped = true }))
	assert.False(t, ctx.startRecording(func() {}), "one capture at a time")
	assert.True(t, ctx.Recording())

	assert.True(t, ctx.StopRecording())
	assert.True(t, stopped)
	assert.False(t, ctx.Recording())
}

func TestHandleOpen(t *testing.T) {
	ctx := newTestContext(t, providertest.NewSession(nil))

	n := run(HandleOpen(ctx, nil)).(NoticeMsg)
	assert.Contains(t, n.Text, "no attachments")

	att := attachment.FromBytes("rfq.pdf", "application/pdf", pdfBytes)
	done, ok := ctx.Controller.Submit(context.Background(), "", []model.Attachment{att})
	require.True(t, ok)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not finish")
	}

	n = run(HandleOpen(ctx, []string{"3"})).(NoticeMsg)
	assert.Contains(t, n.Text, "attachment 3 does not exist (1-1)")
}

func TestHandleSources(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{{
		Fragment: provider.Fragment{
			TextDelta: "See FAR 15.",
			Citations: []model.Citation{{Title: "FAR Part 15", URI: "https://acquisition.gov/far/part-15"}},
		},
	}})
	ctx := newTestContext(t, sess)

	n := run(HandleSources(ctx, nil)).(NoticeMsg)
	assert.Equal(t, "No sources for the last response.", n.Text)

	done, ok := ctx.Controller.Submit(context.Background(), "negotiation rules?", nil)
	require.True(t, ok)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not finish")
	}

	n = run(HandleSources(ctx, nil)).(NoticeMsg)
	assert.Contains(t, n.Text, "Sources:")
	assert.Contains(t, n.Text, "1. FAR Part 15")
	assert.Contains(t, n.Text, "https://acquisition.gov/far/part-15")
}

func TestHandleReset(t *testing.T) {
	ctx := newTestContext(t, providertest.NewSession())
	ctx.Queue.Add(model.Attachment{Kind: model.KindImage, MimeType: "image/png", InlineData: "AA=="})

	_, ok := run(HandleReset(ctx, nil)).(ResetMsg)
	assert.True(t, ok)
	assert.Zero(t, ctx.Queue.Len())
	assert.Equal(t, 1, ctx.Controller.MessageCount())
}

func TestHandleCancel(t *testing.T) {
	gate := make(chan struct{})
	sess := providertest.NewSession([]providertest.Step{
		providertest.Frag("partial"),
		{Fragment: provider.Fragment{TextDelta: " rest"}, Gate: gate},
	})
	ctx := newTestContext(t, sess)

	n := run(HandleCancel(ctx, nil)).(NoticeMsg)
	assert.Equal(t, "Nothing to cancel.", n.Text)

	done, ok := ctx.Controller.Submit(context.Background(), "hi", nil)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		msgs := ctx.Controller.Snapshot()
		return msgs[len(msgs)-1].Text == "partial"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Nil(t, run(HandleCancel(ctx, nil)))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not finish")
	}
	msgs := ctx.Controller.Snapshot()
	assert.Equal(t, "partial", msgs[len(msgs)-1].Text)
}

func TestHandleLanguage(t *testing.T) {
	ctx := newTestContext(t, providertest.NewSession())

	msg := run(HandleLanguage(ctx, nil)).(LanguageMsg)
	assert.Equal(t, i18n.TraditionalChinese, msg.Lang)
	assert.Equal(t, i18n.TraditionalChinese, ctx.Controller.Language())

	msg = run(HandleLanguage(ctx, nil)).(LanguageMsg)
	assert.Equal(t, i18n.English, msg.Lang)

	msg = run(HandleLanguage(ctx, []string{"zh-TW"})).(LanguageMsg)
	assert.Equal(t, i18n.TraditionalChinese, msg.Lang)
}

func TestHandleStatsAndHelp(t *testing.T) {
	ctx := newTestContext(t, providertest.NewSession())
	assert.Equal(t, "3 turns", run(HandleStats(ctx, nil)).(NoticeMsg).Text)

	ctx.Stats = nil
	assert.Contains(t, run(HandleStats(ctx, nil)).(NoticeMsg).Text, "not enabled")

	help := run(HandleHelp(ctx, nil)).(ShowHelpMsg)
	assert.True(t, strings.HasPrefix(help.Text, CategoryMessage))
	assert.Contains(t, help.Text, "/attach <path>...")
	assert.Contains(t, help.Text, "/lang [en|zh-TW]")
	assert.Less(t, strings.Index(help.Text, CategorySession), strings.Index(help.Text, CategoryGeneral))
}

func TestHandleQuit(t *testing.T) {
	ctx := NewContext(nil, nil, nil, nil)
	_, ok := run(HandleQuit(ctx, nil)).(tea.QuitMsg)
	assert.True(t, ok)
}

func TestQueue(t *testing.T) {
	var q Queue
	a := model.Attachment{FileName: "a"}
	b := model.Attachment{FileName: "b"}
	q.Add(a, b)

	items := q.Items()
	items[0].FileName = "changed"
	assert.Equal(t, "a", q.Items()[0].FileName, "Items returns a copy")

	taken := q.Take()
	assert.Len(t, taken, 2)
	assert.Zero(t, q.Len())
	assert.Zero(t, q.Clear())
}
