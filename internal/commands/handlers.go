// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/attachment"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/model"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// These messages are sent by command handlers to the front end.

// NoticeMsg is a one-line notification. IsError marks failures.
type NoticeMsg struct {
	Text    string
	IsError bool
}

// ShowHelpMsg carries the rendered help text.
type ShowHelpMsg struct {
	Text string
}

// SubmitMsg asks the front end to send a message, e.g. a recorded voice
// message with its caption.
type SubmitMsg struct {
	Text        string
	Attachments []model.Attachment
}

// ResetMsg reports that the conversation was reset.
type ResetMsg struct{}

// LanguageMsg reports a language switch.
type LanguageMsg struct {
	Lang language.Tag
}

// RecordingStoppedMsg is sent when a capture ends without audio to send.
type RecordingStoppedMsg struct {
	Err error
}

func notice(err error) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{Text: err.Error(), IsError: true}
	}
}

func info(text string) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{Text: text}
	}
}

func errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func lang(ctx *Context) language.Tag {
	if ctx.Controller == nil {
		return i18n.English
	}
	return ctx.Controller.Language()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

// HandleAttach loads each path and queues it for the next message. Every
// file is checked before any is queued so a bad path leaves the queue as it
// was.
func HandleAttach(ctx *Context, args []string) tea.Cmd {
	atts := make([]model.Attachment, 0, len(args))
	for _, path := range args {
		att, err := attachment.Load(path)
		if err != nil {
			return notice(err)
		}
		atts = append(atts, att)
	}
	ctx.Queue.Add(atts...)

	names := make([]string, len(atts))
	for i, att := range atts {
		names[i] = attachment.Describe(att, 40)
	}
	return info(i18n.T(lang(ctx), i18n.KeyAttached, strings.Join(names, ", ")))
}

// HandleDetach clears the attachment queue.
func HandleDetach(ctx *Context, args []string) tea.Cmd {
	ctx.Queue.Clear()
	return info(i18n.T(lang(ctx), i18n.KeyDetached))
}

// HandleVoice sends an audio file the same way a recording is sent: alone,
// with the fixed caption.
func HandleVoice(ctx *Context, args []string) tea.Cmd {
	att, err := attachment.Load(args[0])
	if err != nil {
		return notice(err)
	}
	if att.Kind != model.KindAudio {
		return notice(fmt.Errorf("%w: %s is not an audio file", attachment.ErrUnsupportedType, att.FileName))
	}
	return voiceMessage(ctx, att)
}

// HandleRecord starts a microphone capture, or stops the running one. The
// capture runs in the returned command; when it ends the recording is sent
// as a voice message.
func HandleRecord(ctx *Context, args []string) tea.Cmd {
	if ctx.StopRecording() {
		return nil
	}
	if ctx.Recorder == nil {
		return info(i18n.T(lang(ctx), i18n.KeyNoMic))
	}
	if _, _, err := ctx.Recorder.Available(); err != nil {
		return func() tea.Msg {
			return NoticeMsg{Text: MicrophoneError(lang(ctx), err), IsError: true}
		}
	}

	maxDuration := attachment.DefaultMaxDuration
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			maxDuration = time.Duration(n) * time.Second
		}
	}

	recCtx, stop := context.WithCancel(context.Background())
	if !ctx.startRecording(stop) {
		stop()
		return nil
	}

	return func() tea.Msg {
		defer stop()
		att, err := ctx.Recorder.Record(recCtx, maxDuration)
		ctx.clearRecording()
		if err != nil {
			logging.L().Warn("recording_failed", zap.Error(err))
			return RecordingStoppedMsg{Err: err}
		}
		return voiceMessage(ctx, att)()
	}
}

func voiceMessage(ctx *Context, att model.Attachment) tea.Cmd {
	text := i18n.T(lang(ctx), i18n.KeyAudioCaption)
	return func() tea.Msg {
		return SubmitMsg{Text: text, Attachments: []model.Attachment{att}}
	}
}

// MicrophoneError returns the localized message for a recorder failure.
func MicrophoneError(tag language.Tag, err error) string {
	switch {
	case errors.Is(err, attachment.ErrNoMicrophone):
		return i18n.T(tag, i18n.KeyNoMic)
	case errors.Is(err, attachment.ErrMicrophoneDenied):
		return i18n.T(tag, i18n.KeyMicDenied)
	default:
		return i18n.T(tag, i18n.KeyMicError)
	}
}

// HandleOpen opens attachment n (default 1) of the most recent user message
// that has attachments. Failures are logged by the opener and shown only as
// a notice.
func HandleOpen(ctx *Context, args []string) tea.Cmd {
	n := 1
	if len(args) > 0 {
		n, _ = strconv.Atoi(args[0])
	}

	atts := lastUserAttachments(ctx)
	if len(atts) == 0 {
		return notice(errors.New("no attachments in the conversation"))
	}
	if n < 1 || n > len(atts) {
		return notice(fmt.Errorf("attachment %d does not exist (1-%d)", n, len(atts)))
	}

	att := atts[n-1]
	if controller.ResolveAttachmentForDisplay(att) == "" {
		return notice(fmt.Errorf("attachment %d has no content to show", n))
	}
	return func() tea.Msg {
		if err := attachment.Open(att); err != nil {
			return NoticeMsg{Text: i18n.T(lang(ctx), i18n.KeyOpenFailed), IsError: true}
		}
		return nil
	}
}

func lastUserAttachments(ctx *Context) []model.Attachment {
	if ctx.Controller == nil {
		return nil
	}
	msgs := ctx.Controller.Snapshot()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsUser() && msgs[i].HasAttachments() {
			return msgs[i].Attachments
		}
	}
	return nil
}

// HandleSources lists the citations of the last response.
func HandleSources(ctx *Context, args []string) tea.Cmd {
	tag := lang(ctx)
	var cites []model.Citation
	if ctx.Controller != nil {
		cites = ctx.Controller.LastSources()
	}
	if len(cites) == 0 {
		return info(i18n.T(tag, i18n.KeyNoSources))
	}
	return info(FormatSources(tag, cites))
}

// FormatSources renders citations as a plain numbered list.
func FormatSources(tag language.Tag, cites []model.Citation) string {
	var sb strings.Builder
	sb.WriteString(i18n.T(tag, i18n.KeySources) + ":")
	for i, c := range cites {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, c.DisplayTitle())
		if c.Title != "" && c.URI != "" {
			sb.WriteString("\n     " + c.URI)
		}
	}
	return sb.String()
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// HandleReset starts a new conversation. Queued attachments and any running
// capture are dropped with it.
func HandleReset(ctx *Context, args []string) tea.Cmd {
	ctx.StopRecording()
	ctx.Queue.Clear()
	if ctx.Controller != nil {
		ctx.Controller.Reset()
	}
	return func() tea.Msg {
		return ResetMsg{}
	}
}

// HandleCancel stops the in-flight response, keeping what has streamed.
func HandleCancel(ctx *Context, args []string) tea.Cmd {
	if ctx.StopRecording() {
		return nil
	}
	if ctx.Controller == nil || !ctx.Controller.Cancel() {
		return info("Nothing to cancel.")
	}
	return nil
}

// HandleLanguage switches to the given language, or toggles between English
// and Traditional Chinese.
func HandleLanguage(ctx *Context, args []string) tea.Cmd {
	next := i18n.Toggle(lang(ctx))
	if len(args) > 0 {
		next = i18n.Parse(args[0])
	}
	if ctx.Controller != nil {
		ctx.Controller.SetLanguage(next)
	}
	return func() tea.Msg {
		return LanguageMsg{Lang: next}
	}
}

// HandleStats shows usage for this session.
func HandleStats(ctx *Context, args []string) tea.Cmd {
	if ctx.Stats == nil {
		return info("Usage tracking is not enabled.")
	}
	return info(ctx.Stats())
}

// =============================================================================
// GENERAL HANDLERS
// =============================================================================

// HandleHelp shows the commands grouped by category.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	text := HelpText(ctx.Registry)
	return func() tea.Msg {
		return ShowHelpMsg{Text: text}
	}
}

// HelpText renders the command list.
func HelpText(r *Registry) string {
	if r == nil {
		return ""
	}
	groups := r.ByCategory()

	var sb strings.Builder
	for _, category := range categoryOrder {
		cmds := groups[category]
		if len(cmds) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(category + "\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&sb, "  %-20s %s\n", usage, cmd.Description)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// HandleQuit exits the application.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	ctx.StopRecording()
	return tea.Quit
}
