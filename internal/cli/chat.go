// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/attachment"
	"github.com/jeranaias/procubot-tui/internal/commands"
	"github.com/jeranaias/procubot-tui/internal/config"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
)

func newChatCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in line mode with history and tab completion",
		Long: `Chat in line mode. Slash commands work as in the TUI: /attach queues
files for the next message, /record captures a voice note, /lang switches
between English and Traditional Chinese. Ctrl+C stops a streaming reply;
at the prompt it exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing for the REPL.
type lineReader struct {
	line        *liner.State
	historyFile string
}

// newLineReader creates a line reader. complete returns full-line
// candidates for tab completion.
func newLineReader(complete func(string) []string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(complete)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(configDir, "chat_history")}

	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Prompt reads one line. Non-blank input is added to the history.
func (r *lineReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history (owner-only permissions) and restores the terminal.
func (r *lineReader) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// repl runs slash commands and turns for the line-mode chat.
type repl struct {
	ctx    context.Context
	out    io.Writer
	ctrl   *controller.Controller
	cmdCtx *commands.Context
}

func runChat(ctx context.Context, flags *globalFlags, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprintln(out, TitleStyle.Render("ProcuBot")+" "+DimStyle.Render(modelName(a.cfg)+" · /help for commands"))
	fmt.Fprintln(out, RenderSeparator(min(GetTerminalWidth(), 60)))

	var ctrl *controller.Controller
	printer := newReplyPrinter(out, func() language.Tag { return ctrl.Language() })
	printer.label = true
	printer.greeting = true
	ctrl = controller.New(a.factory, a.controllerOptions(printer.OnUpdate))

	registry := commands.NewRegistry()
	cmdCtx := commands.NewContext(ctrl, registry, attachment.NewRecorder(), a.stats)
	parser := commands.NewParser(registry)
	completer := commands.NewCompleter(registry)

	r := &repl{ctx: ctx, out: out, ctrl: ctrl, cmdCtx: cmdCtx}

	// At the prompt liner turns Ctrl+C into ErrPromptAborted. While a reply
	// streams the terminal is cooked, so the signal stops the turn or the
	// recording instead of the process.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-sigs:
				if !cmdCtx.StopRecording() && ctrl.Cancel() {
					fmt.Fprintln(out)
				}
			}
		}
	}()

	lines := newLineReader(completer.Line)
	defer lines.Close()

	for {
		input, err := lines.Prompt(promptFor(cmdCtx.Queue.Len()))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		result := parser.Parse(input)
		if !result.IsCommand {
			r.send(input, cmdCtx.Queue.Items(), true)
			continue
		}
		if r.run(registry.Execute(cmdCtx, result)) {
			cmdCtx.StopRecording()
			ctrl.Cancel()
			return nil
		}
	}
}

// promptFor shows the number of queued attachments.
func promptFor(queued int) string {
	if queued > 0 {
		return fmt.Sprintf("procubot [%d]> ", queued)
	}
	return "procubot> "
}

// send submits a turn and waits for it. Queued attachments are consumed
// only once the turn is accepted.
func (r *repl) send(text string, atts []model.Attachment, fromQueue bool) {
	done, ok := r.ctrl.Submit(r.ctx, text, atts)
	if !ok {
		return
	}
	if fromQueue {
		r.cmdCtx.Queue.Take()
	}
	<-done
}

// run executes a command's result inline. It reports whether to quit.
func (r *repl) run(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	if r.cmdCtx.Recording() {
		fmt.Fprintln(r.out, WarningStyle.Render("● "+i18n.T(r.ctrl.Language(), i18n.KeyListening))+
			DimStyle.Render("  Ctrl+C: "+i18n.T(r.ctrl.Language(), i18n.KeyStopRecording)))
	}

	switch msg := cmd().(type) {
	case tea.QuitMsg:
		return true

	case tea.BatchMsg:
		for _, c := range msg {
			if r.run(c) {
				return true
			}
		}

	case commands.NoticeMsg:
		if msg.IsError {
			fmt.Fprintln(r.out, ErrorStyle.Render(msg.Text))
		} else {
			fmt.Fprintln(r.out, msg.Text)
		}

	case commands.ShowHelpMsg:
		fmt.Fprintln(r.out, msg.Text)

	case commands.SubmitMsg:
		r.send(msg.Text, msg.Attachments, false)

	case commands.LanguageMsg:
		fmt.Fprintln(r.out, DimStyle.Render("Language: "+i18n.Code(msg.Lang)))

	case commands.RecordingStoppedMsg:
		if !errors.Is(msg.Err, context.Canceled) {
			fmt.Fprintln(r.out, ErrorStyle.Render(commands.MicrophoneError(r.ctrl.Language(), msg.Err)))
		}

	case commands.ResetMsg:
		// The greeting is printed by the reset event
	}
	return false
}
