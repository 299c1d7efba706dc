// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/commands"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/ui/render"
)

// =============================================================================
// REPLY PRINTER
// =============================================================================

// replyPrinter writes MODEL replies to a line-mode terminal. It is an
// OnUpdate callback for the controller.
//
// STREAMING: in raw mode each fragment is written as it arrives. With a
// markdown renderer the reply is written once, rendered, when the turn ends.
// An error replaces the partial text in the conversation; here it follows it
// on a new line, since printed text cannot be taken back.
type replyPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	lang func() language.Tag
	md   *render.Markdown // nil streams raw text
	wrap int

	id       string // message being streamed
	printed  int    // bytes of its text already written
	label    bool   // print a label before each reply
	greeting bool   // print the first message after each reset
	sources  bool   // list sources after each reply
}

func newReplyPrinter(w io.Writer, lang func() language.Tag) *replyPrinter {
	return &replyPrinter{w: w, lang: lang, sources: true}
}

// OnUpdate handles one controller event.
func (p *replyPrinter) OnUpdate(ev controller.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := ev.Message
	switch ev.Kind {
	case controller.EventReset:
		p.id, p.printed = "", 0
		if p.greeting {
			p.writeReply(msg)
		}

	case controller.EventMessage:
		if msg.Role != model.RoleModel || msg.Failed || p.md != nil {
			return
		}
		if msg.ID != p.id {
			p.id, p.printed = msg.ID, 0
			if p.label {
				fmt.Fprint(p.w, ModelLabelStyle.Render("ProcuBot")+" ")
			}
		}
		if len(msg.Text) > p.printed {
			io.WriteString(p.w, msg.Text[p.printed:])
			p.printed = len(msg.Text)
		}

	case controller.EventTurnDone:
		p.finish(ev.Outcome, msg)
	}
}

// finish closes the reply of a turn.
func (p *replyPrinter) finish(outcome controller.Outcome, msg model.Message) {
	defer func() { p.id, p.printed = "", 0 }()

	switch {
	case outcome == controller.OutcomeStale:
		if p.printed > 0 {
			fmt.Fprintln(p.w)
		}
		return

	case msg.Failed:
		if p.printed > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintln(p.w, ErrorStyle.Render(msg.Text))
		return

	case p.md != nil:
		fmt.Fprintln(p.w, p.md.Render(msg.Text, p.wrap))

	case outcome == controller.OutcomeCancelled && p.printed == 0:
		// The placeholder now holds the localized "stopped" text
		fmt.Fprintln(p.w, WarningStyle.Render(msg.Text))
		return

	default:
		if len(msg.Text) > p.printed {
			io.WriteString(p.w, msg.Text[p.printed:])
		}
		fmt.Fprintln(p.w)
	}

	if p.sources && len(msg.Sources) > 0 {
		// Line by line: a multi-line block would be padded to its widest line
		for _, line := range strings.Split(commands.FormatSources(p.lang(), msg.Sources), "\n") {
			fmt.Fprintln(p.w, DimStyle.Render(line))
		}
	}
}

// writeReply prints a complete message such as the greeting.
func (p *replyPrinter) writeReply(msg model.Message) {
	switch {
	case msg.Failed:
		fmt.Fprintln(p.w, ErrorStyle.Render(msg.Text))
	case p.md != nil:
		fmt.Fprintln(p.w, p.md.Render(msg.Text, p.wrap))
	default:
		if p.label {
			fmt.Fprint(p.w, ModelLabelStyle.Render("ProcuBot")+" ")
		}
		fmt.Fprintln(p.w, msg.Text)
	}
}
