// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/attachment"
	"github.com/jeranaias/procubot-tui/internal/config"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/ui/render"
)

// maxStdinQuestion bounds a question read from a pipe.
const maxStdinQuestion = 1 << 20

// askOptions are the flags of the ask command.
type askOptions struct {
	files   []string
	raw     bool
	retries int
}

func newAskCommand(flags *globalFlags) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer",
		Long: `Ask one question and stream the answer to stdout. On a terminal the
answer is rendered as markdown once complete; piped output is plain text
as it arrives. Without a question argument the question is read from stdin.`,
		Example: `  procubot ask "What is a sole-source justification?"
  procubot ask -f rfq.pdf "Summarize the evaluation criteria"
  procubot ask --lang zh-TW -f quote.xlsx "比較這些報價"
  cat notes.txt | procubot ask`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, flags, opts, args)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.files, "file", "f", nil, "attach a file (repeatable)")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print plain text even on a terminal")
	cmd.Flags().IntVar(&opts.retries, "retries", -1, "connection retries before streaming starts (default from config)")
	return cmd
}

func runAsk(cmd *cobra.Command, flags *globalFlags, opts askOptions, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if in := cmd.InOrStdin(); question == "" && !isTerminal(in) {
		data, err := io.ReadAll(io.LimitReader(in, maxStdinQuestion))
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}

	atts := make([]model.Attachment, 0, len(opts.files))
	for _, path := range opts.files {
		att, err := attachment.Load(path)
		if err != nil {
			return err
		}
		atts = append(atts, att)
	}
	if question == "" && len(atts) == 0 {
		return errors.New("no question given (pass it as an argument or on stdin)")
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.close()

	if opts.retries >= 0 {
		cfg := config.Global().Clone()
		cfg.Provider.MaxRetries = opts.retries
		if err := cfg.Validate(); err != nil {
			return err
		}
		config.SetGlobal(cfg)
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	printer := newReplyPrinter(out, func() language.Tag { return a.lang })
	if !opts.raw && isTerminal(out) {
		printer.md = render.NewMarkdown(render.StyleConfig(termenv.HasDarkBackground(), a.cfg.UI.CodeTheme))
		printer.wrap = GetTerminalWidth() - 2
		if w := a.cfg.UI.WordWrap; w > 0 && w < printer.wrap {
			printer.wrap = w
		}
	}

	if info, ok := model.GetModelInfo(modelName(a.cfg)); ok {
		for _, att := range atts {
			if !info.Accepts(att.Kind) {
				fmt.Fprintf(errOut, "%s %s may not accept %s input (%s)\n",
					WarningStyle.Render("Warning:"), info.Name, att.Kind, att.FileName)
			}
		}
	}

	ctrl := controller.New(a.factory, a.controllerOptions(printer.OnUpdate))

	// Ctrl+C stops the stream; the partial answer stays printed.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	done, ok := ctrl.Submit(ctx, question, atts)
	if !ok {
		return errors.New("nothing to ask")
	}

	thinking := printer.md != nil && isTerminal(errOut)
	if thinking {
		fmt.Fprint(errOut, DimStyle.Render(i18n.T(a.lang, i18n.KeyThinking)))
	}
	<-done
	if thinking {
		fmt.Fprint(errOut, "\r\x1b[K")
	}

	msgs := ctrl.Snapshot()
	last := msgs[len(msgs)-1]
	switch {
	case last.Failed:
		return &exitError{code: 1}
	case ctx.Err() != nil:
		return &exitError{code: 130}
	}
	return nil
}
