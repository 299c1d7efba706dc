// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand builds the procubot command tree. Without a subcommand it
// runs the TUI.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "procubot",
		Short: "Bilingual procurement assistant for the terminal",
		Long: `ProcuBot is a procurement assistant that answers in English or
Traditional Chinese. Ask questions, attach RFQs, contracts, images or
voice notes, and read streamed answers with their web sources.

Run without a command to open the chat TUI.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(flags)
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true
	flags.register(root)

	root.AddCommand(
		newChatCommand(flags),
		newAskCommand(flags),
		newConfigCommand(flags),
		newStatsCommand(flags),
	)
	return root
}

// exitError ends the process with a status after the command has already
// reported the problem itself.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := NewRootCommand().Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+err.Error())
	return 1
}
