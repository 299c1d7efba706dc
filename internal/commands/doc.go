// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the TUI and
// the line-mode REPL.
//
// Handlers act on a [Context] and return a tea.Cmd whose message tells the
// front end what to show. The REPL runs the command inline and switches on
// the same message types.
//
// # Built-in Commands
//
//   - /attach, /detach: queue files for the next message
//   - /voice, /record: send a voice message
//   - /open: open an attachment of the last message
//   - /sources: list the citations of the last response
//   - /reset, /cancel, /lang, /stats
//   - /help, /quit
//
// # Usage
//
//	result := parser.Parse(input)
//	if result.IsCommand {
//	    return registry.Execute(ctx, result)
//	}
package commands
