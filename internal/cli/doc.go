// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires ProcuBot's front ends to the conversation controller.
//
// The command tree is built with cobra. Running procubot without a command
// opens the full-screen chat TUI; the subcommands cover line-mode use:
//
//   - chat: interactive REPL with history, tab completion and slash commands
//   - ask: one question, answer streamed to stdout (question may come on stdin)
//   - config: show, path, init, get and set configuration values
//   - stats: usage of past sessions, or the last session's metrics
//
// Global flags (--config, --provider, --model, --lang, --search, --log-level)
// override the config file and environment for a single run.
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
//
// Every front end shares one app: config, provider factory, metrics, usage
// storage and a file logger. Closing the app persists the session's usage.
package cli
