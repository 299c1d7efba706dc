// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view of the ProcuBot TUI.

The view is a Bubble Tea model layered over a controller.Controller. The
controller owns the conversation and the provider session; the view only
draws snapshots of it and turns keys and slash commands into controller
calls.

# Key Components

## Model (model.go)

The Model struct holds view state only:
  - The conversation as last drawn, refreshed from Controller.Snapshot
  - A textarea input box and a scrolling viewport
  - A spinner shown while the first fragment of a reply is awaited
  - A status line with transient notices

## Update (update.go)

Keys, slash commands and controller events are handled here. Enter sends
the input together with the queued attachments; Esc stops a recording or
the streaming turn; Ctrl+R starts a new chat; Ctrl+L toggles between
English and Traditional Chinese.

## Bridge (messages.go)

Controller events and config reloads arrive on other goroutines. The
Bridge queues them and feeds them to the running tea.Program without ever
blocking the caller.

## Streaming (streaming.go)

Streaming fragments are coalesced: redraws are capped by a rate limiter
and a late fragment schedules a single deferred redraw.

# Usage

	bridge := chat.NewBridge()
	ctrl := controller.New(factory, controller.Options{OnUpdate: bridge.OnUpdate})
	m := chat.New(chat.Deps{
		Controller: ctrl,
		Commands:   commands.NewContext(ctrl, nil, recorder, nil),
		Theme:      theme,
		Renderer:   render.New(theme, "monokai"),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	bridge.Attach(p)
	_, err := p.Run()
*/
package chat
