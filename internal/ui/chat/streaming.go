// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"
)

// =============================================================================
// STREAMING REDRAW THROTTLE
// =============================================================================

// defaultMaxFPS caps redraws while a response streams.
const defaultMaxFPS = 30

// redrawMsg asks for a deferred redraw of the conversation.
type redrawMsg struct{}

// redrawThrottle rate-limits redraws caused by streaming fragments. A
// fragment that arrives too early schedules one deferred redraw instead, so
// the latest text is always drawn within one frame.
//
// STREAMING: only streaming updates go through the throttle. Turn ends and
// resets always draw immediately, so the final state is never skipped.
type redrawThrottle struct {
	limiter  *rate.Limiter
	interval time.Duration
	pending  bool
}

func newRedrawThrottle(maxFPS int) *redrawThrottle {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &redrawThrottle{
		limiter:  rate.NewLimiter(rate.Limit(maxFPS), 1),
		interval: time.Second / time.Duration(maxFPS),
	}
}

// streaming reports whether a streaming update may redraw now. When it may
// not and no redraw is scheduled yet, the returned command delivers one.
func (t *redrawThrottle) streaming() (bool, tea.Cmd) {
	if t.limiter.Allow() {
		return true, nil
	}
	if t.pending {
		return false, nil
	}
	t.pending = true
	return false, tea.Tick(t.interval, func(time.Time) tea.Msg {
		return redrawMsg{}
	})
}

// flushed marks the deferred redraw as done.
func (t *redrawThrottle) flushed() {
	t.pending = false
}
