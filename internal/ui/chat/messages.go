// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/procubot-tui/internal/config"
	"github.com/jeranaias/procubot-tui/internal/controller"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// EventMsg wraps a controller event delivered through Program.Send.
type EventMsg struct {
	controller.Event
}

// ConfigReloadedMsg is sent when the config file changed on disk. Err is
// set when the new file failed to load; the running config is kept then.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// noticeExpiredMsg clears a notice unless a newer one replaced it.
type noticeExpiredMsg struct {
	id int
}

// noticeTimeout is how long a notice stays in the status bar.
const noticeTimeout = 6 * time.Second

func expireNotice(id int) tea.Cmd {
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// =============================================================================
// PROGRAM BRIDGE
// =============================================================================

// Bridge forwards messages from other goroutines (controller updates, the
// config watcher) into a running tea.Program.
//
// Send never blocks: Program.Send waits for the event loop, and the
// controller emits its reset event synchronously, including from inside
// Update. Messages are queued and delivered in order by one pump goroutine.
// Messages sent before Attach are dropped; the model reads a fresh snapshot
// when it starts.
type Bridge struct {
	mu     sync.Mutex
	p      Sender
	queue  []tea.Msg
	closed bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// Sender receives messages; *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach connects the bridge to a program and starts delivery.
func (b *Bridge) Attach(p Sender) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
	b.once.Do(func() { go b.pump() })
}

// Close stops delivery. Queued messages are dropped.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		b.queue = nil
		close(b.done)
	}
}

// Send queues msg for the program if one is attached.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	if b.p == nil || b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) pump() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}

		b.mu.Lock()
		msgs, p := b.queue, b.p
		b.queue = nil
		b.mu.Unlock()

		for _, msg := range msgs {
			select {
			case <-b.done:
				return
			default:
			}
			p.Send(msg)
		}
	}
}

// OnUpdate is a controller.Options.OnUpdate callback.
func (b *Bridge) OnUpdate(ev controller.Event) {
	b.Send(EventMsg{Event: ev})
}

// OnConfigChange is a config.Watch callback. A loaded config becomes the
// global one before the model is told, so the reset it triggers reads it.
func (b *Bridge) OnConfigChange(cfg *config.Config, err error) {
	if err == nil && cfg != nil {
		config.SetGlobal(cfg)
	}
	b.Send(ConfigReloadedMsg{Config: cfg, Err: err})
}
