// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller owns the conversation and runs one streaming turn at a
// time against a provider session.
//
// The controller is the only writer of the conversation. Each turn appends
// a USER message and an empty MODEL placeholder, then rewrites the
// placeholder with the accumulated text and citations as fragments arrive.
// A reset bumps an epoch counter; writes from a turn started under an older
// epoch are dropped, so a superseded stream can never touch the new
// conversation or release the new turn's in-flight flag.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/classify"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/provider"
)

var (
	// ErrCancelled is the cancellation cause of a turn stopped by Cancel.
	ErrCancelled = errors.New("response cancelled")

	// errReset is the cancellation cause of a turn superseded by Reset.
	errReset = errors.New("conversation reset")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Controller. The zero value is usable.
type Options struct {
	// Config returns the session config. It is called on every reset so that
	// a corrected API key takes effect without a restart.
	Config func() provider.Config

	// Language used for the greeting and error messages
	Language language.Tag

	// IdleTimeout fails a turn when no fragment arrives for this long (0 = none)
	IdleTimeout time.Duration

	// RequestTimeout bounds a whole turn (0 = none)
	RequestTimeout time.Duration

	// OnUpdate is called after every change to the conversation
	OnUpdate func(Event)

	// Observer receives turn metrics
	Observer Observer

	// Logger defaults to logging.L()
	Logger *zap.Logger

	// Classifier defaults to classify.Default()
	Classifier *classify.Matcher
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs a single conversation. All methods are safe for
// concurrent use.
type Controller struct {
	factory provider.Factory
	opts    Options
	log     *zap.Logger
	obs     Observer
	cls     *classify.Matcher

	mu         sync.Mutex
	conv       *model.Conversation
	session    provider.Session
	sessionErr error
	lang       language.Tag
	inFlight   bool
	epoch      uint64
	cancelTurn context.CancelCauseFunc
}

// New creates a controller and initializes its first session. A factory
// failure is not returned: the conversation instead holds a single
// configuration-error message, and Reset retries.
func New(factory provider.Factory, opts Options) *Controller {
	c := &Controller{
		factory: factory,
		opts:    opts,
		log:     opts.Logger,
		obs:     opts.Observer,
		cls:     opts.Classifier,
		lang:    opts.Language,
	}
	if c.log == nil {
		c.log = logging.L()
	}
	if c.obs == nil {
		c.obs = nopObserver{}
	}
	if c.cls == nil {
		c.cls = classify.Default()
	}
	if c.lang == (language.Tag{}) {
		c.lang = i18n.English
	}
	c.Reset()
	return c
}

// Reset discards the conversation and any in-flight turn, creates a fresh
// session and leaves exactly one MODEL message: the greeting, or a
// configuration error when the session could not be created.
func (c *Controller) Reset() {
	cfg := provider.Config{}
	if c.opts.Config != nil {
		cfg = c.opts.Config()
	}
	sess, err := c.factory(cfg)

	c.mu.Lock()
	if c.cancelTurn != nil {
		c.cancelTurn(errReset)
		c.cancelTurn = nil
	}
	c.epoch++
	c.inFlight = false

	var first *model.Message
	if err != nil {
		c.session = nil
		c.sessionErr = err
		first = model.NewModelMessage(i18n.ErrorMessage(c.lang, c.cls.Classify(err), err.Error()))
		first.Failed = true
	} else {
		c.session = sess
		c.sessionErr = nil
		first = model.NewModelMessage(i18n.T(c.lang, i18n.KeyGreeting))
	}
	c.conv = model.NewConversation(first)
	msg := first.Clone()
	epoch := c.epoch
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("session_init_failed", zap.Uint64("epoch", epoch), zap.Error(err))
	} else {
		c.log.Info("conversation_reset", zap.Uint64("epoch", epoch), zap.String("model", cfg.Model))
	}
	c.obs.SessionReset(err)
	c.emit(Event{Kind: EventReset, Message: msg})
}

// Cancel stops the in-flight turn, if any. Text streamed so far is kept.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelTurn == nil {
		return false
	}
	c.cancelTurn(ErrCancelled)
	return true
}

// Snapshot returns a copy of the conversation's messages.
func (c *Controller) Snapshot() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// MessageCount returns the number of messages in the conversation.
func (c *Controller) MessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.MessageCount()
}

// LastSources returns the citations of the most recent MODEL message.
func (c *Controller) LastSources() []model.Citation {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.conv.GetLastModelMessage()
	if msg == nil {
		return nil
	}
	return append([]model.Citation(nil), msg.Sources...)
}

// InFlight reports whether a turn is streaming.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Ready reports whether a session exists. It is false after a failed init
// until a Reset succeeds.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Language returns the current display language.
func (c *Controller) Language() language.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

// SetLanguage changes the language used for later messages. Messages
// already in the conversation are not rewritten.
func (c *Controller) SetLanguage(tag language.Tag) {
	c.mu.Lock()
	c.lang = i18n.Parse(tag.String())
	c.mu.Unlock()
}

// ResolveAttachmentForDisplay returns what a viewer should open for an
// attachment: its display URL when set, otherwise a data URL built from the
// inline data.
func ResolveAttachmentForDisplay(att model.Attachment) string {
	return att.DisplaySource()
}

// emit delivers an event. Callers must not hold c.mu.
func (c *Controller) emit(ev Event) {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(ev)
	}
}
