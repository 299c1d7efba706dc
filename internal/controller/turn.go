// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/classify"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/provider"
)

// errStale ends fragment consumption once a reset has superseded the turn.
var errStale = errors.New("turn superseded")

// turn is the state captured when a submission is accepted.
type turn struct {
	epoch         uint64
	placeholderID string
	session       provider.Session
	sessionErr    error
	lang          language.Tag
	payload       provider.Payload
	attachments   int
	started       time.Time
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit starts a turn. It returns false and changes nothing when the
// submission is blank (whitespace-only text and no attachments) or another
// turn is in flight. Otherwise the USER message and an empty MODEL
// placeholder are appended before Submit returns, and the stream is consumed
// in the background; done is closed when the turn has finished.
func (c *Controller) Submit(ctx context.Context, text string, attachments []model.Attachment) (done <-chan struct{}, ok bool) {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return nil, false
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.log.Debug("submit_ignored", zap.String("reason", "in_flight"))
		return nil, false
	}

	user := model.NewUserMessage(text, attachments)
	placeholder := model.NewPlaceholder()
	c.conv.AddMessage(user)
	c.conv.AddMessage(placeholder)

	turnCtx, cancel := context.WithCancelCause(ctx)
	c.inFlight = true
	c.cancelTurn = cancel
	t := turn{
		epoch:         c.epoch,
		placeholderID: placeholder.ID,
		session:       c.session,
		sessionErr:    c.sessionErr,
		lang:          c.lang,
		payload:       provider.BuildPayload(text, attachments),
		attachments:   len(attachments),
		started:       time.Now(),
	}
	userCopy, placeholderCopy := user.Clone(), placeholder.Clone()
	c.mu.Unlock()

	c.emit(Event{Kind: EventMessage, Message: userCopy})
	c.emit(Event{Kind: EventMessage, Message: placeholderCopy})

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		defer cancel(nil)
		outcome := OutcomeError
		defer func() { c.finish(t, outcome) }()
		outcome = c.run(turnCtx, t)
	}()
	return ch, true
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// run consumes the stream and writes the final state of the placeholder.
func (c *Controller) run(ctx context.Context, t turn) Outcome {
	c.obs.TurnStarted(t.attachments)
	c.log.Info("turn_started",
		zap.Uint64("epoch", t.epoch),
		zap.String("payload", t.payload.Kind().String()),
		zap.Int("attachments", t.attachments))

	text, err := c.stream(ctx, t)
	elapsed := time.Since(t.started)

	switch {
	case errors.Is(err, errStale):
		return c.stale(t, elapsed)

	case err == nil:
		if !c.apply(t, func(m *model.Message) { m.IsStreaming = false }) {
			return c.stale(t, elapsed)
		}
		c.log.Info("turn_completed",
			zap.Uint64("epoch", t.epoch),
			zap.Int("chars", len(text)),
			zap.Duration("elapsed", elapsed))
		c.obs.TurnFinished(OutcomeSuccess, classify.KindUnknown, elapsed)
		return OutcomeSuccess

	case errors.Is(err, ErrCancelled):
		stopped := i18n.T(t.lang, i18n.KeyStopped)
		if !c.apply(t, func(m *model.Message) {
			m.IsStreaming = false
			if text == "" {
				m.Text = stopped
			}
		}) {
			return c.stale(t, elapsed)
		}
		c.log.Info("turn_cancelled", zap.Uint64("epoch", t.epoch), zap.Int("chars", len(text)))
		c.obs.TurnFinished(OutcomeCancelled, classify.KindUnknown, elapsed)
		return OutcomeCancelled
	}

	kind := c.cls.Classify(err)
	// The error text replaces anything already streamed.
	msg := i18n.ErrorMessage(t.lang, kind, err.Error())
	if !c.apply(t, func(m *model.Message) {
		m.Text = msg
		m.Sources = nil
		m.IsStreaming = false
		m.Failed = true
	}) {
		return c.stale(t, elapsed)
	}
	c.log.Warn("stream_failed",
		zap.Uint64("epoch", t.epoch),
		zap.String("class", string(kind)),
		zap.Int("partial_chars", len(text)),
		zap.Error(err))
	c.obs.TurnFinished(OutcomeError, kind, elapsed)
	return OutcomeError
}

// stream opens the session stream and accumulates fragments into the
// placeholder. It returns the accumulated text and the turn's error, with
// cancellation causes resolved to ErrCancelled, provider.ErrTimeout or
// errStale.
func (c *Controller) stream(ctx context.Context, t turn) (string, error) {
	if t.session == nil {
		err := t.sessionErr
		if err == nil {
			err = provider.ErrMissingCredential
		}
		return "", err
	}

	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.opts.RequestTimeout, provider.ErrTimeout)
		defer cancel()
	}

	// STREAMING: the idle watchdog is re-armed by every fragment, so a slow
	// but steady stream is never cut off.
	var watchdog *time.Timer
	if c.opts.IdleTimeout > 0 {
		idleCtx, idleCancel := context.WithCancelCause(ctx)
		defer idleCancel(nil)
		watchdog = time.AfterFunc(c.opts.IdleTimeout, func() { idleCancel(provider.ErrTimeout) })
		defer watchdog.Stop()
		ctx = idleCtx
	}

	var (
		acc   strings.Builder
		cites model.CitationSet
		first = true
	)
	err := func() error {
		s, err := t.session.SendStreaming(ctx, t.payload)
		if err != nil {
			return err
		}
		for frag, err := range s {
			if err != nil {
				return err
			}
			if watchdog != nil {
				watchdog.Reset(c.opts.IdleTimeout)
			}
			if first {
				first = false
				c.obs.FirstFragment(time.Since(t.started))
			}
			acc.WriteString(frag.TextDelta)
			added := cites.Add(frag.Citations...)
			c.obs.Fragment(added)

			text, sources := acc.String(), cites.List()
			if !c.apply(t, func(m *model.Message) {
				m.Text = text
				m.Sources = sources
			}) {
				return errStale
			}
		}
		return nil
	}()
	if err != nil {
		err = resolveCause(ctx, err)
	}
	return acc.String(), err
}

// resolveCause maps a context error back to the reason the turn's context
// was cancelled.
func resolveCause(ctx context.Context, err error) error {
	if errors.Is(err, errStale) {
		return err
	}
	cause := context.Cause(ctx)
	switch {
	case cause == nil:
		return err
	case errors.Is(cause, errReset):
		return errStale
	case errors.Is(cause, ErrCancelled), errors.Is(cause, context.Canceled):
		return ErrCancelled
	case errors.Is(cause, provider.ErrTimeout):
		return provider.ErrTimeout
	}
	return err
}

// =============================================================================
// STATE UPDATES
// =============================================================================

// apply mutates the turn's placeholder if the turn is still current and
// emits the change. It returns false when a reset has superseded the turn.
func (c *Controller) apply(t turn, fn func(*model.Message)) bool {
	c.mu.Lock()
	if c.epoch != t.epoch {
		c.mu.Unlock()
		return false
	}
	var msg model.Message
	ok := c.conv.Update(t.placeholderID, func(m *model.Message) {
		fn(m)
		msg = m.Clone()
	})
	c.mu.Unlock()

	if ok {
		c.emit(Event{Kind: EventMessage, Message: msg})
	}
	return ok
}

func (c *Controller) stale(t turn, elapsed time.Duration) Outcome {
	c.log.Info("turn_discarded", zap.Uint64("epoch", t.epoch), zap.Duration("elapsed", elapsed))
	c.obs.TurnFinished(OutcomeStale, classify.KindUnknown, elapsed)
	return OutcomeStale
}

// finish clears the in-flight flag, but only for the epoch that set it: a
// turn outliving a reset must not unlock the turn that replaced it.
func (c *Controller) finish(t turn, outcome Outcome) {
	c.mu.Lock()
	if c.epoch != t.epoch {
		c.mu.Unlock()
		return
	}
	c.inFlight = false
	c.cancelTurn = nil
	var msg model.Message
	if m := c.conv.GetMessageByID(t.placeholderID); m != nil {
		msg = m.Clone()
	}
	c.mu.Unlock()

	c.emit(Event{Kind: EventTurnDone, Message: msg, Outcome: outcome})
}
