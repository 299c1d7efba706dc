// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/classify"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/provider"
	"github.com/jeranaias/procubot-tui/internal/provider/providertest"
)

// =============================================================================
// HELPERS
// =============================================================================

type observerLog struct {
	mu        sync.Mutex
	started   []int
	firsts    int
	fragments int
	citations int
	outcomes  []Outcome
	kinds     []classify.Kind
	resets    []error
}

func (o *observerLog) TurnStarted(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, n)
}

func (o *observerLog) FirstFragment(time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.firsts++
}

func (o *observerLog) Fragment(added int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fragments++
	o.citations += added
}

func (o *observerLog) TurnFinished(outcome Outcome, kind classify.Kind, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
	o.kinds = append(o.kinds, kind)
}

func (o *observerLog) SessionReset(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets = append(o.resets, err)
}

func newController(t *testing.T, sess provider.Session, opts Options) (*Controller, *providertest.Factory) {
	t.Helper()
	f := &providertest.Factory{Session: sess}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return New(f.New, opts), f
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not finish")
	}
}

func submit(t *testing.T, c *Controller, text string, atts ...model.Attachment) <-chan struct{} {
	t.Helper()
	done, ok := c.Submit(context.Background(), text, atts)
	require.True(t, ok, "submit rejected")
	return done
}

func last(c *Controller) model.Message {
	msgs := c.Snapshot()
	return msgs[len(msgs)-1]
}

// =============================================================================
// INITIALIZATION AND RESET
// =============================================================================

func TestNew_Greeting(t *testing.T) {
	c, f := newController(t, providertest.NewSession(), Options{})

	msgs := c.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleModel, msgs[0].Role)
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyGreeting), msgs[0].Text)
	assert.False(t, msgs[0].Failed)
	assert.True(t, c.Ready())
	assert.False(t, c.InFlight())
	assert.Equal(t, 1, f.Calls())
}

func TestNew_MissingCredential(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{providertest.Frag("hi")})
	f := &providertest.Factory{Err: provider.ErrMissingCredential}
	c := New(f.New, Options{Logger: zap.NewNop()})

	msgs := c.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyErrConfig), msgs[0].Text)
	assert.True(t, msgs[0].Failed)
	assert.False(t, c.Ready())

	// A turn without a session fails with the same configuration error.
	wait(t, submit(t, c, "hello"))
	require.Equal(t, 3, c.MessageCount())
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyErrConfig), last(c).Text)
	assert.False(t, c.InFlight())

	// Fixing the credential and resetting recovers.
	f.Err = nil
	f.Session = sess
	c.Reset()
	msgs = c.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyGreeting), msgs[0].Text)
	assert.True(t, c.Ready())
}

func TestReset_ReReadsConfig(t *testing.T) {
	key := "first"
	c, f := newController(t, providertest.NewSession(), Options{
		Config: func() provider.Config { return provider.Config{Model: "m", APIKey: key} },
	})
	key = "second"
	c.Reset()

	require.Equal(t, 2, f.Calls())
	assert.Equal(t, "first", f.Configs[0].APIKey)
	assert.Equal(t, "second", f.Configs[1].APIKey)
}

func TestReset_ClearsConversation(t *testing.T) {
	c, _ := newController(t, providertest.NewSession(
		[]providertest.Step{providertest.Frag("one")},
		[]providertest.Step{providertest.Frag("two")},
	), Options{})

	wait(t, submit(t, c, "a"))
	wait(t, submit(t, c, "b"))
	require.Equal(t, 5, c.MessageCount())

	c.Reset()
	assert.Equal(t, 1, c.MessageCount())
	assert.False(t, c.InFlight())
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_TextTurn(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{
		providertest.Frag("Hel"),
		providertest.Frag("lo"),
		providertest.Frag(" there"),
	})
	c, _ := newController(t, sess, Options{})

	wait(t, submit(t, c, "  what is an RFQ?  "))

	msgs := c.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "  what is an RFQ?  ", msgs[1].Text, "user text is kept literally")
	assert.Equal(t, model.RoleModel, msgs[2].Role)
	assert.Equal(t, "Hello there", msgs[2].Text)
	assert.False(t, msgs[2].IsStreaming)
	assert.False(t, msgs[2].Failed)
	assert.False(t, c.InFlight())

	payloads := sess.Payloads()
	require.Len(t, payloads, 1)
	text, ok := payloads[0].Text()
	require.True(t, ok)
	assert.Equal(t, "  what is an RFQ?  ", text)
}

func TestSubmit_Attachments(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{providertest.Frag("Summary")})
	c, _ := newController(t, sess, Options{})

	pdf := model.Attachment{Kind: model.KindDocument, MimeType: "application/pdf", InlineData: "JVBERi0=", FileName: "quote.pdf"}
	img := model.Attachment{Kind: model.KindImage, MimeType: "image/png", InlineData: "iVBORw0=", FileName: "chart.png"}
	wait(t, submit(t, c, "compare these", pdf, img))

	msgs := c.Snapshot()
	require.Len(t, msgs, 3)
	require.Len(t, msgs[1].Attachments, 2)
	assert.Equal(t, "quote.pdf", msgs[1].Attachments[0].FileName)

	parts, ok := sess.Payloads()[0].Parts()
	require.True(t, ok)
	require.Len(t, parts, 3)
	assert.Equal(t, "compare these", parts[0].Text)
	assert.Equal(t, "application/pdf", parts[1].InlineData.MimeType)
	assert.Equal(t, "iVBORw0=", parts[2].InlineData.Data)
}

func TestSubmit_AttachmentOnly(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{providertest.Frag("ok")})
	c, _ := newController(t, sess, Options{})

	rec := model.Attachment{Kind: model.KindAudio, MimeType: "audio/webm", InlineData: "GkXf"}
	wait(t, submit(t, c, "", rec))

	parts, ok := sess.Payloads()[0].Parts()
	require.True(t, ok)
	require.Len(t, parts, 1)
	assert.True(t, parts[0].IsInline())
}

func TestSubmit_BlankIsNoOp(t *testing.T) {
	c, _ := newController(t, providertest.NewSession(), Options{})

	for _, text := range []string{"", "   ", "\n\t"} {
		done, ok := c.Submit(context.Background(), text, nil)
		assert.False(t, ok, "%q", text)
		assert.Nil(t, done)
	}
	assert.Equal(t, 1, c.MessageCount())
	assert.False(t, c.InFlight())
}

func TestSubmit_InFlightIsNoOp(t *testing.T) {
	gate := make(chan struct{})
	sess := providertest.NewSession([]providertest.Step{
		providertest.Frag("a"),
		{Fragment: provider.Fragment{TextDelta: "b"}, Gate: gate},
	})
	c, _ := newController(t, sess, Options{})

	done := submit(t, c, "first")
	assert.True(t, c.InFlight())

	_, ok := c.Submit(context.Background(), "second", nil)
	assert.False(t, ok)
	assert.Equal(t, 3, c.MessageCount())

	close(gate)
	wait(t, done)
	assert.Equal(t, "ab", last(c).Text)
	assert.Len(t, sess.Payloads(), 1)
}

func TestSubmit_CitationsDeduplicated(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{
		{Fragment: provider.Fragment{TextDelta: "A", Citations: []model.Citation{
			{Title: "FAR", URI: "https://acquisition.gov/far"},
		}}},
		{Fragment: provider.Fragment{TextDelta: "B", Citations: []model.Citation{
			{Title: "Renamed", URI: "https://acquisition.gov/far"},
			{Title: "GAO", URI: "https://gao.gov"},
			{Title: "No link"},
		}}},
	})
	obs := &observerLog{}
	c, _ := newController(t, sess, Options{Observer: obs})

	wait(t, submit(t, c, "sources?"))

	msg := last(c)
	assert.Equal(t, "AB", msg.Text)
	require.Len(t, msg.Sources, 2)
	assert.Equal(t, "FAR", msg.Sources[0].Title, "first title wins")
	assert.Equal(t, "https://gao.gov", msg.Sources[1].URI)
	assert.Equal(t, msg.Sources, c.LastSources())
	assert.Equal(t, 2, obs.citations)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestSubmit_ErrorReplacesPartial(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{
		{Fragment: provider.Fragment{TextDelta: "partial answer", Citations: []model.Citation{{URI: "https://x"}}}},
		providertest.Fail(&provider.StreamError{Partial: "partial answer", Err: provider.ErrRateLimited}),
	})
	c, _ := newController(t, sess, Options{})

	wait(t, submit(t, c, "q"))

	msg := last(c)
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyErrRateLimit), msg.Text)
	assert.NotContains(t, msg.Text, "partial answer")
	assert.Empty(t, msg.Sources)
	assert.True(t, msg.Failed)
	assert.False(t, msg.IsStreaming)
	assert.False(t, c.InFlight())
}

func TestSubmit_ErrorClasses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"credential", provider.ErrInvalidCredential, i18n.T(i18n.English, i18n.KeyErrConfig)},
		{"safety", provider.ErrSafetyBlocked, i18n.T(i18n.English, i18n.KeyErrSafety)},
		{"mime", provider.ErrUnsupportedMIME, i18n.T(i18n.English, i18n.KeyErrUnsupportedMIME)},
		{"transient", provider.ErrUnavailable, i18n.T(i18n.English, i18n.KeyErrTransient)},
		{"keyword", errors.New("HTTP 429 Too Many Requests"), i18n.T(i18n.English, i18n.KeyErrRateLimit)},
		{"unknown", errors.New("socket gremlins"), i18n.T(i18n.English, i18n.KeyErrUnknown, "socket gremlins")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := providertest.NewSession().FailOpen(tt.err)
			c, _ := newController(t, sess, Options{})

			wait(t, submit(t, c, "q"))
			assert.Equal(t, tt.want, last(c).Text)
		})
	}
}

func TestSubmit_ErrorLocalized(t *testing.T) {
	sess := providertest.NewSession().FailOpen(provider.ErrSafetyBlocked)
	c, _ := newController(t, sess, Options{Language: i18n.TraditionalChinese})

	wait(t, submit(t, c, "問題"))
	assert.Equal(t, i18n.T(i18n.TraditionalChinese, i18n.KeyErrSafety), last(c).Text)
}

func TestSubmit_IdleTimeout(t *testing.T) {
	never := make(chan struct{})
	sess := providertest.NewSession([]providertest.Step{
		providertest.Frag("slow"),
		{Gate: never},
	})
	obs := &observerLog{}
	c, _ := newController(t, sess, Options{IdleTimeout: 20 * time.Millisecond, Observer: obs})

	wait(t, submit(t, c, "q"))

	assert.Equal(t, i18n.T(i18n.English, i18n.KeyErrTimeout), last(c).Text)
	assert.Equal(t, []classify.Kind{classify.KindTimeout}, obs.kinds)
}

func TestSubmit_RequestTimeout(t *testing.T) {
	never := make(chan struct{})
	sess := providertest.NewSession([]providertest.Step{{Gate: never}})
	c, _ := newController(t, sess, Options{RequestTimeout: 20 * time.Millisecond})

	wait(t, submit(t, c, "q"))
	assert.Equal(t, i18n.T(i18n.English, i18n.KeyErrTimeout), last(c).Text)
}

// =============================================================================
// CANCELLATION AND STALE TURNS
// =============================================================================

func TestCancel_KeepsPartial(t *testing.T) {
	gate := make(chan struct{})
	sess := providertest.NewSession([]providertest.Step{
		providertest.Frag("half an ans"),
		{Fragment: provider.Fragment{TextDelta: "wer"}, Gate: gate},
	})
	obs := &observerLog{}
	c, _ := newController(t, sess, Options{Observer: obs})

	assert.False(t, c.Cancel(), "nothing in flight")

	done := submit(t, c, "q")
	require.Eventually(t, func() bool { return last(c).Text == "half an ans" }, time.Second, 5*time.Millisecond)
	assert.True(t, c.Cancel())
	wait(t, done)

	msg := last(c)
	assert.Equal(t, "half an ans", msg.Text)
	assert.False(t, msg.Failed)
	assert.False(t, msg.IsStreaming)
	assert.Equal(t, []Outcome{OutcomeCancelled}, obs.outcomes)
	assert.False(t, c.InFlight())
}

func TestCancel_EmptyResponse(t *testing.T) {
	gate := make(chan struct{})
	sess := providertest.NewSession([]providertest.Step{{Gate: gate}})
	c, _ := newController(t, sess, Options{})

	done := submit(t, c, "q")
	c.Cancel()
	wait(t, done)

	assert.Equal(t, i18n.T(i18n.English, i18n.KeyStopped), last(c).Text)
}

func TestReset_DiscardsInFlightTurn(t *testing.T) {
	gate1 := make(chan struct{})
	gate2 := make(chan struct{})
	sess := providertest.NewSession(
		[]providertest.Step{
			providertest.Frag("old"),
			{Fragment: provider.Fragment{TextDelta: " turn"}, Gate: gate1},
		},
		[]providertest.Step{
			{Fragment: provider.Fragment{TextDelta: "new turn"}, Gate: gate2},
		},
	)
	obs := &observerLog{}
	c, _ := newController(t, sess, Options{Observer: obs})

	done1 := submit(t, c, "first")
	require.Eventually(t, func() bool { return last(c).Text == "old" }, time.Second, 5*time.Millisecond)
	c.Reset()
	assert.Equal(t, 1, c.MessageCount())
	assert.False(t, c.InFlight())

	done2 := submit(t, c, "second")
	wait(t, done1)

	// The superseded turn must neither write nor release the new turn.
	assert.True(t, c.InFlight())
	msgs := c.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Empty(t, msgs[2].Text)

	close(gate2)
	wait(t, done2)
	close(gate1)

	assert.Equal(t, "new turn", last(c).Text)
	assert.False(t, c.InFlight())
	assert.Equal(t, []Outcome{OutcomeStale, OutcomeSuccess}, obs.outcomes)
}

// =============================================================================
// EVENTS AND LANGUAGE
// =============================================================================

func TestOnUpdate_Events(t *testing.T) {
	var (
		mu     sync.Mutex
		events []Event
	)
	sess := providertest.NewSession([]providertest.Step{providertest.Frag("x"), providertest.Frag("y")})
	c, _ := newController(t, sess, Options{OnUpdate: func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}})

	wait(t, submit(t, c, "q"))

	mu.Lock()
	defer mu.Unlock()
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	// reset, user, placeholder, two fragments, final state, done
	assert.Equal(t, []EventKind{
		EventReset, EventMessage, EventMessage, EventMessage, EventMessage, EventMessage, EventTurnDone,
	}, kinds)
	lastEv := events[len(events)-1]
	assert.Equal(t, OutcomeSuccess, lastEv.Outcome)
	assert.Equal(t, "xy", lastEv.Message.Text)
	assert.True(t, events[2].Message.IsStreaming)
}

func TestOnUpdate_CanCallBack(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{providertest.Frag("x")})
	var counts []int
	var c *Controller
	c, _ = newController(t, sess, Options{OnUpdate: func(ev Event) {
		if c != nil && ev.Kind == EventTurnDone {
			counts = append(counts, c.MessageCount())
			assert.False(t, c.InFlight())
		}
	}})

	wait(t, submit(t, c, "q"))
	assert.Equal(t, []int{3}, counts)
}

func TestObserver_Lifecycle(t *testing.T) {
	sess := providertest.NewSession([]providertest.Step{providertest.Frag("a"), providertest.Frag("b")})
	obs := &observerLog{}
	c, _ := newController(t, sess, Options{Observer: obs})

	att := model.Attachment{Kind: model.KindImage, MimeType: "image/png", InlineData: "AA=="}
	wait(t, submit(t, c, "q", att))

	assert.Equal(t, []int{1}, obs.started)
	assert.Equal(t, 1, obs.firsts)
	assert.Equal(t, 2, obs.fragments)
	assert.Equal(t, []Outcome{OutcomeSuccess}, obs.outcomes)
	assert.Equal(t, []error{nil}, obs.resets)
}

func TestSetLanguage(t *testing.T) {
	c, _ := newController(t, providertest.NewSession(), Options{})
	assert.Equal(t, i18n.English, c.Language())

	c.SetLanguage(i18n.TraditionalChinese)
	assert.Equal(t, i18n.TraditionalChinese, c.Language())

	c.SetLanguage(i18n.Toggle(c.Language()))
	assert.Equal(t, i18n.English, c.Language())
}

func TestResolveAttachmentForDisplay(t *testing.T) {
	tests := []struct {
		name string
		att  model.Attachment
		want string
	}{
		{
			name: "display url wins",
			att:  model.Attachment{MimeType: "image/png", InlineData: "AA==", DisplayURL: "blob:local/1"},
			want: "blob:local/1",
		},
		{
			name: "data url from inline data",
			att:  model.Attachment{MimeType: "application/pdf", InlineData: "JVBERi0="},
			want: "data:application/pdf;base64,JVBERi0=",
		},
		{
			name: "nothing to show",
			att:  model.Attachment{MimeType: "image/png"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAttachmentForDisplay(tt.att))
		})
	}
}
