// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/procubot-tui/internal/classify"
	"github.com/jeranaias/procubot-tui/internal/controller"
)

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics_TurnLifecycle(t *testing.T) {
	m := New()

	m.SessionReset(nil)
	m.TurnStarted(2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	m.FirstFragment(300 * time.Millisecond)
	m.Fragment(1)
	m.Fragment(0)
	m.TurnFinished(controller.OutcomeSuccess, classify.KindUnknown, time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fragments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.citations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.attachments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.turnErrors.WithLabelValues("timeout")))

	u := m.Usage()
	assert.Equal(t, 1, u.Turns)
	assert.Equal(t, 1, u.Succeeded)
	assert.Equal(t, 2, u.Fragments)
	assert.Equal(t, 300*time.Millisecond, u.AvgFirstFragment())
	assert.Equal(t, 1.0, u.SuccessRate())
}

func TestMetrics_Errors(t *testing.T) {
	m := New()

	m.TurnFinished(controller.OutcomeError, classify.KindRateLimit, time.Second)
	m.TurnFinished(controller.OutcomeError, classify.KindRateLimit, time.Second)
	m.TurnFinished(controller.OutcomeError, classify.KindSafety, time.Second)
	m.TurnFinished(controller.OutcomeCancelled, classify.KindUnknown, time.Second)
	m.TurnFinished(controller.OutcomeStale, classify.KindUnknown, time.Second)
	m.SessionReset(errors.New("no key"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.turns.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnErrors.WithLabelValues("rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnErrors.WithLabelValues("safety")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.turnErrors.WithLabelValues("unknown")),
		"cancelled and stale turns are not errors")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets.WithLabelValues("failed")))

	u := m.Usage()
	assert.Equal(t, 5, u.Turns)
	assert.Equal(t, 3, u.Failed)
	assert.Equal(t, 1, u.Cancelled)
	assert.Equal(t, 1, u.Discarded)
	assert.Equal(t, 2, u.Errors[classify.KindRateLimit])
	assert.Equal(t, 1, u.FailedResets)
}

func TestMetrics_UsageIsCopy(t *testing.T) {
	m := New()
	m.TurnFinished(controller.OutcomeError, classify.KindSafety, time.Second)

	u := m.Usage()
	u.Errors[classify.KindSafety] = 99
	assert.Equal(t, 1, m.Usage().Errors[classify.KindSafety])
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.TurnFinished(controller.OutcomeSuccess, classify.KindUnknown, time.Second)

	path := filepath.Join(t.TempDir(), "procubot.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `procubot_turns_total{outcome="success"} 1`)
	assert.Contains(t, text, `procubot_turns_total{outcome="stale"} 0`)
	assert.Contains(t, text, `procubot_turn_errors_total{class="credential"} 0`)
	assert.Contains(t, text, "procubot_session_uptime_seconds")

	assert.NoError(t, m.WriteTextfile(""))
}

func TestMetrics_Lint(t *testing.T) {
	m := New()
	problems, err := testutil.GatherAndLint(m.Registry())
	require.NoError(t, err)
	assert.Empty(t, problems)
}

// =============================================================================
// STORAGE
// =============================================================================

func TestUsageStorage_SaveLoad(t *testing.T) {
	us, err := NewUsageStorage(t.TempDir())
	require.NoError(t, err)

	u := newSessionUsage(time.Now())
	u.record(controller.OutcomeSuccess, classify.KindUnknown, time.Second)
	u.record(controller.OutcomeError, classify.KindTimeout, time.Second)
	require.NoError(t, us.Save(u))

	got, err := us.Load(u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 2, got.Turns)
	assert.Equal(t, 1, got.Errors[classify.KindTimeout])

	n, err := us.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUsageStorage_SkipsIdleSessions(t *testing.T) {
	us, err := NewUsageStorage(t.TempDir())
	require.NoError(t, err)

	u := newSessionUsage(time.Now())
	u.Resets = 1
	require.NoError(t, us.Save(u))

	n, err := us.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, us.Save(SessionUsage{Turns: 1}), "missing id")
}

func TestUsageStorage_ListAndTrends(t *testing.T) {
	dir := t.TempDir()
	us, err := NewUsageStorage(dir)
	require.NoError(t, err)

	now := time.Now()
	for _, offset := range []int{0, 0, -2, -40} {
		u := newSessionUsage(now.AddDate(0, 0, offset))
		u.record(controller.OutcomeSuccess, classify.KindUnknown, time.Second)
		u.record(controller.OutcomeError, classify.KindRateLimit, time.Second)
		u.Citations = 3
		require.NoError(t, us.Save(u))
	}
	// Noise the scanner must ignore.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0700))

	ids, err := us.List(now.AddDate(0, 0, -7), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.True(t, strings.Compare(ids[0], ids[2]) < 0, "oldest first")

	tr, err := us.Trends(7)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Sessions)
	assert.Equal(t, 6, tr.Total.Turns)
	assert.Equal(t, 3, tr.Total.Errors[classify.KindRateLimit])
	require.Len(t, tr.Daily, 2)
	assert.True(t, tr.Daily[0].Date.Before(tr.Daily[1].Date))
	assert.Equal(t, 2, tr.Daily[1].Sessions)

	removed, err := us.DeleteBefore(now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestTrendsFormat(t *testing.T) {
	u := newSessionUsage(time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local))
	for i := 0; i < 1200; i++ {
		u.record(controller.OutcomeSuccess, classify.KindUnknown, time.Second)
	}
	u.record(controller.OutcomeError, classify.KindSafety, time.Second)
	u.FirstFragments = 2
	u.FirstFragmentTotal = 3 * time.Second

	out := Aggregate(7, []SessionUsage{u}).Format()
	assert.Contains(t, out, "Turns:          1,201")
	assert.Contains(t, out, "safety:")
	assert.Contains(t, out, "First fragment: 1.5s avg")
	assert.Contains(t, out, "2025-03-01")

	empty := Aggregate(7, nil).Format()
	assert.Contains(t, empty, "(0 sessions)")
	assert.NotContains(t, empty, "Daily:")
}

func TestSessionUsageSummary(t *testing.T) {
	u := newSessionUsage(time.Now().Add(-time.Hour))
	u.record(controller.OutcomeSuccess, classify.KindUnknown, time.Second)
	u.record(controller.OutcomeCancelled, classify.KindUnknown, time.Second)
	u.Citations = 4

	out := u.Summary()
	assert.Contains(t, out, "Turns:       2 (1 ok, 0 failed, 1 cancelled)")
	assert.Contains(t, out, "Citations:   4")
	assert.Contains(t, out, "1 hour ago")
	assert.NotContains(t, out, "First reply")
}
