// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/procubot-tui/internal/classify"
	"github.com/jeranaias/procubot-tui/internal/controller"
)

// =============================================================================
// SESSION USAGE
// =============================================================================

// sessionIDCounter ensures unique session IDs even when created rapidly
var sessionIDCounter uint64

// SessionUsage is the usage summary of one procubot run.
type SessionUsage struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	// Turns by outcome
	Turns     int `json:"turns"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Discarded int `json:"discarded"`

	// Errors counts failed turns by class
	Errors map[classify.Kind]int `json:"errors,omitempty"`

	Attachments  int `json:"attachments"`
	Fragments    int `json:"fragments"`
	Citations    int `json:"citations"`
	Resets       int `json:"resets"`
	FailedResets int `json:"failed_resets"`

	// Latency
	StreamTime         time.Duration `json:"stream_time"`
	FirstFragments     int           `json:"first_fragments"`
	FirstFragmentTotal time.Duration `json:"first_fragment_total"`
}

func newSessionUsage(now time.Time) SessionUsage {
	return SessionUsage{
		ID:        generateSessionID(now),
		StartTime: now,
		Errors:    make(map[classify.Kind]int),
	}
}

// generateSessionID returns a sortable id: YYYYMMDD-HHMMSS-counter.
func generateSessionID(now time.Time) string {
	n := atomic.AddUint64(&sessionIDCounter, 1)
	return fmt.Sprintf("%s-%06d", now.Format("20060102-150405"), n%1000000)
}

func (u *SessionUsage) record(outcome controller.Outcome, kind classify.Kind, elapsed time.Duration) {
	u.Turns++
	u.StreamTime += elapsed
	switch outcome {
	case controller.OutcomeSuccess:
		u.Succeeded++
	case controller.OutcomeError:
		u.Failed++
		if u.Errors == nil {
			u.Errors = make(map[classify.Kind]int)
		}
		u.Errors[kind]++
	case controller.OutcomeCancelled:
		u.Cancelled++
	case controller.OutcomeStale:
		u.Discarded++
	}
}

func (u SessionUsage) clone() SessionUsage {
	u.Errors = maps.Clone(u.Errors)
	return u
}

// AvgFirstFragment returns the mean time to first fragment, or 0.
func (u SessionUsage) AvgFirstFragment() time.Duration {
	if u.FirstFragments == 0 {
		return 0
	}
	return u.FirstFragmentTotal / time.Duration(u.FirstFragments)
}

// SuccessRate returns the fraction of turns that succeeded, or 0.
func (u SessionUsage) SuccessRate() float64 {
	if u.Turns == 0 {
		return 0
	}
	return float64(u.Succeeded) / float64(u.Turns)
}

// Summary renders the usage of this session in a few lines.
func (u SessionUsage) Summary() string {
	var sb strings.Builder
	sb.WriteString("This session:\n")
	fmt.Fprintf(&sb, "  Turns:       %d (%d ok, %d failed, %d cancelled)\n", u.Turns, u.Succeeded, u.Failed, u.Cancelled)
	fmt.Fprintf(&sb, "  Attachments: %d\n", u.Attachments)
	fmt.Fprintf(&sb, "  Citations:   %d\n", u.Citations)
	if avg := u.AvgFirstFragment(); avg > 0 {
		fmt.Fprintf(&sb, "  First reply: %s avg\n", avg.Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "  Started:     %s", humanize.Time(u.StartTime))
	return sb.String()
}

// =============================================================================
// TRENDS
// =============================================================================

// Trends aggregates stored sessions over a number of days.
type Trends struct {
	Days     int          `json:"days"`
	Sessions int          `json:"sessions"`
	Total    SessionUsage `json:"total"`
	Daily    []DailyUsage `json:"daily"`
}

// DailyUsage is the usage of one calendar day.
type DailyUsage struct {
	Date      time.Time `json:"date"`
	Sessions  int       `json:"sessions"`
	Turns     int       `json:"turns"`
	Failed    int       `json:"failed"`
	Citations int       `json:"citations"`
}

// Aggregate folds sessions into trends, one DailyUsage per day in date order.
func Aggregate(days int, sessions []SessionUsage) Trends {
	tr := Trends{
		Days:     days,
		Sessions: len(sessions),
		Total:    SessionUsage{Errors: make(map[classify.Kind]int)},
		Daily:    make([]DailyUsage, 0),
	}

	daily := make(map[string]*DailyUsage)
	for _, s := range sessions {
		key := s.StartTime.Format("2006-01-02")
		d, ok := daily[key]
		if !ok {
			y, mo, dd := s.StartTime.Date()
			d = &DailyUsage{Date: time.Date(y, mo, dd, 0, 0, 0, 0, s.StartTime.Location())}
			daily[key] = d
		}
		d.Sessions++
		d.Turns += s.Turns
		d.Failed += s.Failed
		d.Citations += s.Citations

		t := &tr.Total
		t.Turns += s.Turns
		t.Succeeded += s.Succeeded
		t.Failed += s.Failed
		t.Cancelled += s.Cancelled
		t.Discarded += s.Discarded
		t.Attachments += s.Attachments
		t.Fragments += s.Fragments
		t.Citations += s.Citations
		t.Resets += s.Resets
		t.FailedResets += s.FailedResets
		t.StreamTime += s.StreamTime
		t.FirstFragments += s.FirstFragments
		t.FirstFragmentTotal += s.FirstFragmentTotal
		for k, n := range s.Errors {
			t.Errors[k] += n
		}
	}

	for _, key := range slices.Sorted(maps.Keys(daily)) {
		tr.Daily = append(tr.Daily, *daily[key])
	}
	return tr
}

// Format renders the trends as a plain-text report.
func (tr Trends) Format() string {
	var sb strings.Builder
	t := tr.Total

	fmt.Fprintf(&sb, "Usage over the last %d days (%s sessions)\n\n", tr.Days, humanize.Comma(int64(tr.Sessions)))
	fmt.Fprintf(&sb, "  Turns:          %s\n", humanize.Comma(int64(t.Turns)))
	fmt.Fprintf(&sb, "  Succeeded:      %s (%.0f%%)\n", humanize.Comma(int64(t.Succeeded)), t.SuccessRate()*100)
	fmt.Fprintf(&sb, "  Failed:         %s\n", humanize.Comma(int64(t.Failed)))
	fmt.Fprintf(&sb, "  Cancelled:      %s\n", humanize.Comma(int64(t.Cancelled)))
	fmt.Fprintf(&sb, "  Attachments:    %s\n", humanize.Comma(int64(t.Attachments)))
	fmt.Fprintf(&sb, "  Citations:      %s\n", humanize.Comma(int64(t.Citations)))
	fmt.Fprintf(&sb, "  Resets:         %s\n", humanize.Comma(int64(t.Resets)))
	if avg := t.AvgFirstFragment(); avg > 0 {
		fmt.Fprintf(&sb, "  First fragment: %s avg\n", avg.Round(time.Millisecond))
	}

	if t.Failed > 0 {
		sb.WriteString("\nErrors by class:\n")
		for _, k := range classify.Kinds {
			if n := t.Errors[k]; n > 0 {
				fmt.Fprintf(&sb, "  %-17s %s\n", k+":", humanize.Comma(int64(n)))
			}
		}
	}

	if len(tr.Daily) > 0 {
		sb.WriteString("\nDaily:\n")
		for _, d := range tr.Daily {
			fmt.Fprintf(&sb, "  %s  %3d sessions  %4d turns  %3d failed\n",
				d.Date.Format("2006-01-02"), d.Sessions, d.Turns, d.Failed)
		}
	}
	return sb.String()
}
