// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeranaias/procubot-tui/internal/classify"
	"github.com/jeranaias/procubot-tui/internal/controller"
)

const namespace = "procubot"

// latencyBuckets covers sub-second first fragments through multi-minute
// document analyses.
var latencyBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 90, 180, 300}

// =============================================================================
// METRICS
// =============================================================================

// Metrics collects turn metrics. It is safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	turns         *prometheus.CounterVec
	turnErrors    *prometheus.CounterVec
	resets        *prometheus.CounterVec
	fragments     prometheus.Counter
	citations     prometheus.Counter
	attachments   prometheus.Counter
	inFlight      prometheus.Gauge
	firstFragment prometheus.Histogram
	turnDuration  prometheus.Histogram

	mu    sync.Mutex
	usage SessionUsage
}

var _ controller.Observer = (*Metrics)(nil)

// New creates a Metrics with its own registry and a fresh session usage.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		usage:    newSessionUsage(time.Now()),

		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns finished, by outcome.",
		}, []string{"outcome"}),
		turnErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_errors_total",
			Help:      "Failed turns, by error class.",
		}, []string{"class"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Conversation resets, by session creation result.",
		}, []string{"result"}),
		fragments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Stream fragments received.",
		}),
		citations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_total",
			Help:      "Distinct web citations received.",
		}),
		attachments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_total",
			Help:      "Attachments sent with user turns.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turn_in_flight",
			Help:      "1 while a turn is streaming.",
		}),
		firstFragment: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_fragment_seconds",
			Help:      "Time from submit to the first fragment.",
			Buckets:   latencyBuckets,
		}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from submit to the end of the turn.",
			Buckets:   latencyBuckets,
		}),
	}

	// Pre-create every label value so that a textfile written after a quiet
	// session still lists each series at zero.
	for _, o := range controller.Outcomes {
		m.turns.WithLabelValues(string(o))
	}
	for _, k := range classify.Kinds {
		m.turnErrors.WithLabelValues(string(k))
	}
	m.resets.WithLabelValues("ok")
	m.resets.WithLabelValues("failed")

	start := m.usage.StartTime
	m.registry.MustRegister(
		m.turns, m.turnErrors, m.resets,
		m.fragments, m.citations, m.attachments,
		m.inFlight, m.firstFragment, m.turnDuration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_uptime_seconds",
			Help:      "Seconds since the session started.",
		}, func() float64 { return time.Since(start).Seconds() }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Current heap allocation in bytes.",
		}, func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		}),
	)
	return m
}

// Registry returns the private registry, for exposition or tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric in the node_exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Usage returns a copy of the running session usage.
func (m *Metrics) Usage() SessionUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage.clone()
}

// EndSession stamps the end time and returns the final usage.
func (m *Metrics) EndSession() SessionUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.EndTime = time.Now()
	return m.usage.clone()
}

// =============================================================================
// OBSERVER
// =============================================================================

// TurnStarted implements controller.Observer.
func (m *Metrics) TurnStarted(attachments int) {
	m.inFlight.Set(1)
	m.attachments.Add(float64(attachments))

	m.mu.Lock()
	m.usage.Attachments += attachments
	m.mu.Unlock()
}

// FirstFragment implements controller.Observer.
func (m *Metrics) FirstFragment(latency time.Duration) {
	m.firstFragment.Observe(latency.Seconds())

	m.mu.Lock()
	m.usage.FirstFragments++
	m.usage.FirstFragmentTotal += latency
	m.mu.Unlock()
}

// Fragment implements controller.Observer.
func (m *Metrics) Fragment(newCitations int) {
	m.fragments.Inc()
	m.citations.Add(float64(newCitations))

	m.mu.Lock()
	m.usage.Fragments++
	m.usage.Citations += newCitations
	m.mu.Unlock()
}

// TurnFinished implements controller.Observer.
func (m *Metrics) TurnFinished(outcome controller.Outcome, kind classify.Kind, elapsed time.Duration) {
	m.inFlight.Set(0)
	m.turns.WithLabelValues(string(outcome)).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
	if outcome == controller.OutcomeError {
		m.turnErrors.WithLabelValues(string(kind)).Inc()
	}

	m.mu.Lock()
	m.usage.record(outcome, kind, elapsed)
	m.mu.Unlock()
}

// SessionReset implements controller.Observer.
func (m *Metrics) SessionReset(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.resets.WithLabelValues(result).Inc()

	m.mu.Lock()
	m.usage.Resets++
	if err != nil {
		m.usage.FailedResets++
	}
	m.mu.Unlock()
}
