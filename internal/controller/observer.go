// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"time"

	"github.com/jeranaias/procubot-tui/internal/classify"
	"github.com/jeranaias/procubot-tui/internal/model"
)

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is how a turn ended.
type Outcome string

const (
	// OutcomeSuccess means the stream completed normally.
	OutcomeSuccess Outcome = "success"
	// OutcomeError means the placeholder now holds a classified error.
	OutcomeError Outcome = "error"
	// OutcomeCancelled means the user stopped the turn.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeStale means a reset superseded the turn and its writes were dropped.
	OutcomeStale Outcome = "stale"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeError, OutcomeCancelled, OutcomeStale}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind tags an Event.
type EventKind int

const (
	// EventMessage means a message was added or rewritten.
	EventMessage EventKind = iota
	// EventTurnDone means a turn finished and the controller is idle again.
	EventTurnDone
	// EventReset means the conversation was replaced.
	EventReset
)

// Event is delivered to Options.OnUpdate. It is always sent with the
// controller unlocked, so handlers may call back into the controller.
type Event struct {
	Kind EventKind

	// Message is a copy of the affected message (EventMessage, EventTurnDone)
	Message model.Message

	// Outcome is set for EventTurnDone
	Outcome Outcome
}

// =============================================================================
// OBSERVER
// =============================================================================

// Observer receives turn lifecycle callbacks. The telemetry package
// implements it with Prometheus collectors.
type Observer interface {
	TurnStarted(attachments int)
	FirstFragment(latency time.Duration)
	Fragment(newCitations int)
	TurnFinished(outcome Outcome, kind classify.Kind, elapsed time.Duration)
	SessionReset(err error)
}

type nopObserver struct{}

func (nopObserver) TurnStarted(int)                                    {}
func (nopObserver) FirstFragment(time.Duration)                        {}
func (nopObserver) Fragment(int)                                       {}
func (nopObserver) TurnFinished(Outcome, classify.Kind, time.Duration) {}
func (nopObserver) SessionReset(error)                                 {}
