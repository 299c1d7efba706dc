// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify maps provider and transport errors onto the small set of
// user-facing error classes ProcuBot reports.
//
// Typed errors are matched with errors.Is first. Errors that carry no
// sentinel (for example a raw transport error string) fall through to an
// ordered keyword table where the first matching pattern wins.
package classify

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/procubot-tui/internal/provider"
)

// =============================================================================
// ERROR CLASSES
// =============================================================================

// Kind is the class of a failed turn.
type Kind string

const (
	// KindCredential is a missing or rejected API key.
	KindCredential Kind = "credential"
	// KindRateLimit is a rate limit or exhausted quota.
	KindRateLimit Kind = "rate_limit"
	// KindSafety is a content safety rejection.
	KindSafety Kind = "safety"
	// KindUnsupportedMIME is an attachment type the model refused.
	KindUnsupportedMIME Kind = "unsupported_mime"
	// KindTransient is an upstream 5xx or an unavailable model.
	KindTransient Kind = "transient"
	// KindTimeout is a stream that stalled or ran past its deadline.
	KindTimeout Kind = "timeout"
	// KindUnknown is anything else.
	KindUnknown Kind = "unknown"
)

// Kinds lists every class in reporting order.
var Kinds = []Kind{
	KindCredential, KindRateLimit, KindSafety, KindUnsupportedMIME,
	KindTransient, KindTimeout, KindUnknown,
}

// =============================================================================
// PATTERN MATCHER
// =============================================================================

// Pattern matches error text against keywords (case-insensitive, any match).
type Pattern struct {
	Keywords []string
	Kind     Kind
}

// sentinel pairs a target error with the class it implies.
type sentinel struct {
	target error
	kind   Kind
}

// Matcher classifies errors. Safe for concurrent use.
type Matcher struct {
	mu        sync.RWMutex
	sentinels []sentinel
	patterns  []Pattern
}

var (
	defaultMatcher     *Matcher
	defaultMatcherOnce sync.Once
)

// Default returns the shared matcher with the built-in table.
func Default() *Matcher {
	defaultMatcherOnce.Do(func() {
		defaultMatcher = NewMatcher()
	})
	return defaultMatcher
}

// Classify classifies err with the default matcher.
func Classify(err error) Kind {
	return Default().Classify(err)
}

// NewMatcher creates a matcher with the built-in sentinels and keywords.
func NewMatcher() *Matcher {
	m := &Matcher{}
	m.registerDefaults()
	return m
}

// registerDefaults installs the default table.
// IMPORTANT: order is MOST SPECIFIC first. Timeouts come before transient
// failures because a deadline error often also says "unavailable".
func (m *Matcher) registerDefaults() {
	m.sentinels = []sentinel{
		{provider.ErrMissingCredential, KindCredential},
		{provider.ErrInvalidCredential, KindCredential},
		{provider.ErrTimeout, KindTimeout},
		{context.DeadlineExceeded, KindTimeout},
		{provider.ErrRateLimited, KindRateLimit},
		{provider.ErrSafetyBlocked, KindSafety},
		{provider.ErrUnsupportedMIME, KindUnsupportedMIME},
		{provider.ErrUnavailable, KindTransient},
	}

	m.AddPattern(Pattern{
		Kind: KindCredential,
		Keywords: []string{
			"api key not valid", "api_key_invalid", "invalid api key",
			"missing api key", "unauthenticated", "no auth credentials",
			"permission_denied",
		},
	})
	m.AddPattern(Pattern{
		Kind: KindRateLimit,
		Keywords: []string{
			"429", "rate limit", "too many requests", "quota",
			"resource_exhausted", "resource has been exhausted",
		},
	})
	m.AddPattern(Pattern{
		Kind: KindSafety,
		Keywords: []string{
			"safety", "blocked", "prohibited_content", "content_filter",
			"flagged by moderation",
		},
	})
	m.AddPattern(Pattern{
		Kind: KindUnsupportedMIME,
		Keywords: []string{
			"mime", "unsupported file", "unsupported media type", "415",
		},
	})
	m.AddPattern(Pattern{
		Kind: KindTimeout,
		Keywords: []string{
			"deadline exceeded", "timed out", "timeout",
		},
	})
	m.AddPattern(Pattern{
		Kind: KindTransient,
		Keywords: []string{
			"500", "502", "503", "504", "internal error", "unavailable",
			"overloaded", "bad gateway", "connection reset", "connection refused",
			"eof",
		},
	})
}

// AddPattern appends a keyword pattern. Later patterns have lower priority.
func (m *Matcher) AddPattern(p Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, p)
}

// Classify returns the class of err. A nil error is KindUnknown.
func (m *Matcher) Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sentinels {
		if errors.Is(err, s.target) {
			return s.kind
		}
	}
	return m.matchText(strings.ToLower(err.Error()))
}

// matchText runs the keyword table. Caller holds the read lock.
func (m *Matcher) matchText(lower string) Kind {
	for _, p := range m.patterns {
		for _, kw := range p.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return p.Kind
			}
		}
	}
	return KindUnknown
}
