// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package providertest provides a scripted provider.Session for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/jeranaias/procubot-tui/internal/provider"
)

// Step is one scripted stream event: a fragment, or an error that ends the
// stream. When Gate is non-nil the step waits for it to be closed (or
// signalled) before being yielded, which lets tests hold a turn in flight.
type Step struct {
	Fragment provider.Fragment
	Err      error
	Gate     <-chan struct{}
}

// Frag is shorthand for a text-only step.
func Frag(text string) Step {
	return Step{Fragment: provider.Fragment{TextDelta: text}}
}

// Fail is shorthand for an error step.
func Fail(err error) Step {
	return Step{Err: err}
}

// Session replays a script for each SendStreaming call and records the
// payloads it was given. Safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	scripts  [][]Step
	openErrs []error
	payloads []provider.Payload
}

// NewSession creates a session that plays the given scripts in order, one
// per turn. Turns beyond the last script produce empty streams.
func NewSession(scripts ...[]Step) *Session {
	return &Session{scripts: scripts}
}

// FailOpen makes the next SendStreaming call return err without streaming.
func (s *Session) FailOpen(err error) *Session {
	s.mu.Lock()
	s.openErrs = append(s.openErrs, err)
	s.mu.Unlock()
	return s
}

// Payloads returns the payloads received so far.
func (s *Session) Payloads() []provider.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Payload(nil), s.payloads...)
}

// SendStreaming implements provider.Session.
func (s *Session) SendStreaming(ctx context.Context, payload provider.Payload) (provider.Stream, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, payload)
	if len(s.openErrs) > 0 {
		err := s.openErrs[0]
		s.openErrs = s.openErrs[1:]
		s.mu.Unlock()
		return nil, err
	}
	var script []Step
	if len(s.scripts) > 0 {
		script = s.scripts[0]
		s.scripts = s.scripts[1:]
	}
	s.mu.Unlock()

	return func(yield func(provider.Fragment, error) bool) {
		for _, step := range script {
			if step.Gate != nil {
				select {
				case <-step.Gate:
				case <-ctx.Done():
					yield(provider.Fragment{}, ctx.Err())
					return
				}
			}
			if step.Err != nil {
				yield(provider.Fragment{}, step.Err)
				return
			}
			if !yield(step.Fragment, nil) {
				return
			}
		}
	}, nil
}

// Factory returns a provider.Factory that always hands out sess, or err when
// set. It records every config it was called with.
type Factory struct {
	mu      sync.Mutex
	Session provider.Session
	Err     error
	Configs []provider.Config
}

// New implements provider.Factory.
func (f *Factory) New(cfg provider.Config) (provider.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configs = append(f.Configs, cfg)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Session, nil
}

// Calls returns how many sessions were requested.
func (f *Factory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Configs)
}
