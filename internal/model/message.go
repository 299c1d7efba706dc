// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser  Role = "USER"
	RoleModel Role = "MODEL"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// The Text of a MODEL message is rewritten in place while its turn streams;
// every other field is fixed at creation.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Sources are the deduplicated web citations (MODEL messages only)
	Sources []Citation `json:"sources,omitempty"`

	// Streaming state (not persisted)
	IsStreaming bool `json:"-"`

	// Failed is set when Text holds a classified error instead of a reply
	Failed bool `json:"failed,omitempty"`
}

// NewUserMessage creates a USER message carrying the literal text and the
// attachments in submission order.
func NewUserMessage(text string, attachments []Attachment) *Message {
	msg := &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	if len(attachments) > 0 {
		msg.Attachments = append([]Attachment(nil), attachments...)
	}
	return msg
}

// NewModelMessage creates a completed MODEL message, used for the greeting
// and for initialization errors.
func NewModelMessage(text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleModel,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewPlaceholder creates the empty MODEL message a streaming turn writes into.
func NewPlaceholder() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleModel,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsUser returns true if this is a user message.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsModel returns true if this is a model message.
func (m *Message) IsModel() bool {
	return m.Role == RoleModel
}

// HasAttachments reports whether the message carries any attachments.
func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// Clone returns a deep copy that shares no slices with the original.
func (m *Message) Clone() Message {
	c := *m
	if m.Attachments != nil {
		c.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	if m.Sources != nil {
		c.Sources = append([]Citation(nil), m.Sources...)
	}
	return c
}

// generateID returns a UUIDv7 string. V7 values sort by creation time, so
// ids generated within one process are monotonic.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
