// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered, append-only list of messages. The only
// in-place mutation is a streaming MODEL message being rewritten by id.
//
// Conversation is not safe for concurrent use; the controller serializes
// access to it.
type Conversation struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`
}

// NewConversation creates a conversation seeded with the given messages,
// normally a single greeting.
func NewConversation(seed ...*Message) *Conversation {
	now := time.Now()
	c := &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0, len(seed)+8),
	}
	c.Messages = append(c.Messages, seed...)
	return c
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// Update applies fn to the message with the given id.
// Returns false if no such message exists.
func (c *Conversation) Update(id string, fn func(*Message)) bool {
	msg := c.GetMessageByID(id)
	if msg == nil {
		return false
	}
	fn(msg)
	c.UpdatedAt = time.Now()
	return true
}

// GetMessageByID returns a message by its ID.
func (c *Conversation) GetMessageByID(id string) *Message {
	// Searching from the end: the streaming message is almost always last.
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].ID == id {
			return c.Messages[i]
		}
	}
	return nil
}

// GetLastUserMessage returns the most recent USER message, or nil.
func (c *Conversation) GetLastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i]
		}
	}
	return nil
}

// GetLastModelMessage returns the most recent MODEL message, or nil.
func (c *Conversation) GetLastModelMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleModel {
			return c.Messages[i]
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// Snapshot returns deep copies of all messages, safe to hand to a renderer
// while the conversation keeps changing.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.Messages))
	for i, msg := range c.Messages {
		out[i] = msg.Clone()
	}
	return out
}
