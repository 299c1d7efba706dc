// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: append-only ordered list of messages
//   - Message: USER or MODEL message with text, attachments and sources
//   - Attachment: image, audio or document carried as base64 inline data
//   - Citation / CitationSet: web sources deduplicated by URI
//   - ModelInfo: registry entry for a supported chat model
//
// # Usage
//
//	conv := model.NewConversation(model.NewModelMessage(greeting))
//	conv.AddMessage(model.NewUserMessage("What is a TCO analysis?", nil))
//	ph := model.NewPlaceholder()
//	conv.AddMessage(ph)
//	conv.Update(ph.ID, func(m *model.Message) { m.Text = "Total" })
package model
