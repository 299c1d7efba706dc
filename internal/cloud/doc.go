// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides OpenRouter integration as an alternative chat
// provider.
//
// # Key Types
//
//   - OpenRouterClient: provider.Session over the streaming chat completions API
//   - ChatMessage / ContentPart: request messages, plain or multimodal
//   - StreamChunk / Annotation: streamed deltas and url_citation annotations
//   - OpenRouterError: API error mapped onto the provider sentinels
//
// # Usage
//
//	sess, err := cloud.New(provider.Config{APIKey: key, Model: "gpt4o", Search: true})
//	stream, err := sess.SendStreaming(ctx, provider.Text("Hello"))
//	for frag, err := range stream { ... }
//
// # Security
//
// API keys are never logged; only a SHA-256 fingerprint is. All requests use
// TLS 1.2+ and error bodies are read through a size limit.
package cloud
