// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sync"

	"github.com/jeranaias/procubot-tui/internal/model"
)

// Queue holds attachments chosen with /attach until the next message is
// sent. The zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	items []model.Attachment
}

// Add appends attachments in order.
func (q *Queue) Add(atts ...model.Attachment) {
	q.mu.Lock()
	q.items = append(q.items, atts...)
	q.mu.Unlock()
}

// Items returns a copy of the queued attachments.
func (q *Queue) Items() []model.Attachment {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.Attachment(nil), q.items...)
}

// Len returns the number of queued attachments.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Take empties the queue and returns what it held.
func (q *Queue) Take() []model.Attachment {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Clear empties the queue and returns how many were dropped.
func (q *Queue) Clear() int {
	return len(q.Take())
}
