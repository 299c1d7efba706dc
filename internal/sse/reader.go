// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse parses Server-Sent Events streams.
//
// Both chat providers stream their responses as SSE; this reader handles the
// framing so the provider packages only deal with JSON payloads.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxEventSize is the maximum allowed size for a single event line (1MB).
// Grounding metadata can make Gemini events much larger than a text delta.
const MaxEventSize = 1 << 20

// ErrEventTooLarge is returned when a line exceeds MaxEventSize.
var ErrEventTooLarge = errors.New("sse: event exceeds maximum size")

// Done is the sentinel payload OpenAI-compatible APIs send to end a stream.
var Done = []byte("[DONE]")

// Event is one dispatched Server-Sent Event.
type Event struct {
	// Event is the event type; empty for the default "message" type
	Event string

	// Data is the event payload; multiple data lines are joined with "\n"
	Data []byte

	// ID is the last event id field seen, if any
	ID string
}

// IsDone reports whether the event is the [DONE] terminator.
func (e Event) IsDone() bool {
	return bytes.Equal(e.Data, Done)
}

// Reader parses Server-Sent Events from a stream.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a new SSE reader from an io.Reader.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxEventSize)
	return &Reader{scanner: sc}
}

// ReadEvent reads the next event from the stream.
// Comment lines and events without data are skipped.
// Returns io.EOF when the stream ends.
func (r *Reader) ReadEvent() (Event, error) {
	var ev Event
	var dataLines [][]byte

	for r.scanner.Scan() {
		line := bytes.TrimRight(r.scanner.Bytes(), "\r")

		// Empty line dispatches the event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				ev.Data = bytes.Join(dataLines, []byte("\n"))
				return ev, nil
			}
			ev = Event{}
			continue
		}

		// Comment
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field = line[:i]
			value = line[i+1:]
			// A single leading space after the colon is not part of the value
			value = bytes.TrimPrefix(value, []byte(" "))
		}

		switch string(field) {
		case "event":
			ev.Event = string(value)
		case "data":
			// Scanner reuses its buffer; copy before keeping
			dataLines = append(dataLines, append([]byte(nil), value...))
		case "id":
			ev.ID = string(value)
		}
		// Ignore retry: and unknown fields
	}

	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Event{}, ErrEventTooLarge
		}
		return Event{}, err
	}

	// Stream ended without a trailing blank line
	if len(dataLines) > 0 {
		ev.Data = bytes.Join(dataLines, []byte("\n"))
		return ev, nil
	}
	return Event{}, io.EOF
}
