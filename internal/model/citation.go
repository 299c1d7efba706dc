// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// Citation is a web source the provider reported as supporting evidence.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// DisplayTitle returns the title, or the URI when the title is empty.
func (c Citation) DisplayTitle() string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return c.URI
}

// =============================================================================
// CITATION SET
// =============================================================================

// CitationSet accumulates citations deduplicated by URI. The first title
// seen for a URI wins and insertion order is preserved.
//
// The zero value is ready to use. Not safe for concurrent use.
type CitationSet struct {
	list []Citation
	seen map[string]struct{}
}

// Add merges citations into the set and returns how many were new.
// Citations with an empty URI are dropped.
func (s *CitationSet) Add(cites ...Citation) int {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	added := 0
	for _, c := range cites {
		if c.URI == "" {
			continue
		}
		if _, ok := s.seen[c.URI]; ok {
			continue
		}
		s.seen[c.URI] = struct{}{}
		s.list = append(s.list, c)
		added++
	}
	return added
}

// Len returns the number of distinct citations.
func (s *CitationSet) Len() int {
	return len(s.list)
}

// List returns a copy of the citations in first-seen order, or nil if empty.
func (s *CitationSet) List() []Citation {
	if len(s.list) == 0 {
		return nil
	}
	return append([]Citation(nil), s.list...)
}
