// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxFileCompletions caps directory listings in completion.
const maxFileCompletions = 20

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// FilesFn overrides file path completion (used in tests)
	FilesFn func(prefix string) []string
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns completions for the input, best match first. Plain chat
// text gets none.
func (c *Completer) Complete(input string) []Completion {
	trimmed := strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(trimmed, "/") {
		return nil
	}

	parts := splitCommandLine(trimmed)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	// Still typing the command name?
	endsWithSpace := strings.HasSuffix(trimmed, " ")
	if len(parts) == 1 && !endsWithSpace {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(strings.ToLower(parts[0]))
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if endsWithSpace {
		argIndex++
		partial = ""
	}
	if cmd.Variadic && argIndex >= len(cmd.Args) && len(cmd.Args) > 0 {
		argIndex = len(cmd.Args) - 1
	}
	return c.completeArg(cmd, argIndex, partial)
}

// Line completes a whole input line for liner's SetCompleter, returning full
// candidate lines.
func (c *Completer) Line(input string) []string {
	completions := c.Complete(input)
	if len(completions) == 0 {
		return nil
	}

	// Replace the last token with each candidate
	base := input
	if !strings.HasSuffix(input, " ") {
		if i := strings.LastIndexAny(input, " \t"); i >= 0 {
			base = input[:i+1]
		} else {
			base = ""
		}
	}

	lines := make([]string, len(completions))
	for i, comp := range completions {
		value := comp.Value
		if strings.ContainsAny(value, " \t") {
			value = `"` + value + `"`
		}
		lines[i] = base + value
	}
	return lines
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(alias, partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10, // Slightly lower score for aliases
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]
	switch arg.Type {
	case ArgTypeFile:
		return c.completeFiles(partial)
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	default:
		return nil
	}
}

func (c *Completer) completeFiles(partial string) []Completion {
	if c.FilesFn != nil {
		return completeFromList(c.FilesFn(partial), partial)
	}
	return defaultFileCompletion(partial)
}

// defaultFileCompletion lists directory entries matching the partial path.
// Directories rank slightly higher so the user can keep descending.
func defaultFileCompletion(partial string) []Completion {
	dir := filepath.Dir(partial)
	prefix := filepath.Base(partial)
	if partial == "" || strings.HasSuffix(partial, string(os.PathSeparator)) || strings.HasSuffix(partial, "/") {
		dir = partial
		if dir == "" {
			dir = "."
		}
		prefix = ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	hasDir := strings.ContainsAny(partial, "/"+string(os.PathSeparator))
	lowerPrefix := strings.ToLower(prefix)
	var completions []Completion
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		// Skip hidden files unless asked for
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		path := name
		if hasDir {
			path = filepath.Join(dir, name)
		}
		score := calculateScore(name, lowerPrefix)
		desc := ""
		if entry.IsDir() {
			path += string(os.PathSeparator)
			score += 5
			desc = "directory"
		} else if info, err := entry.Info(); err == nil {
			desc = humanize.Bytes(uint64(info.Size()))
		}

		completions = append(completions, Completion{
			Value:       path,
			Display:     name,
			Description: desc,
			Score:       score,
		})
	}

	sortCompletions(completions)
	if len(completions) > maxFileCompletions {
		completions = completions[:maxFileCompletions]
	}
	return completions
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	lower := strings.ToLower(partial)
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), lower) {
			completions = append(completions, Completion{
				Value:   v,
				Display: v,
				Score:   calculateScore(v, lower),
			})
		}
	}
	sortCompletions(completions)
	return completions
}

// =============================================================================
// HELPERS
// =============================================================================

// calculateScore ranks a candidate against the typed prefix: exact matches
// first, then shorter candidates.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	return score - len(value)/2
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.SliceStable(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}
