// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/procubot-tui/internal/attachment"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/open <n>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Variadic lets the last argument repeat
	Variadic bool

	// Handler is the function that executes the command
	Handler func(ctx *Context, args []string) tea.Cmd

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for enum types
	Values []string
}

// ArgType indicates how an argument is validated and completed.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeFile                  // File path
	ArgTypeEnum                  // One of predefined values
	ArgTypeNumber                // Positive whole number
)

// Help categories, in display order.
const (
	CategoryMessage = "Message"
	CategorySession = "Session"
	CategoryGeneral = "General"
)

var categoryOrder = []string{CategoryMessage, CategorySession, CategoryGeneral}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// languageCodes lists the config codes of the supported languages.
func languageCodes() []string {
	tags := i18n.Supported()
	codes := make([]string, len(tags))
	for i, tag := range tags {
		codes[i] = i18n.Code(tag)
	}
	return codes
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = CategoryGeneral
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Execute runs a parsed command. Unknown commands and bad arguments come
// back as an error notice rather than a Go error so both front ends can
// show them the same way.
func (r *Registry) Execute(ctx *Context, result ParseResult) tea.Cmd {
	if result.Command == nil {
		return notice(errorf("unknown command: %s (try /help)", result.CommandName))
	}
	if err := ValidateArgs(result.Command, result.Args); err != nil {
		return notice(err)
	}
	if !result.Command.Variadic && len(result.Args) > len(result.Command.Args) {
		return notice(errorf("%s: too many arguments (usage: %s)", result.Command.Name, result.Command.Usage))
	}
	return result.Command.Handler(ctx, result.Args)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Message commands
	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/a", "/file"},
		Description: "Queue files to send with the next message",
		Usage:       "/attach <path>...",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Description: "PDF, Office document, image or audio file"},
		},
		Variadic: true,
		Category: CategoryMessage,
		Handler:  HandleAttach,
	})

	r.Register(&Command{
		Name:        "/detach",
		Description: "Clear queued attachments",
		Category:    CategoryMessage,
		Handler:     HandleDetach,
	})

	r.Register(&Command{
		Name:        "/voice",
		Description: "Send an audio file as a voice message",
		Usage:       "/voice <path>",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Description: "Audio file (webm, mp4, ogg, wav, mp3)"},
		},
		Category: CategoryMessage,
		Handler:  HandleVoice,
	})

	r.Register(&Command{
		Name:        "/record",
		Aliases:     []string{"/mic"},
		Description: "Record a voice message (run again to stop)",
		Usage:       "/record [seconds]",
		Args: []ArgDef{
			{Name: "seconds", Required: false, Type: ArgTypeNumber, Description: "Maximum length in seconds"},
		},
		Category: CategoryMessage,
		Handler:  HandleRecord,
	})

	r.Register(&Command{
		Name:        "/open",
		Description: "Open an attachment of your last message",
		Usage:       "/open [n]",
		Args: []ArgDef{
			{Name: "n", Required: false, Type: ArgTypeNumber, Description: "Attachment number, starting at 1"},
		},
		Category: CategoryMessage,
		Handler:  HandleOpen,
	})

	r.Register(&Command{
		Name:        "/sources",
		Aliases:     []string{"/src"},
		Description: "List the sources of the last response",
		Category:    CategoryMessage,
		Handler:     HandleSources,
	})

	// Session commands
	r.Register(&Command{
		Name:        "/reset",
		Aliases:     []string{"/new", "/n"},
		Description: "Start a new conversation",
		Category:    CategorySession,
		Handler:     HandleReset,
	})

	r.Register(&Command{
		Name:        "/cancel",
		Aliases:     []string{"/stop"},
		Description: "Stop the response being generated",
		Category:    CategorySession,
		Handler:     HandleCancel,
	})

	r.Register(&Command{
		Name:        "/lang",
		Aliases:     []string{"/language"},
		Description: "Switch language (toggles without an argument)",
		Usage:       "/lang [en|zh-TW]",
		Args: []ArgDef{
			{Name: "language", Required: false, Type: ArgTypeEnum, Values: languageCodes(), Description: "Language code"},
		},
		Category: CategorySession,
		Handler:  HandleLanguage,
	})

	r.Register(&Command{
		Name:        "/stats",
		Description: "Show usage for this session",
		Category:    CategorySession,
		Handler:     HandleStats,
	})

	// General commands
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    CategoryGeneral,
		Handler:     HandleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit ProcuBot",
		Category:    CategoryGeneral,
		Handler:     HandleQuit,
	})
}

// =============================================================================
// COMMAND CONTEXT
// =============================================================================

// Context carries the dependencies handlers act on. It is shared between the
// TUI and the line-mode REPL.
type Context struct {
	// Controller owns the conversation
	Controller *controller.Controller

	// Registry is used by /help
	Registry *Registry

	// Recorder captures microphone audio for /record (optional)
	Recorder *attachment.Recorder

	// Queue holds attachments waiting for the next message
	Queue *Queue

	// Stats renders session usage for /stats (optional)
	Stats func() string

	mu         sync.Mutex
	stopRecord context.CancelFunc
}

// NewContext creates a command context. recorder and stats may be nil.
func NewContext(ctrl *controller.Controller, registry *Registry, recorder *attachment.Recorder, stats func() string) *Context {
	return &Context{
		Controller: ctrl,
		Registry:   registry,
		Recorder:   recorder,
		Queue:      &Queue{},
		Stats:      stats,
	}
}

// Recording reports whether a /record capture is running.
func (c *Context) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRecord != nil
}

// StopRecording ends a running capture; the audio captured so far is still
// sent. It returns false when nothing was recording.
func (c *Context) StopRecording() bool {
	c.mu.Lock()
	stop := c.stopRecord
	c.stopRecord = nil
	c.mu.Unlock()
	if stop == nil {
		return false
	}
	stop()
	return true
}

// startRecording registers a capture, or returns false if one is running.
func (c *Context) startRecording(stop context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopRecord != nil {
		return false
	}
	c.stopRecord = stop
	return true
}

func (c *Context) clearRecording() {
	c.mu.Lock()
	c.stopRecord = nil
	c.mu.Unlock()
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion represents a completion suggestion.
type Completion struct {
	// Value to insert
	Value string

	// Display text
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int
}
