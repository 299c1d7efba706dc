// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/commands"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/ui/render"
	"github.com/jeranaias/procubot-tui/internal/ui/styles"
)

// inputHeight is the number of text rows in the input box.
const inputHeight = 3

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the collaborators the chat view drives.
type Deps struct {
	Controller *controller.Controller
	Commands   *commands.Context
	Theme      *styles.Theme
	Renderer   *render.Renderer

	// ModelName is shown in the status bar
	ModelName string

	// MaxFPS caps redraws while streaming (default 30)
	MaxFPS int
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl      *controller.Controller
	cmdCtx    *commands.Context
	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer

	// Styling
	theme    *styles.Theme
	renderer *render.Renderer

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Conversation as last drawn
	messages []model.Message
	lang     language.Tag

	// Redraw throttling while streaming (pointer: shared across model copies)
	throttle *redrawThrottle

	// Status line
	modelName string
	notice    string
	noticeErr bool
	noticeID  int

	// help replaces the conversation until dismissed
	help string
}

// New creates a chat model.
func New(deps Deps) Model {
	registry := deps.Commands.Registry
	if registry == nil {
		registry = commands.NewRegistry()
		deps.Commands.Registry = registry
	}

	lang := deps.Controller.Language()

	ta := textarea.New()
	ta.Placeholder = i18n.T(lang, i18n.KeyPlaceholder)
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle = ta.FocusedStyle
	// Enter sends; newline has its own binding
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Theme.Spinner

	return Model{
		ctrl:      deps.Controller,
		cmdCtx:    deps.Commands,
		registry:  registry,
		parser:    commands.NewParser(registry),
		completer: commands.NewCompleter(registry),
		theme:     deps.Theme,
		renderer:  deps.Renderer,
		input:     ta,
		spinner:   sp,
		keyMap:    DefaultKeyMap(),
		messages:  deps.Controller.Snapshot(),
		lang:      lang,
		throttle:  newRedrawThrottle(deps.MaxFPS),
		modelName: deps.ModelName,
	}
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Messages returns the conversation as last drawn.
func (m Model) Messages() []model.Message {
	return m.messages
}

// Notice returns the status notice and whether it is an error.
func (m Model) Notice() (string, bool) {
	return m.notice, m.noticeErr
}

// Input returns the current input text.
func (m Model) Input() string {
	return m.input.Value()
}
