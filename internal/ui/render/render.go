// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns conversation messages into terminal text: markdown
// through glamour, attachment chips and the sources footer.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/attachment"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/model"
	"github.com/jeranaias/procubot-tui/internal/ui/styles"
	"github.com/jeranaias/procubot-tui/internal/util"
)

const (
	userIcon  = "●"
	modelIcon = "◆"

	// minWidth keeps wrapping sane in very narrow terminals.
	minWidth = 20
)

// =============================================================================
// MARKDOWN
// =============================================================================

// StyleConfig returns the glamour style for a background with code blocks
// highlighted by the named chroma theme. An empty codeTheme keeps the
// style's own palette.
func StyleConfig(dark bool, codeTheme string) ansi.StyleConfig {
	cfg := glamourstyles.LightStyleConfig
	if dark {
		cfg = glamourstyles.DarkStyleConfig
	}
	if codeTheme != "" {
		cfg.CodeBlock.Theme = codeTheme
		cfg.CodeBlock.Chroma = nil
	}
	return cfg
}

// Markdown renders markdown at a fixed wrap width.
type Markdown struct {
	style ansi.StyleConfig

	// Cached glamour renderer (avoids expensive recreation during streaming)
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown creates a markdown renderer. The glamour renderer itself is
// built lazily for the first width it is asked to render.
func NewMarkdown(style ansi.StyleConfig) *Markdown {
	return &Markdown{style: style}
}

// Render renders text wrapped to width. On a glamour failure the raw text is
// returned so a reply is never lost to a rendering problem.
func (m *Markdown) Render(text string, width int) string {
	if width < minWidth {
		width = minWidth
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStyles(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		m.renderer, m.width = r, width
	}

	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	// Trim the blank lines glamour puts around documents
	return strings.Trim(out, "\n")
}

// =============================================================================
// MESSAGES
// =============================================================================

// Renderer lays out whole conversations.
type Renderer struct {
	theme *styles.Theme
	md    *Markdown

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// cacheEntry is a rendered finished message. Streaming messages are never
// cached.
type cacheEntry struct {
	text  string
	width int
	lang  language.Tag
	out   string
}

// New creates a renderer for a theme and chroma code theme.
func New(theme *styles.Theme, codeTheme string) *Renderer {
	return &Renderer{
		theme: theme,
		md:    NewMarkdown(StyleConfig(theme.IsDark, codeTheme)),
		cache: make(map[string]cacheEntry),
	}
}

// Conversation renders every message separated by blank lines. spinner is
// the current spinner frame shown in an empty streaming placeholder.
func (r *Renderer) Conversation(msgs []model.Message, lang language.Tag, width int, spinner string) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, r.Message(msg, lang, width, spinner))
	}
	return strings.Join(parts, "\n\n")
}

// Message renders one message as an icon line followed by its bubble.
func (r *Renderer) Message(msg model.Message, lang language.Tag, width int, spinner string) string {
	if !msg.IsStreaming {
		r.mu.Lock()
		e, ok := r.cache[msg.ID]
		r.mu.Unlock()
		if ok && e.text == msg.Text && e.width == width && e.lang == lang {
			return e.out
		}
	}

	var out string
	if msg.IsUser() {
		out = r.userMessage(msg, lang, width)
	} else {
		out = r.modelMessage(msg, lang, width, spinner)
	}

	if !msg.IsStreaming {
		r.mu.Lock()
		r.cache[msg.ID] = cacheEntry{text: msg.Text, width: width, lang: lang, out: out}
		r.mu.Unlock()
	}
	return out
}

// Forget drops cached output, e.g. after a reset.
func (r *Renderer) Forget() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}

// Markdown renders bare markdown with the renderer's style.
func (r *Renderer) Markdown(text string, width int) string {
	return r.md.Render(text, width)
}

func (r *Renderer) userMessage(msg model.Message, lang language.Tag, width int) string {
	bubbleWidth := bubbleWidth(width)
	var body strings.Builder
	for _, att := range msg.Attachments {
		body.WriteString(Attachment(att, lang, bubbleWidth-4))
		body.WriteString("\n")
	}
	body.WriteString(msg.Text)

	bubble := r.theme.UserBubble.Width(bubbleWidth).Render(strings.TrimRight(body.String(), "\n"))
	icon := r.theme.UserIcon.Render(userIcon)
	block := lipgloss.JoinVertical(lipgloss.Right, icon, bubble)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
}

func (r *Renderer) modelMessage(msg model.Message, lang language.Tag, width int, spinner string) string {
	bubbleWidth := bubbleWidth(width)
	icon := r.theme.ModelIcon.Render(modelIcon + " ProcuBot")

	if msg.Failed {
		return icon + "\n" + r.theme.ErrorBubble.Width(bubbleWidth).Render(msg.Text)
	}

	var body string
	if msg.Text == "" && !msg.HasAttachments() {
		body = r.theme.Spinner.Render(spinner) + " " + r.theme.ThinkingText.Render(i18n.T(lang, i18n.KeyThinking))
	} else {
		body = r.md.Render(msg.Text, bubbleWidth-2)
	}
	if footer := r.Sources(msg.Sources, lang, bubbleWidth-2); footer != "" {
		body += "\n\n" + footer
	}
	return icon + "\n" + r.theme.ModelBubble.Width(bubbleWidth).Render(body)
}

// Sources renders the numbered citation footer, or "" when there are none.
func (r *Renderer) Sources(cites []model.Citation, lang language.Tag, width int) string {
	if len(cites) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(r.theme.SourcesTitle.Render(i18n.T(lang, i18n.KeySources)))
	for i, c := range cites {
		title := util.TruncateWidth(c.DisplayTitle(), width-6)
		fmt.Fprintf(&sb, "\n%d. %s", i+1, r.theme.SourceItem.Render(title))
		if c.Title != "" && c.URI != "" {
			sb.WriteString("\n   " + r.theme.SourceURI.Render(util.TruncateWidth(c.URI, width-3)))
		}
	}
	return sb.String()
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Attachment renders the label shown for an attachment in a user bubble:
// "Voice Message" for recordings, the image name for images and the file
// name with its type for documents.
func Attachment(att model.Attachment, lang language.Tag, width int) string {
	switch att.Kind {
	case model.KindAudio:
		return "♪ " + i18n.T(lang, i18n.KeyVoiceMessage)
	case model.KindImage:
		name := att.FileName
		if name == "" {
			name = i18n.T(lang, i18n.KeyImage)
		}
		return "▣ " + util.TruncateWidth(name, width-2)
	default:
		name := attachment.Describe(att, width-12)
		if att.FileName == "" {
			name = i18n.T(lang, i18n.KeyDocument)
		}
		return "▤ " + name + " · " + strings.ToUpper(subtype(att.MimeType))
	}
}

// subtype returns the last dotted component of a MIME subtype:
// "application/vnd.ms-excel" gives "ms-excel", "application/pdf" gives "pdf".
func subtype(mimeType string) string {
	sub := mimeType
	if i := strings.LastIndex(sub, "/"); i >= 0 {
		sub = sub[i+1:]
	}
	if i := strings.LastIndex(sub, "."); i >= 0 {
		sub = sub[i+1:]
	}
	return sub
}

func bubbleWidth(width int) int {
	w := width * 4 / 5
	if w < minWidth {
		w = minWidth
	}
	return w
}
