package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// BarState is what the status bar reports on its left side.
type BarState string

// Status bar states.
const (
	BarReady    BarState = "ready"
	BarAsking   BarState = "asking"
	BarAnswered BarState = "answered"
	BarError    BarState = "error"
)

// StatusBar shows the pipeline state and keybinding hints.
type StatusBar struct {
	styles  *styles.Styles
	keys    *keymap.KeyMap
	state   BarState
	message string
	store   *domain.Status
	sources int
	width   int
}

// NewStatusBar creates a status bar.
func NewStatusBar(s *styles.Styles, km *keymap.KeyMap) *StatusBar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &StatusBar{styles: s, keys: km, state: BarReady, width: 80}
}

// SetState sets the state and its message.
func (b *StatusBar) SetState(state BarState, message string) {
	b.state = state
	b.message = message
}

// State returns the current state.
func (b *StatusBar) State() BarState {
	return b.state
}

// SetStore records the latest store status.
func (b *StatusBar) SetStore(st *domain.Status) {
	b.store = st
}

// SetSources records how many sources the last answer cites.
func (b *StatusBar) SetSources(n int) {
	b.sources = n
}

// SetWidth sets the status bar width.
func (b *StatusBar) SetWidth(width int) {
	b.width = width
}

// View renders the bar with hints for the focused area.
func (b *StatusBar) View(browsing bool) string {
	left := b.renderLeft()

	bindings := b.keys.InputHelp()
	if browsing {
		bindings = b.keys.SourcesHelp()
	}
	right := b.styles.Muted.Render(hints(bindings))

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *StatusBar) renderLeft() string {
	switch b.state {
	case BarAsking:
		return b.styles.Muted.Render("Thinking...")
	case BarError:
		return b.styles.Error.Render("Error: " + b.message)
	case BarAnswered:
		return b.styles.Normal.Render(fmt.Sprintf("%d sources", b.sources))
	case BarReady:
	}
	if b.store == nil {
		return b.styles.Muted.Render("Ready")
	}
	if !b.store.IsReady {
		return b.styles.Warning.Render("Pipeline not ready")
	}
	return b.styles.Muted.Render(fmt.Sprintf("%d documents in %d domains | %s",
		b.store.DocumentCount, len(b.store.Namespaces), b.store.VectorBackend))
}

func hints(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return strings.Join(parts, " | ")
}
