package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SourceList shows the passages an answer cites, with the selected
// passage expanded below the list.
type SourceList struct {
	matches  []domain.RetrievalMatch
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates an empty source list.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &SourceList{styles: s, width: 80, height: 10}
}

// SetMatches replaces the listed passages and selects the first.
func (l *SourceList) SetMatches(matches []domain.RetrievalMatch) {
	l.matches = matches
	l.selected = 0
}

// Count returns the number of passages.
func (l *SourceList) Count() int {
	return len(l.matches)
}

// Selected returns the index of the selected passage.
func (l *SourceList) Selected() int {
	return l.selected
}

// SelectedMatch returns the selected passage, or nil if the list is empty.
func (l *SourceList) SelectedMatch() *domain.RetrievalMatch {
	if len(l.matches) == 0 {
		return nil
	}
	return &l.matches[l.selected]
}

// MoveUp moves selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.matches)-1 {
		l.selected++
	}
}

// SetDimensions sets the area available to the list.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// View renders the list. Citation numbers match the [n] markers in the answer.
func (l *SourceList) View(focused bool) string {
	if len(l.matches) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.matches)+3)
	lines = append(lines, l.styles.Label.Render(fmt.Sprintf("Sources (%d)", len(l.matches))))

	maxTitle := l.width - 16
	if maxTitle < 10 {
		maxTitle = 10
	}
	for i, m := range l.matches {
		title := truncate(sourceTitle(m), maxTitle)
		row := fmt.Sprintf("[%d] %-*s %.2f", i+1, maxTitle, title, m.Score)
		if focused && i == l.selected {
			lines = append(lines, l.styles.Selected.Render("> "+row))
		} else {
			lines = append(lines, l.styles.Normal.Render("  "+row))
		}
	}

	if focused {
		m := l.matches[l.selected]
		passage := lipgloss.NewStyle().Width(l.width - 4).Render(strings.TrimSpace(m.Text))
		lines = append(lines, "", l.styles.Muted.Render(passage))
	}

	return strings.Join(lines, "\n")
}

func sourceTitle(m domain.RetrievalMatch) string {
	if title, ok := m.Metadata[domain.MetaTitle].(string); ok && title != "" {
		return title
	}
	return m.DocumentID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
