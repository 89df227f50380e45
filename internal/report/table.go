package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamfkit/sgscan/internal/models"
)

var (
	groupHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#10B981"))

	groupIDStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	noMatchesStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)

// Table writes matches grouped per smart group. Styled enables terminal
// colors and should only be set when writing to a terminal.
type Table struct {
	Styled bool
}

func (t Table) Write(w io.Writer, matches []models.Match) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, t.render(noMatchesStyle, "No matches found."))
		return err
	}

	for _, g := range group(matches) {
		header := fmt.Sprintf("[%s] %s", g.Group.GroupType.Label(), g.Group.Name)
		id := fmt.Sprintf("(id=%d)", g.Group.ID)

		if _, err := fmt.Fprintf(w, "\n%s %s\n  Matches:\n",
			t.render(groupHeaderStyle, header), t.render(groupIDStyle, id)); err != nil {
			return err
		}

		for _, match := range g.Matches {
			c := match.Criterion
			value := Absent
			if c.Value != nil {
				value = *c.Value
			}
			field := t.render(fieldStyle, fmt.Sprintf("%5s", match.MatchedField))
			if _, err := fmt.Fprintf(w, "   • %s → name='%s', op='%s', value='%s', and_or='%s'\n",
				field, c.Name, orAbsent(c.SearchType), value, orAbsent(c.AndOr)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t Table) render(style lipgloss.Style, text string) string {
	if !t.Styled {
		return text
	}
	return style.Render(text)
}
