package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phonecho/phonecho/pkg/align"
)

// Theme defines the color scheme for alignment rendering.
type Theme struct {
	Match        lipgloss.Color // aligned pair with identical symbols
	Substitution lipgloss.Color // aligned pair with differing symbols
	Indel        lipgloss.Color // insertion or deletion
	Dim          lipgloss.Color // labels and separators
}

// DefaultTheme is the default terminal theme.
var DefaultTheme = Theme{
	Match:        lipgloss.Color("#00ff9f"),
	Substitution: lipgloss.Color("#ffd75f"),
	Indel:        lipgloss.Color("#ff5f5f"),
	Dim:          lipgloss.Color("#6e7681"),
}

// gap marks the missing side of an insertion or deletion.
const gap = "∅"

// RenderAlignment renders a comparison as two aligned symbol rows plus a
// similarity line. Matches are green, substitutions yellow, insertions
// and deletions red; word boundaries show as dim bars.
func RenderAlignment(res *align.Result, theme Theme) string {
	matchStyle := lipgloss.NewStyle().Foreground(theme.Match)
	subStyle := lipgloss.NewStyle().Foreground(theme.Substitution)
	indelStyle := lipgloss.NewStyle().Foreground(theme.Indel)
	dimStyle := lipgloss.NewStyle().Foreground(theme.Dim)

	var targetRow, actualRow []string
	for _, item := range res.Alignment {
		if item.WordBoundary && len(targetRow) > 0 {
			bar := dimStyle.Render("|")
			targetRow = append(targetRow, bar)
			actualRow = append(actualRow, bar)
		}

		style := matchStyle
		switch {
		case item.Target == "" || item.Actual == "":
			style = indelStyle
		case !item.Match:
			style = subStyle
		}

		tgt, act := item.Target, item.Actual
		if tgt == "" {
			tgt = gap
		}
		if act == "" {
			act = gap
		}
		// Pad to a common width so the rows line up.
		w := max(lipgloss.Width(tgt), lipgloss.Width(act))
		targetRow = append(targetRow, style.Render(pad(tgt, w)))
		actualRow = append(actualRow, style.Render(pad(act, w)))
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render("target:") + " " + strings.Join(targetRow, " ") + "\n")
	b.WriteString(dimStyle.Render("actual:") + " " + strings.Join(actualRow, " ") + "\n")
	b.WriteString(fmt.Sprintf("similarity: %.3f (distance %.3f)\n", res.Similarity, res.Distance))
	return b.String()
}

// pad right-pads s with spaces to the given display width.
func pad(s string, w int) string {
	if d := w - lipgloss.Width(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
