// Package theme styles terminal output. Colors adapt to light and dark
// terminals, and lipgloss drops them entirely when NO_COLOR is set.
package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
)

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	// Title frames a command's heading.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorInfo).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ColorMuted)
)

// Level is the outcome class of a check.
type Level int

const (
	LevelPass Level = iota
	LevelWarn
	LevelFail
)

// Badge renders the symbol and label for level, e.g. "✓ PASS".
func Badge(level Level) string {
	switch level {
	case LevelPass:
		return TextSuccess.Render(Symbols.Success + " PASS")
	case LevelWarn:
		return TextWarning.Render(Symbols.Warning + " WARN")
	default:
		return TextError.Render(Symbols.Error + " FAIL")
	}
}

// Tile renders a board tile and its legality verdict for the check command.
func Tile(col, row int, valid bool, rule string) string {
	coord := Bold.Render(fmt.Sprintf("(%d, %d)", col, row))
	if valid {
		return coord + " " + TextSuccess.Render(Symbols.Success+" placeable")
	}
	return coord + " " + TextError.Render(Symbols.Error+" blocked") + " " + Dim.Render("rule "+rule)
}
