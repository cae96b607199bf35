// Package cli renders estimatch terminal output with lipgloss.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// tone selects the color and icon of a line of output.
type tone int

const (
	toneGood tone = iota
	toneCaution
	toneBad
	toneNote
)

// Icons shared by messages and tables.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ChartIcon   = "📊"
)

// accent is the safety orange used for headings.
var accent = lipgloss.Color("#FF8C42")

var tones = map[tone]struct {
	color lipgloss.Color
	icon  string
}{
	toneGood:    {lipgloss.Color("#4ECDC4"), SuccessIcon},
	toneCaution: {lipgloss.Color("#FFE66D"), WarningIcon},
	toneBad:     {lipgloss.Color("#FF6B6B"), ErrorIcon},
	toneNote:    {lipgloss.Color("#95E1D3"), InfoIcon},
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
)

func (t tone) style() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(tones[t].color)
}

func (t tone) paint(text string) string {
	return t.style().Render(text)
}

func (t tone) message(text string) string {
	return t.paint(tones[t].icon + " " + text)
}

// scoreTone grades a 0-100 quality score.
func scoreTone(score int) tone {
	switch {
	case score >= 80:
		return toneGood
	case score >= 50:
		return toneCaution
	default:
		return toneBad
	}
}

func formatScore(score int) string {
	return scoreTone(score).paint(fmt.Sprintf("%d/100", score))
}

// FormatSuccess prefixes message with a check mark.
func FormatSuccess(message string) string { return toneGood.message(message) }

// FormatError prefixes message with a cross.
func FormatError(message string) string { return toneBad.message(message) }

// FormatWarning prefixes message with a warning sign.
func FormatWarning(message string) string { return toneCaution.message(message) }

// FormatInfo prefixes message with an info sign.
func FormatInfo(message string) string { return toneNote.message(message) }

// RenderBox draws content inside a rounded border under a bold heading.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headingStyle.Render(title), content))
}
