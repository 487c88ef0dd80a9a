package tool

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// PrintStatus writes "[TAG] message" with the tag colored by outcome.
func PrintStatus(w io.Writer, ok bool, tag, message string) {
	style := okStyle
	if !ok {
		style = failStyle
	}
	fmt.Fprintln(w, style.Render("["+tag+"]"), message)
}

// Highlight renders a URL or note for console output.
func Highlight(s string) string {
	return noteStyle.Render(s)
}

// Prompt renders an input prompt label.
func Prompt(s string) string {
	return promptStyle.Render(s)
}
