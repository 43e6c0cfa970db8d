// Package tui provides the Bubble Tea dashboard shown by `liveview serve`.
//
// The dashboard only runs for humans: it is skipped when stdout is not a
// terminal or --quiet is set, and the plain log output is used instead.
package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ShouldRunTUI returns true if the dashboard should be launched.
//
// Parameters:
//   - quiet: whether --quiet was passed
//
// Returns:
//   - bool: true if the dashboard should run
func ShouldRunTUI(quiet bool) bool {
	if quiet {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// --- Brand colors (mirrors internal/ui/styles.go) ---

var (
	purple  = lipgloss.Color("#9D61FF")
	teal    = lipgloss.Color("#14B8A6")
	red     = lipgloss.Color("#EF4444")
	green   = lipgloss.Color("#22C55E")
	gray    = lipgloss.Color("#6B7280")
	dimGray = lipgloss.Color("#9CA3AF")
	white   = lipgloss.Color("#E5E7EB")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(purple)

	versionStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimGray).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(white)

	successStyle = lipgloss.NewStyle().
			Foreground(green)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(teal)

	helpStyle = lipgloss.NewStyle().
			Foreground(gray)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#374151"))
)

// separator returns a horizontal line of the given width.
func separator(width int) string {
	return separatorStyle.Render(strings.Repeat("─", width))
}

// newSpinner creates a consistently styled braille spinner.
func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(teal)
	return s
}
