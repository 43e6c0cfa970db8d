// Package ui provides terminal output for the LiveView CLI.
//
// This package contains the styling, banner and message printing used by
// the liveview commands, including the compile-error report shown when a
// module throws while loading.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Brand colors.
var (
	// Primary brand color
	Purple = lipgloss.Color("#9D61FF")

	// Secondary colors
	Teal    = lipgloss.Color("#14B8A6")
	Red     = lipgloss.Color("#EF4444")
	Amber   = lipgloss.Color("#F59E0B")
	Green   = lipgloss.Color("#22C55E")
	Gray    = lipgloss.Color("#6B7280")
	DimGray = lipgloss.Color("#9CA3AF")
)

// Text styles.
var (
	// TitleStyle for main headings
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Purple)

	// SuccessStyle for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	// ErrorStyle for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	// WarningStyle for warning messages
	WarningStyle = lipgloss.NewStyle().
			Foreground(Amber)

	// InfoStyle for informational messages
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	// DimStyle for less important text
	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	// LinkStyle for URLs and addresses
	LinkStyle = lipgloss.NewStyle().
			Foreground(Purple).
			Underline(true)

	// CodeStyle for inline code
	CodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F3F4F6")).
			Background(lipgloss.Color("#374151")).
			Padding(0, 1)
)

// Box styles.
var (
	// BoxStyle for content boxes
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Purple).
			Padding(0, 1)

	// BoxTitleStyle for box titles
	BoxTitleStyle = lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true)

	// ErrorBoxStyle frames compile-error reports
	ErrorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Padding(0, 1)
)

// Source excerpt styles.
var (
	// GutterStyle for line numbers
	GutterStyle = lipgloss.NewStyle().
			Foreground(Gray)

	// FailingLineStyle highlights the line that threw
	FailingLineStyle = lipgloss.NewStyle().
				Foreground(Red).
				Bold(true)

	// ContextLineStyle for surrounding lines
	ContextLineStyle = lipgloss.NewStyle().
				Foreground(DimGray)
)
