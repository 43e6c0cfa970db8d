package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// banner is the ASCII art logo.
const banner = `
  ██╗     ██╗██╗   ██╗███████╗██╗   ██╗██╗███████╗██╗    ██╗
  ██║     ██║██║   ██║██╔════╝██║   ██║██║██╔════╝██║    ██║
  ██║     ██║██║   ██║█████╗  ██║   ██║██║█████╗  ██║ █╗ ██║
  ██║     ██║╚██╗ ██╔╝██╔══╝  ╚██╗ ██╔╝██║██╔══╝  ██║███╗██║
  ███████╗██║ ╚████╔╝ ███████╗ ╚████╔╝ ██║███████╗╚███╔███╔╝
  ╚══════╝╚═╝  ╚═══╝  ╚══════╝  ╚═══╝  ╚═╝╚══════╝ ╚══╝╚══╝`

// tagline is the product tagline.
const tagline = "Live reload for script-driven mobile apps"

// PrintBanner prints the banner with version info.
//
// Parameters:
//   - version: The CLI version string to display
func PrintBanner(version string) {
	styledBanner := lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true).
		Render(banner)

	taglineStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		PaddingLeft(2)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		PaddingLeft(2)

	writeLine(styledBanner, false)
	writeLine("", false)
	writeLine(taglineStyle.Render(tagline), false)
	writeLine(infoStyle.Render(fmt.Sprintf("Version: %s", version)), false)
	writeLine("", false)
}
