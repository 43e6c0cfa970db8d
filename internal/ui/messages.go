package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

var (
	outMu     sync.Mutex
	out       io.Writer = os.Stdout
	quietMode bool
)

// SetOutput redirects all printing.
//
// Parameters:
//   - w: The destination writer, or nil for stdout
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// SetQuiet suppresses non-error output.
//
// Parameters:
//   - quiet: Whether --quiet was passed
func SetQuiet(quiet bool) {
	outMu.Lock()
	defer outMu.Unlock()
	quietMode = quiet
}

// IsInteractive returns true if stdout is a terminal.
//
// Returns:
//   - bool: true for a TTY (including Cygwin terminals)
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ShouldShowBanner returns true if the banner should be printed: stdout is a
// terminal and --quiet was not passed.
//
// Parameters:
//   - quiet: whether --quiet was passed
//
// Returns:
//   - bool: true if the banner should be shown
func ShouldShowBanner(quiet bool) bool {
	if quiet {
		return false
	}
	return IsInteractive()
}

func writeLine(s string, always bool) {
	outMu.Lock()
	defer outMu.Unlock()
	if quietMode && !always {
		return
	}
	fmt.Fprintln(out, s)
}

// Println prints an empty line.
func Println() {
	writeLine("", false)
}

// PrintSuccess prints a success message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	writeLine(SuccessStyle.Render("✓ "+msg), false)
}

// PrintError prints an error message. Errors are printed even in quiet mode.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	writeLine(ErrorStyle.Render("✗ "+msg), true)
}

// PrintWarning prints a warning message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	writeLine(WarningStyle.Render("⚠ "+msg), false)
}

// PrintInfo prints an informational message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	writeLine(InfoStyle.Render(msg), false)
}

// PrintDim prints a dimmed message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintDim(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	writeLine(DimStyle.Render(msg), false)
}

// PrintLink prints a labelled address.
//
// Parameters:
//   - label: The link label
//   - url: The URL or address
func PrintLink(label, url string) {
	writeLine(fmt.Sprintf("%s %s", DimStyle.Render(label+":"), LinkStyle.Render(url)), false)
}

// PrintBox prints content in a styled box.
//
// Parameters:
//   - title: Box title
//   - content: Box content
func PrintBox(title, content string) {
	titleStyled := BoxTitleStyle.Render(title)
	writeLine(BoxStyle.Render(titleStyled+"\n"+content), false)
}

// PrintKeyValues prints aligned "key  value" rows.
//
// Parameters:
//   - rows: Alternating keys and values
func PrintKeyValues(rows ...string) {
	width := 0
	for i := 0; i < len(rows); i += 2 {
		if len(rows[i]) > width {
			width = len(rows[i])
		}
	}

	var b strings.Builder
	for i := 0; i+1 < len(rows); i += 2 {
		key := rows[i] + strings.Repeat(" ", width-len(rows[i]))
		fmt.Fprintf(&b, "  %s  %s\n", DimStyle.Render(key), rows[i+1])
	}
	writeLine(strings.TrimSuffix(b.String(), "\n"), false)
}

// PrintRaw prints pre-rendered text. Like errors, it ignores quiet mode.
//
// Parameters:
//   - text: The text to print
func PrintRaw(text string) {
	writeLine(text, true)
}
