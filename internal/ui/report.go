package ui

import (
	"fmt"
	"strings"

	"github.com/revyl/liveview/internal/loader"
)

// excerptRadius is the number of context lines shown around a failing line.
const excerptRadius = 2

// RenderException renders a compile-error report: the module, the error and
// an excerpt of the source around the failing line.
//
// Parameters:
//   - ev: The exception reported by the loader
//
// Returns:
//   - string: The styled report
func RenderException(ev *loader.UncaughtException) string {
	var b strings.Builder

	location := ev.Filename
	if ev.Line > 0 {
		location = fmt.Sprintf("%s:%d", ev.Filename, ev.Line)
	}
	b.WriteString(ErrorStyle.Render("Uncaught exception in " + ev.ModuleID))
	b.WriteString("\n")
	b.WriteString(DimStyle.Render(location))
	b.WriteString("\n\n")
	b.WriteString(InfoStyle.Render(fmt.Sprint(ev.Err)))

	if excerpt := sourceExcerpt(ev.Lines, ev.Line); excerpt != "" {
		b.WriteString("\n\n")
		b.WriteString(excerpt)
	}

	return ErrorBoxStyle.Render(b.String())
}

// sourceExcerpt returns the numbered lines around line, or "" when line is
// out of range.
func sourceExcerpt(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}

	first := line - excerptRadius
	if first < 1 {
		first = 1
	}
	last := line + excerptRadius
	if last > len(lines) {
		last = len(lines)
	}
	width := len(fmt.Sprint(last))

	rows := make([]string, 0, last-first+1)
	for n := first; n <= last; n++ {
		gutter := GutterStyle.Render(fmt.Sprintf("%*d │", width, n))
		text := lines[n-1]
		if n == line {
			rows = append(rows, FailingLineStyle.Render("›")+gutter+" "+FailingLineStyle.Render(text))
			continue
		}
		rows = append(rows, " "+gutter+" "+ContextLineStyle.Render(text))
	}
	return strings.Join(rows, "\n")
}

// PrintException prints a compile-error report. It is shown in quiet mode.
//
// Parameters:
//   - ev: The exception reported by the loader
func PrintException(ev *loader.UncaughtException) {
	PrintRaw(RenderException(ev))
}
