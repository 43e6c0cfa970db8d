package loader

import (
	"fmt"

	"github.com/revyl/liveview/internal/emitter"
)

// EventUncaughtException is emitted on the Process when a module throws.
const EventUncaughtException = "uncaughtException"

// Process is the long-lived global context that receives loader events.
type Process struct {
	*emitter.Emitter
}

// NewProcess creates a Process with no listeners.
func NewProcess() *Process {
	return &Process{Emitter: emitter.New()}
}

// UncaughtException describes a script error raised while compiling a module.
type UncaughtException struct {
	// ModuleID is the identifier of the failing module (or include).
	ModuleID string

	// Filename is the script file name.
	Filename string

	// Err is the underlying script error.
	Err error

	// Line is the 1-based line in the module source, 0 when unknown.
	Line int

	// Backtrace is the script stack trace when available.
	Backtrace string

	// Lines is the module source split into lines.
	Lines []string
}

// Error implements the error interface.
func (u *UncaughtException) Error() string {
	if u.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", u.Filename, u.Line, u.Err)
	}
	return fmt.Sprintf("%s: %v", u.Filename, u.Err)
}

// Unwrap returns the script error.
func (u *UncaughtException) Unwrap() error {
	return u.Err
}

// SourceLine returns the failing source line, or "" when out of range.
func (u *UncaughtException) SourceLine() string {
	if u.Line < 1 || u.Line > len(u.Lines) {
		return ""
	}
	return u.Lines[u.Line-1]
}
