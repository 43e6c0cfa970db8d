package socket

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrNotConnected is passed to write callbacks when there is no live connection.
var ErrNotConnected = errors.New("socket is not connected")

// ErrWriteQueueFull is passed to write callbacks when the peer is not
// keeping up and the write was dropped.
var ErrWriteQueueFull = errors.New("socket write queue is full")

// ErrorEvent describes a low-level connection failure.
type ErrorEvent struct {
	// Code is the OS error number, or 0 when the failure has none.
	Code int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ErrorEvent) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("socket error: %v", e.Err)
	}
	return fmt.Sprintf("socket error %d: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *ErrorEvent) Unwrap() error {
	return e.Err
}

// IsConnectionRefused reports whether the event is a refused connection.
func (e *ErrorEvent) IsConnectionRefused() bool {
	return e.Code == int(syscall.ECONNREFUSED) || errors.Is(e.Err, syscall.ECONNREFUSED)
}

func newErrorEvent(err error) *ErrorEvent {
	return &ErrorEvent{Code: ErrorCode(err), Err: err}
}

// ErrorCode extracts the OS error number from err.
//
// Parameters:
//   - err: A dial or I/O error
//
// Returns:
//   - int: The errno value, or 0 if err does not carry one
func ErrorCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
