//go:build !windows

package main

import (
	"fmt"
	"os"
	"syscall"
)

// restartProcess replaces the running process with a fresh copy of itself.
// On success it does not return.
func restartProcess() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
