//go:build windows

package main

import "errors"

// restartProcess is unsupported on Windows, which has no exec(2). The
// session falls back to reloading in place.
func restartProcess() error {
	return errors.New("process restart is not supported on windows")
}
