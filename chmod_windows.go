//go:build windows

package main

import "os"

// chmod_windows.go - Windows has no POSIX execute bit; os.Chmod there only
// toggles the read-only attribute, which a freshly written file never has.
// The driver calls this only for ELF outputs.
func chmodExecutable(path string) error {
	return os.Chmod(path, 0o644)
}
