//go:build !windows

package main

import "golang.org/x/sys/unix"

// chmod_unix.go - mark a freshly written ELF executable runnable.
func chmodExecutable(path string) error {
	return unix.Chmod(path, 0o755)
}
