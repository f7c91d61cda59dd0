//go:build !windows

package commands

import "golang.org/x/sys/unix"

// stopSignal asks for a graceful shutdown, or kills outright when forced.
func stopSignal(force bool) (unix.Signal, string) {
	if force {
		return unix.SIGKILL, "SIGKILL"
	}
	return unix.SIGTERM, "SIGTERM"
}
