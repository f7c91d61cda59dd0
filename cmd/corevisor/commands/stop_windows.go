//go:build windows

package commands

import "os"

// stopSignal returns os.Kill when forced, os.Interrupt otherwise.
func stopSignal(force bool) (os.Signal, string) {
	if force {
		return os.Kill, "kill"
	}
	return os.Interrupt, "interrupt"
}
