//go:build windows

package commands

import "errors"

func startDaemon() error {
	return errors.New("background mode is not available on Windows, run with --foreground")
}
