//go:build !windows

package commands

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// startDaemon re-executes the binary with --foreground in a new session.
// The child's output is appended to the log file.
func startDaemon() error {
	if err := os.MkdirAll(GetDefaultStateDir(), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := resolvePidFile(pidFile)
	if pid, running := isProcessRunning(pidPath); running {
		return fmt.Errorf("corevisor is already running (PID %d)\nUse 'corevisor stop' to stop it", pid)
	}
	_ = os.Remove(pidPath)

	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}
	out, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = out.Close() }()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	args := []string{"start", "--foreground", "--pid-file", pidPath}
	if cfg := GetConfigFile(); cfg != "" {
		args = append(args, "--config", cfg)
	}

	child := exec.Command(self, args...)
	child.Stdout, child.Stderr = out, out
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start background supervisor: %w", err)
	}

	fmt.Printf("corevisor started in background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n  Log file: %s\n\n", pidPath, logPath)
	fmt.Println("Check it with 'corevisor status', stop it with 'corevisor stop'")
	return nil
}
