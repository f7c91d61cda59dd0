package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	psprocess "github.com/shirou/gopsutil/v4/process"
)

// resolvePidFile returns path, or the default PID file when path is empty.
func resolvePidFile(path string) string {
	if path == "" {
		return GetDefaultPidFile()
	}
	return path
}

// readPidFile parses the PID written by a foreground supervisor.
func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in %s: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// isProcessRunning reports the PID recorded at pidPath and whether that
// process still exists.
func isProcessRunning(pidPath string) (int, bool) {
	pid, err := readPidFile(pidPath)
	if err != nil {
		return 0, false
	}
	exists, err := psprocess.PidExists(int32(pid))
	if err != nil || !exists {
		return 0, false
	}
	return pid, true
}
