package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/pkg/apiclient"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show supervisor status",
	Long: `Display whether the supervisor is running and healthy, and the
state of the core app it supervises.

Examples:
  corevisor status
  corevisor status --api-port 9080
  corevisor status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/corevisor/corevisor.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8080, "API server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus is the status reported by the status command.
type ServerStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Message   string `json:"message" yaml:"message"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	CoreState string `json:"core_state,omitempty" yaml:"core_state,omitempty"`
}

func (s ServerStatus) Headers() []string {
	return []string{"RUNNING", "PID", "HEALTHY", "CORE", "UPTIME", "MESSAGE"}
}

func (s ServerStatus) Rows() [][]string {
	pid := "-"
	if s.PID > 0 {
		pid = fmt.Sprintf("%d", s.PID)
	}
	return [][]string{{
		output.YesNo(s.Running), pid, output.YesNo(s.Healthy),
		output.OrDash(s.CoreState), output.OrDash(s.Uptime), s.Message,
	}}
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{Message: "Supervisor is not running"}
	if pid, running := isProcessRunning(resolvePidFile(statusPidFile)); running {
		status.Running = true
		status.PID = pid
	}

	client := apiclient.New(fmt.Sprintf("http://localhost:%d", statusAPIPort)).WithTimeout(2 * time.Second)
	health, err := client.Health()
	switch {
	case err == nil:
		status.Running = true
		status.Healthy = health.Status == "healthy"
		status.StartedAt = stringField(health.Data, "started_at")
		status.Uptime = stringField(health.Data, "uptime")
		status.CoreState = stringField(health.Data, "core_state")
		if status.Healthy {
			status.Message = "Supervisor is running and healthy"
		} else {
			status.Message = fmt.Sprintf("Supervisor is running but unhealthy: %s", health.Error)
		}
	case status.Running:
		status.Message = fmt.Sprintf("Process is running but the API is unreachable: %v", err)
	}

	return output.Print(os.Stdout, format, status, status)
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
