// Package coreapp defines the collaborator that physically runs the managed
// core application. The lifecycle controller only talks to this interface.
package coreapp

import (
	"context"
)

// Stats is a point-in-time resource snapshot of the core app.
type Stats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsage   uint64  `json:"memory_usage"`
	MemoryLimit   uint64  `json:"memory_limit"`
	MemoryPercent float64 `json:"memory_percent"`
	NetworkRx     uint64  `json:"network_rx"`
	NetworkTx     uint64  `json:"network_tx"`
	BlkRead       uint64  `json:"blk_read"`
	BlkWrite      uint64  `json:"blk_write"`
}

// CheckResult is the outcome of the core app validating its own configuration.
type CheckResult struct {
	Valid bool   `json:"valid"`
	Log   string `json:"log,omitempty"`
}

// Identity describes where the core app runs.
type Identity struct {
	Machine   string `json:"machine"`
	Arch      string `json:"arch"`
	IPAddress string `json:"ip_address"`
}

// Runtime starts, stops and inspects the core app.
//
// Implementations must be safe for concurrent use. Every method may block
// for as long as the underlying operation takes; callers decide whether the
// context they pass can be cancelled.
type Runtime interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context, safeMode bool) error
	Rebuild(ctx context.Context, safeMode bool) error
	Update(ctx context.Context, version string, backup bool) error

	// CheckConfig asks the core app to validate its configuration without
	// restarting. A failed validation is reported through CheckResult, not
	// through the error.
	CheckConfig(ctx context.Context) (CheckResult, error)

	// Stats returns a fresh resource snapshot. It fails with an error
	// matching models.ErrStatsUnavailable when the core app cannot report.
	Stats(ctx context.Context) (*Stats, error)

	// MigrationInProgress reports whether the core app is running an
	// offline database migration.
	MigrationInProgress(ctx context.Context) (bool, error)

	// Running reports whether the core app process is alive.
	Running(ctx context.Context) bool

	// Healthy reports whether the core app is alive and answering.
	Healthy(ctx context.Context) bool

	// LatestVersion returns the newest version available for update.
	LatestVersion(ctx context.Context) (string, error)

	// Identity returns the machine, architecture and address of the host.
	Identity(ctx context.Context) Identity
}

// ExitNotifier is implemented by runtimes that can report the core app
// exiting on its own. fn receives the exit error, nil for a clean exit, and
// is not called for exits caused by Stop, Restart, Rebuild or Update.
type ExitNotifier interface {
	OnExit(fn func(err error))
}
