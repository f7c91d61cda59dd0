package apiclient

import (
	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
	"github.com/marmos91/corevisor/pkg/coreapp"
)

// OperationRequest carries the flags of a lifecycle operation. Flags that do
// not apply to an operation are ignored by the server.
type OperationRequest struct {
	SafeMode bool   `json:"safe_mode,omitempty"`
	Force    bool   `json:"force,omitempty"`
	Backup   bool   `json:"backup,omitempty"`
	Version  string `json:"version,omitempty"`
}

// OperationResponse reports a lifecycle operation. State is only set once
// the operation has finished.
type OperationResponse struct {
	JobID     string          `json:"job_id"`
	Operation string          `json:"operation"`
	State     lifecycle.State `json:"state,omitempty"`
}

// CheckResponse is the result of a successful configuration check.
type CheckResponse struct {
	Valid bool `json:"valid"`
}

// CoreInfo returns the core app information.
func (c *Client) CoreInfo() (*lifecycle.Info, error) {
	return getResource[lifecycle.Info](c, "/api/v1/core/info")
}

// SetCoreOptions merges opts into the stored core options and returns them.
func (c *Client) SetCoreOptions(opts options.Partial) (*models.CoreOptions, error) {
	return postResource[models.CoreOptions](c, "/api/v1/core/options", opts)
}

// CoreStats returns the resource usage of the running core app.
func (c *Client) CoreStats() (*coreapp.Stats, error) {
	return getResource[coreapp.Stats](c, "/api/v1/core/stats")
}

// CheckCoreConfig validates the core app configuration. An invalid
// configuration is returned as an *APIError for which IsConfigInvalid holds.
func (c *Client) CheckCoreConfig() (*CheckResponse, error) {
	return postResource[CheckResponse](c, "/api/v1/core/check", nil)
}

// RunCoreOperation runs a lifecycle operation. With background set the
// server answers once the operation is accepted; otherwise the call blocks
// until it finishes, so use a client from WithTimeout(0) for long updates.
func (c *Client) RunCoreOperation(op lifecycle.Operation, req OperationRequest, background bool) (*OperationResponse, error) {
	path := resourcePath("/api/v1/core/%s", string(op))
	if background {
		path = withQuery(path, map[string]string{"background": "true"})
	}
	return postResource[OperationResponse](c, path, req)
}

// StartCore starts the core app.
func (c *Client) StartCore(safeMode, background bool) (*OperationResponse, error) {
	return c.RunCoreOperation(lifecycle.OpStart, OperationRequest{SafeMode: safeMode}, background)
}

// StopCore stops the core app.
func (c *Client) StopCore(force, background bool) (*OperationResponse, error) {
	return c.RunCoreOperation(lifecycle.OpStop, OperationRequest{Force: force}, background)
}

// RestartCore restarts the core app.
func (c *Client) RestartCore(safeMode, force, background bool) (*OperationResponse, error) {
	return c.RunCoreOperation(lifecycle.OpRestart, OperationRequest{SafeMode: safeMode, Force: force}, background)
}

// RebuildCore rebuilds the core app environment.
func (c *Client) RebuildCore(safeMode, force, background bool) (*OperationResponse, error) {
	return c.RunCoreOperation(lifecycle.OpRebuild, OperationRequest{SafeMode: safeMode, Force: force}, background)
}

// UpdateCore updates the core app to version, or to the latest version when
// version is empty.
func (c *Client) UpdateCore(version string, backup, background bool) (*OperationResponse, error) {
	return c.RunCoreOperation(lifecycle.OpUpdate, OperationRequest{Version: version, Backup: backup}, background)
}

// LastJob returns the most recent lifecycle job.
func (c *Client) LastJob() (*models.Job, error) {
	return getResource[models.Job](c, "/api/v1/core/jobs/last")
}

// Job returns a lifecycle job by id.
func (c *Client) Job(id string) (*models.Job, error) {
	return getResource[models.Job](c, resourcePath("/api/v1/core/jobs/%s", id))
}
