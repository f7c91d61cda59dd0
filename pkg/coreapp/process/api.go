package process

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/marmos91/corevisor/internal/logger"
)

// apiState is the body of the core app's GET /api/core/state endpoint.
type apiState struct {
	State              string `json:"state"`
	OfflineDBMigration bool   `json:"offline_db_migration"`
}

// MigrationInProgress asks the core app API whether an offline database
// migration is running. Without an API URL or a running core app there is
// no migration to report.
func (r *Runtime) MigrationInProgress(ctx context.Context) (bool, error) {
	if r.cfg.APIURL == "" || r.alive() == nil {
		return false, nil
	}
	state, err := r.apiState(ctx)
	if err != nil {
		return false, err
	}
	return state.OfflineDBMigration, nil
}

// LatestVersion returns the newest available version from VersionURL, or the
// pinned LatestVersion.
func (r *Runtime) LatestVersion(ctx context.Context) (string, error) {
	if r.cfg.VersionURL != "" {
		var body struct {
			Version string `json:"version"`
		}
		if err := r.getJSON(ctx, r.cfg.VersionURL, &body); err != nil {
			return "", fmt.Errorf("failed to fetch latest version: %w", err)
		}
		if body.Version == "" {
			return "", fmt.Errorf("version endpoint returned no version")
		}
		return body.Version, nil
	}
	if r.cfg.LatestVersion != "" {
		return r.cfg.LatestVersion, nil
	}
	return "", fmt.Errorf("latest version unknown")
}

func (r *Runtime) apiState(ctx context.Context) (*apiState, error) {
	var state apiState
	url := strings.TrimSuffix(r.cfg.APIURL, "/") + "/api/core/state"
	if err := r.getJSON(ctx, url, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *Runtime) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		logger.DebugCtx(ctx, "Failed to decode response", "url", url, logger.Err(err))
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
