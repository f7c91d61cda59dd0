package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/corevisor/internal/controlplane/api/problem"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"validation", models.NewValidationError("port", "must be at most 65535"), http.StatusBadRequest, "must be at most 65535"},
		{"wrapped validation", fmt.Errorf("apply: %w", models.NewValidationError("image", "bad")), http.StatusBadRequest, "bad"},
		{"unknown service", fmt.Errorf("%w: zigbee", models.ErrUnknownService), http.StatusNotFound, "unknown service: zigbee"},
		{"not found", models.ErrNotFound, http.StatusNotFound, "Not found"},
		{"migration", models.ErrMigrationInProgress, http.StatusConflict, models.ErrMigrationInProgress.Error()},
		{"in progress", fmt.Errorf("%w: core is updating", models.ErrOperationInProgress), http.StatusConflict, "another lifecycle operation is in progress: core is updating"},
		{"config invalid", &models.ConfigInvalidError{Details: "bad yaml"}, http.StatusUnprocessableEntity, "bad yaml"},
		{"stats", models.ErrStatsUnavailable, http.StatusServiceUnavailable, "no stats available"},
		{"operation", &models.OperationError{Operation: "stop", Err: errors.New("boom")}, http.StatusInternalServerError, "stop failed: boom"},
		{"caller gone", context.Canceled, http.StatusGatewayTimeout, ""},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			MapError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, problem.ContentTypeProblemJSON, w.Header().Get("Content-Type"))
			p := decode[problem.Problem](t, w)
			assert.Equal(t, tt.wantStatus, p.Status)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, p.Detail)
			}
		})
	}
}
