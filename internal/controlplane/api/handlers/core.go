package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/corevisor/internal/controlplane/api/problem"
	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
)

// CoreHandler handles the core app lifecycle endpoints (admin only).
type CoreHandler struct {
	ctrl *lifecycle.Controller
}

// NewCoreHandler creates a new CoreHandler.
func NewCoreHandler(ctrl *lifecycle.Controller) *CoreHandler {
	return &CoreHandler{ctrl: ctrl}
}

// OperationRequest is the optional body of the lifecycle POST endpoints.
// Fields that do not apply to an operation are ignored.
type OperationRequest struct {
	SafeMode bool   `json:"safe_mode,omitempty"`
	Force    bool   `json:"force,omitempty"`
	Backup   bool   `json:"backup,omitempty"`
	Version  string `json:"version,omitempty"`
}

// OperationResponse reports an accepted lifecycle operation.
type OperationResponse struct {
	JobID     string          `json:"job_id"`
	Operation string          `json:"operation"`
	State     lifecycle.State `json:"state,omitempty"`
}

// CheckResponse is the body of a successful configuration check.
type CheckResponse struct {
	Valid bool `json:"valid"`
}

// Info handles GET /api/v1/core/info.
func (h *CoreHandler) Info(w http.ResponseWriter, r *http.Request) {
	problem.WriteJSONOK(w, h.ctrl.Info(r.Context()))
}

// SetOptions handles POST /api/v1/core/options.
// Merges the body into the stored options and returns the result.
func (h *CoreHandler) SetOptions(w http.ResponseWriter, r *http.Request) {
	var req options.Partial
	if !decodeJSONBody(w, r, &req) {
		return
	}

	merged, err := h.ctrl.SetOptions(r.Context(), req)
	if err != nil {
		MapError(w, err)
		return
	}
	problem.WriteJSONOK(w, merged)
}

// Stats handles GET /api/v1/core/stats.
func (h *CoreHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ctrl.Stats(r.Context())
	if err != nil {
		MapError(w, err)
		return
	}
	problem.WriteJSONOK(w, stats)
}

// Check handles POST /api/v1/core/check.
// An invalid configuration is answered with 422 and the check log as detail.
func (h *CoreHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.CheckConfig(r.Context()); err != nil {
		MapError(w, err)
		return
	}
	problem.WriteJSONOK(w, CheckResponse{Valid: true})
}

// Operation returns the handler of POST /api/v1/core/{op}.
//
// The handler waits for the operation to finish unless the request carries
// ?background=true, in which case it answers 202 with the job id as soon as
// the operation is accepted. A client that disconnects while waiting does not
// abort the operation.
func (h *CoreHandler) Operation(op lifecycle.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body OperationRequest
		if !decodeOptionalJSONBody(w, r, &body) {
			return
		}
		background, err := queryBool(r, "background")
		if err != nil {
			problem.BadRequest(w, "Invalid background parameter")
			return
		}

		task, err := h.ctrl.Submit(r.Context(), lifecycle.Request{
			Operation: op,
			SafeMode:  body.SafeMode,
			Force:     body.Force,
			Backup:    body.Backup,
			Version:   body.Version,
		})
		if err != nil {
			MapError(w, err)
			return
		}

		resp := OperationResponse{JobID: task.ID(), Operation: string(op)}
		if background {
			problem.WriteJSONAccepted(w, resp)
			return
		}

		if err := task.Wait(r.Context()); err != nil {
			logger.InfoCtx(r.Context(), "Core operation finished with error",
				logger.Operation(string(op)), logger.JobID(task.ID()), logger.Err(err))
			MapError(w, err)
			return
		}
		resp.State = h.ctrl.State()
		problem.WriteJSONOK(w, resp)
	}
}

// LastJob handles GET /api/v1/core/jobs/last.
func (h *CoreHandler) LastJob(w http.ResponseWriter, r *http.Request) {
	job := h.ctrl.LastJob()
	if job == nil {
		problem.NotFound(w, "No operation has run yet")
		return
	}
	problem.WriteJSONOK(w, job)
}

// Job handles GET /api/v1/core/jobs/{id}.
func (h *CoreHandler) Job(w http.ResponseWriter, r *http.Request) {
	job, err := h.ctrl.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			problem.NotFound(w, "Job not found")
			return
		}
		MapError(w, err)
		return
	}
	problem.WriteJSONOK(w, job)
}
