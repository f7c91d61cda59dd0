package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/corevisor/internal/controlplane/api/auth"
	"github.com/marmos91/corevisor/internal/controlplane/api/middleware"
	"github.com/marmos91/corevisor/internal/controlplane/api/problem"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/services"
)

// ServiceHandler handles the service directory endpoints.
//
// Admin tokens see every payload and act on behalf of the add-on named by the
// ?addon= query parameter. Addon tokens only see and change their own payload.
type ServiceHandler struct {
	dir *services.Directory
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(dir *services.Directory) *ServiceHandler {
	return &ServiceHandler{dir: dir}
}

// ServiceResponse describes one service.
type ServiceResponse struct {
	Slug      string                    `json:"slug"`
	Enabled   bool                      `json:"enabled"`
	Providers []string                  `json:"providers"`
	Active    []string                  `json:"active"`
	Data      map[string]map[string]any `json:"data,omitempty"`
}

// List handles GET /api/v1/services.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	slugs := h.dir.Slugs()
	resp := make([]ServiceResponse, 0, len(slugs))
	for _, slug := range slugs {
		svc, ok := h.describe(w, r, slug, false)
		if !ok {
			return
		}
		resp = append(resp, svc)
	}
	problem.WriteJSONOK(w, resp)
}

// Get handles GET /api/v1/services/{slug}.
func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.describe(w, r, chi.URLParam(r, "slug"), true)
	if !ok {
		return
	}
	problem.WriteJSONOK(w, svc)
}

// Schema handles GET /api/v1/services/{slug}/schema.
func (h *ServiceHandler) Schema(w http.ResponseWriter, r *http.Request) {
	svc, err := h.dir.Service(chi.URLParam(r, "slug"))
	if err != nil {
		MapError(w, err)
		return
	}
	problem.WriteJSONOK(w, svc.Schema())
}

// Set handles POST /api/v1/services/{slug}.
// The body is the payload of the calling add-on.
func (h *ServiceHandler) Set(w http.ResponseWriter, r *http.Request) {
	addon, ok := callerAddon(w, r)
	if !ok {
		return
	}

	var payload map[string]any
	if !decodeJSONBody(w, r, &payload) {
		return
	}
	if payload == nil {
		problem.BadRequest(w, "Payload must be a JSON object")
		return
	}

	if err := h.dir.SetServiceData(r.Context(), addon, chi.URLParam(r, "slug"), payload); err != nil {
		MapError(w, err)
		return
	}
	problem.WriteNoContent(w)
}

// Delete handles DELETE /api/v1/services/{slug}.
// Deleting a payload that does not exist succeeds.
func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	addon, ok := callerAddon(w, r)
	if !ok {
		return
	}

	if err := h.dir.DelServiceData(r.Context(), addon, chi.URLParam(r, "slug")); err != nil {
		MapError(w, err)
		return
	}
	problem.WriteNoContent(w)
}

// describe builds the response for slug. Payloads are included when
// withData is set: all of them for admins, the caller's own for add-ons.
func (h *ServiceHandler) describe(w http.ResponseWriter, r *http.Request, slug string, withData bool) (ServiceResponse, bool) {
	providers, err := h.dir.Providers(r.Context(), slug)
	if err != nil {
		MapError(w, err)
		return ServiceResponse{}, false
	}
	active, err := h.dir.Active(slug)
	if err != nil {
		MapError(w, err)
		return ServiceResponse{}, false
	}

	resp := ServiceResponse{
		Slug:      slug,
		Enabled:   h.dir.Enabled(slug),
		Providers: nonNil(providers),
		Active:    nonNil(active),
	}
	if !withData {
		return resp, true
	}

	data, enabled := h.dir.GetServiceData(slug)
	if !enabled {
		return resp, true
	}
	claims := middleware.GetClaimsFromContext(r.Context())
	switch {
	case claims != nil && claims.IsAdmin():
		resp.Data = data
	case claims != nil:
		if own, ok := data[claims.Addon()]; ok {
			resp.Data = map[string]map[string]any{claims.Addon(): own}
		}
	}
	return resp, true
}

// callerAddon resolves the add-on a write acts for.
func callerAddon(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		problem.Unauthorized(w, "Authentication required")
		return "", false
	}

	query := r.URL.Query().Get("addon")
	switch claims.Role {
	case auth.RoleAdmin:
		if query == "" {
			problem.BadRequest(w, "The addon query parameter is required for admin tokens")
			return "", false
		}
		return query, true
	case auth.RoleAddon:
		if query != "" && query != claims.Addon() {
			problem.Forbidden(w, "Add-on tokens can only change their own service data")
			return "", false
		}
		return claims.Addon(), true
	default:
		problem.Forbidden(w, "Insufficient privileges")
		return "", false
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
