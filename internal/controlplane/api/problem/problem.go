// Package problem writes RFC 7807 problem details and plain JSON bodies for
// the control API.
package problem

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/marmos91/corevisor/internal/logger"
)

// ContentTypeProblemJSON is the media type of every error body.
const ContentTypeProblemJSON = "application/problem+json"

// Problem is an RFC 7807 error body. Field is an extension member naming
// the rejected input of a validation failure.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

// Write sends p, defaulting Type to about:blank and Title to the status text.
func Write(w http.ResponseWriter, p *Problem) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteProblem sends a problem with an explicit title.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	Write(w, &Problem{Title: title, Status: status, Detail: detail})
}

func withStatus(status int) func(http.ResponseWriter, string) {
	return func(w http.ResponseWriter, detail string) {
		Write(w, &Problem{Status: status, Detail: detail})
	}
}

// Shorthands titled with the standard status text.
var (
	BadRequest          = withStatus(http.StatusBadRequest)
	Unauthorized        = withStatus(http.StatusUnauthorized)
	Forbidden           = withStatus(http.StatusForbidden)
	NotFound            = withStatus(http.StatusNotFound)
	Conflict            = withStatus(http.StatusConflict)
	UnprocessableEntity = withStatus(http.StatusUnprocessableEntity)
	InternalServerError = withStatus(http.StatusInternalServerError)
	ServiceUnavailable  = withStatus(http.StatusServiceUnavailable)
)

// WriteJSON encodes data before touching the response, so an encoding
// failure still goes out as a 500.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", logger.Err(err))
		InternalServerError(w, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// WriteJSONOK sends data with 200.
func WriteJSONOK(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusOK, data) }

// WriteJSONAccepted sends data with 202.
func WriteJSONAccepted(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusAccepted, data) }

// WriteNoContent sends an empty 204.
func WriteNoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }
