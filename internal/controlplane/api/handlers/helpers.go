package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/marmos91/corevisor/internal/controlplane/api/problem"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		problem.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// decodeOptionalJSONBody is decodeJSONBody for endpoints whose body may be
// omitted. An empty body leaves v untouched.
func decodeOptionalJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		problem.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// queryBool parses a boolean query parameter. A missing parameter is false.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
