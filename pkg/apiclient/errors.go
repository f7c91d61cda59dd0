package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is an RFC 7807 problem returned by the API.
type APIError struct {
	Type       string `json:"type,omitempty"`
	Title      string `json:"title"`
	StatusCode int    `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Field      string `json:"field,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	title := e.Title
	if title == "" {
		title = http.StatusText(e.StatusCode)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", title, e.Detail)
	}
	return title
}

// IsAuthError returns true for a missing, invalid or insufficient token.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict returns true when the core app refused an operation because a
// migration or another operation is in progress.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsValidationError returns true if the request was rejected as invalid.
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == http.StatusBadRequest
}

// IsConfigInvalid returns true when the core app configuration check failed.
// Detail then carries the check log.
func (e *APIError) IsConfigInvalid() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// parseError builds an *APIError from an error response. Bodies that are
// not problem documents become the detail.
func parseError(status int, body []byte) error {
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && (apiErr.Title != "" || apiErr.Detail != "") {
		apiErr.StatusCode = status
		return &apiErr
	}
	return &APIError{
		StatusCode: status,
		Title:      http.StatusText(status),
		Detail:     strings.TrimSpace(string(body)),
	}
}

func asAPIError(err error, match func(*APIError) bool) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && match(apiErr)
}

// IsAuthError reports whether err is an authentication or authorization
// failure.
func IsAuthError(err error) bool { return asAPIError(err, (*APIError).IsAuthError) }

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return asAPIError(err, (*APIError).IsNotFound) }

// IsConflict reports whether err is a refused operation.
func IsConflict(err error) bool { return asAPIError(err, (*APIError).IsConflict) }

// IsValidationError reports whether err is a rejected request.
func IsValidationError(err error) bool { return asAPIError(err, (*APIError).IsValidationError) }

// IsConfigInvalid reports whether err is a failed configuration check.
func IsConfigInvalid(err error) bool { return asAPIError(err, (*APIError).IsConfigInvalid) }
