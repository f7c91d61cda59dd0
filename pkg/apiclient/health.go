package apiclient

import "time"

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Health returns the liveness of the supervisor. It needs no token.
func (c *Client) Health() (*HealthResponse, error) {
	return getResource[HealthResponse](c, "/health")
}

// Ready reports whether the supervisor can serve requests. An unready
// supervisor yields an *APIError with status 503.
func (c *Client) Ready() (*HealthResponse, error) {
	return getResource[HealthResponse](c, "/health/ready")
}
