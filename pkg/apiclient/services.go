package apiclient

import "encoding/json"

// Service describes a discovery service and, when fetched individually, the
// payloads visible to the caller keyed by add-on slug.
type Service struct {
	Slug      string                    `json:"slug"`
	Enabled   bool                      `json:"enabled"`
	Providers []string                  `json:"providers"`
	Active    []string                  `json:"active"`
	Data      map[string]map[string]any `json:"data,omitempty"`
}

// ListServices returns every registered service.
func (c *Client) ListServices() ([]Service, error) {
	return listResources[Service](c, "/api/v1/services")
}

// GetService returns a service with the payloads the token may see.
func (c *Client) GetService(slug string) (*Service, error) {
	return getResource[Service](c, resourcePath("/api/v1/services/%s", slug))
}

// ServiceSchema returns the JSON schema payloads of slug must match.
func (c *Client) ServiceSchema(slug string) (json.RawMessage, error) {
	var schema json.RawMessage
	if err := c.get(resourcePath("/api/v1/services/%s/schema", slug), &schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// SetServiceData stores payload as the service data of addon. Add-on
// tokens may pass an empty addon; admin tokens must name one.
func (c *Client) SetServiceData(slug, addon string, payload map[string]any) error {
	path := withQuery(resourcePath("/api/v1/services/%s", slug), map[string]string{"addon": addon})
	return c.post(path, payload, nil)
}

// DeleteServiceData removes the service data of addon. Removing data that
// does not exist succeeds.
func (c *Client) DeleteServiceData(slug, addon string) error {
	path := withQuery(resourcePath("/api/v1/services/%s", slug), map[string]string{"addon": addon})
	return c.delete(path, nil)
}
