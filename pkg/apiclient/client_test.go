package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8080/")
	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func TestWithToken(t *testing.T) {
	client := New("http://localhost:8080")
	tokenClient := client.WithToken("test-token")

	assert.Empty(t, client.token)
	assert.Equal(t, "test-token", tokenClient.token)
	assert.Equal(t, "http://localhost:8080", tokenClient.baseURL)
}

func TestWithTimeout(t *testing.T) {
	client := New("http://localhost:8080").WithToken("tok")
	unbounded := client.WithTimeout(0)

	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, time.Duration(0), unbounded.httpClient.Timeout)
	assert.Equal(t, "tok", unbounded.token)
}

func TestSetToken(t *testing.T) {
	client := New("http://localhost:8080")
	client.SetToken("my-token")
	assert.Equal(t, "my-token", client.token)
}

func TestDoWithSuccess(t *testing.T) {
	type Response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"), "GET without body")
		assert.Contains(t, r.Header.Get("Accept"), "application/problem+json")
		assert.Equal(t, "corevisorctl", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(Response{Message: "success"})
	}))
	defer server.Close()

	client := New(server.URL).WithUserAgent("corevisorctl")

	var resp Response
	err := client.get("/test", &resp)
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Message)
}

func TestDoWithAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	err := client.get("/test", nil)
	require.NoError(t, err)
}

func TestDoWithProblem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"type":"about:blank","title":"Conflict","status":409,"detail":"migration in progress"}`))
	}))
	defer server.Close()

	err := New(server.URL).get("/test", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "migration in progress", apiErr.Detail)
	assert.True(t, apiErr.IsConflict())
	assert.False(t, apiErr.IsAuthError())
	assert.Equal(t, "Conflict: migration in progress", apiErr.Error())
}

func TestDoWithPlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(server.URL).get("/test", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Title)
	assert.Equal(t, "upstream down", apiErr.Detail)
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		check  func(*APIError) bool
	}{
		{http.StatusUnauthorized, (*APIError).IsAuthError},
		{http.StatusForbidden, (*APIError).IsAuthError},
		{http.StatusNotFound, (*APIError).IsNotFound},
		{http.StatusConflict, (*APIError).IsConflict},
		{http.StatusBadRequest, (*APIError).IsValidationError},
		{http.StatusUnprocessableEntity, (*APIError).IsConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.True(t, tt.check(&APIError{StatusCode: tt.status}))
		})
	}
}

func TestErrorHelpersUnwrap(t *testing.T) {
	err := fmt.Errorf("stop failed: %w", &APIError{StatusCode: http.StatusConflict})
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsAuthError(fmt.Errorf("dial tcp: connection refused")))
	assert.True(t, IsConfigInvalid(&APIError{StatusCode: http.StatusUnprocessableEntity}))
}

func TestDoWithPost(t *testing.T) {
	type Request struct {
		Name string `json:"name"`
	}
	type Response struct {
		ID int `json:"id"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "test", req.Name)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Response{ID: 123})
	}))
	defer server.Close()

	client := New(server.URL)

	var resp Response
	err := client.post("/test", Request{Name: "test"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, 123, resp.ID)
}

func TestResourcePathEscapes(t *testing.T) {
	assert.Equal(t, "/api/v1/services/a%2Fb", resourcePath("/api/v1/services/%s", "a/b"))
}

func TestWithQuery(t *testing.T) {
	assert.Equal(t, "/x", withQuery("/x", map[string]string{"addon": ""}))
	assert.Equal(t, "/x?addon=core_mosquitto", withQuery("/x", map[string]string{"addon": "core_mosquitto"}))
}
