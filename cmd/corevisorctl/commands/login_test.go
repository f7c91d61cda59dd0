package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		in       string
		wantURL  string
		wantHost string
	}{
		{"localhost:8080", "http://localhost:8080", "localhost:8080"},
		{"http://supervisor:8080/", "http://supervisor:8080", "supervisor:8080"},
		{"https://corevisor.example.com", "https://corevisor.example.com", "corevisor.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, host, err := normalizeServerURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, u)
			assert.Equal(t, tt.wantHost, host)
		})
	}

	_, _, err := normalizeServerURL("http://")
	assert.Error(t, err)
}
