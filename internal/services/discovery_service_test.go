package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/fbx-agent/internal/services"
	"github.com/benmeehan/fbx-agent/pkg/file"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

func newDiscovery(t *testing.T, status int, body string) *services.DiscoveryService {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api_version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := transport.New(transport.Config{BaseURL: server.URL + "/"}, file.NewFileService())
	require.NoError(t, err)
	return services.NewDiscoveryService("mafreebox.freebox.fr", "/api_version", client, testLogger())
}

func TestDiscoveryService_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		baseURL string
	}{
		{
			name:    "minor version",
			body:    `{"api_base_url":"/api/","api_version":"8.1","device_name":"Freebox Server","uid":"abc"}`,
			baseURL: "https://mafreebox.freebox.fr/api/v8/",
		},
		{
			name:    "full semver",
			body:    `{"api_base_url":"/api/","api_version":"10.2.0"}`,
			baseURL: "https://mafreebox.freebox.fr/api/v10/",
		},
		{
			name:    "non semver falls back to the leading integer",
			body:    `{"api_base_url":"/api/","api_version":"6.0.1.4"}`,
			baseURL: "https://mafreebox.freebox.fr/api/v6/",
		},
		{
			name:    "old appliance is still resolved",
			body:    `{"api_base_url":"/api/","api_version":"3.0"}`,
			baseURL: "https://mafreebox.freebox.fr/api/v3/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := newDiscovery(t, http.StatusOK, tt.body)

			info, err := ds.Resolve(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.baseURL, info.BaseURL)
		})
	}
}

func TestDiscoveryService_Resolve_KeepsDeviceInfo(t *testing.T) {
	ds := newDiscovery(t, http.StatusOK, `{"api_base_url":"/api/","api_version":"8.1","device_name":"Freebox Server","uid":"abc"}`)

	info, err := ds.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Freebox Server", info.DeviceName)
	assert.Equal(t, "abc", info.UID)
	assert.Equal(t, "8.1", info.APIVersion)
}

func TestDiscoveryService_Resolve_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "not json", status: http.StatusOK, body: `<html></html>`},
		{name: "missing base url", status: http.StatusOK, body: `{"api_version":"8.1"}`},
		{name: "unparseable version", status: http.StatusOK, body: `{"api_base_url":"/api/","api_version":"latest"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := newDiscovery(t, tt.status, tt.body)

			_, err := ds.Resolve(context.Background())

			var resolutionErr *services.ResolutionError
			assert.ErrorAs(t, err, &resolutionErr)
		})
	}
}

func TestDiscoveryService_Resolve_Unreachable(t *testing.T) {
	client, err := transport.New(transport.Config{BaseURL: "http://127.0.0.1:1/"}, file.NewFileService())
	require.NoError(t, err)
	ds := services.NewDiscoveryService("127.0.0.1:1", "/api_version", client, testLogger())

	_, err = ds.Resolve(context.Background())

	var resolutionErr *services.ResolutionError
	assert.ErrorAs(t, err, &resolutionErr)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://192.168.1.254/api/v4/", services.BaseURL("192.168.1.254", "/api/", 4))
}
