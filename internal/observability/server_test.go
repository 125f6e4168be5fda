package observability

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviders(t *testing.T) {
	t.Parallel()

	providers, err := NewProviders()
	require.NoError(t, err)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.handler)
}

func TestDiagnosticsServer_Endpoints(t *testing.T) {
	t.Parallel()

	providers, err := NewProviders()
	require.NoError(t, err)

	srv, err := NewDiagnosticsServer("127.0.0.1:0", providers)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(t.Context()) })

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, getErr := http.Get("http://" + srv.Addr() + path)
		require.NoError(t, getErr, path)

		_, readErr := io.ReadAll(resp.Body)
		require.NoError(t, readErr)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestDiagnosticsServer_HealthBody(t *testing.T) {
	t.Parallel()

	providers, err := NewProviders()
	require.NoError(t, err)

	srv, err := NewDiagnosticsServer("127.0.0.1:0", providers)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(t.Context()) })

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
