package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	client, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 8, transport.MaxIdleConnsPerHost)
	assert.Contains(t, transport.TLSClientConfig.NextProtos, "h2")
}

func TestApplyKeepsExplicitHeaders(t *testing.T) {
	t.Parallel()

	var gotAgent, gotOrigin string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotOrigin = r.Header.Get("Origin")
	}))
	t.Cleanup(server.Close)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom")
	Apply(req, BrowserHeaders())

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "custom", gotAgent)
	assert.Equal(t, DefaultOrigin, gotOrigin)
}
