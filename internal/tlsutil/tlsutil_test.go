package tlsutil

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTLSConfig_OnlyAEAD(t *testing.T) {
	cfg := DefaultTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.NotEmpty(t, cfg.CipherSuites)

	insecure := map[uint16]bool{}
	for _, s := range tls.InsecureCipherSuites() {
		insecure[s.ID] = true
	}
	for _, id := range cfg.CipherSuites {
		assert.False(t, insecure[id], "suite %s", tls.CipherSuiteName(id))
		assert.NotContains(t, tls.CipherSuiteName(id), "CBC")
	}
}

func TestDefaultTLSConfig_FreshCopy(t *testing.T) {
	a := DefaultTLSConfig()
	a.ServerName = "mutated"
	a.CipherSuites[0] = 0

	b := DefaultTLSConfig()
	assert.Empty(t, b.ServerName)
	assert.Equal(t, aeadSuites[0], b.CipherSuites[0])
}

func TestClientTLSConfig_ServerName(t *testing.T) {
	tests := map[string]string{
		"cache.internal:6380": "cache.internal",
		"10.0.0.5:6379":       "10.0.0.5",
		"[::1]:6379":          "::1",
		"redis-no-port":       "redis-no-port",
	}
	for addr, want := range tests {
		t.Run(addr, func(t *testing.T) {
			cfg := ClientTLSConfig(addr)
			assert.Equal(t, want, cfg.ServerName)
			assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
		})
	}
}

func TestSecureTransport(t *testing.T) {
	tr := SecureTransport()
	require.NotNil(t, tr.TLSClientConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
	assert.True(t, tr.ForceAttemptHTTP2)
	assert.Equal(t, maxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.NotNil(t, tr.Proxy)
}

func TestSecureHTTPClient_TalksToTLSServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := SecureHTTPClient(5 * time.Second)
	assert.Equal(t, 5*time.Second, client.Timeout)

	// 信任测试服务器的自签证书
	tr := client.Transport.(*http.Transport)
	tr.TLSClientConfig.RootCAs = srv.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
