package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_endpoint_addr": "www.example:9000",
		"request_timeout":      "1500ms",
	})

	t.Run("loads from -config", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, "www.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
	})

	t.Run("loads from -c", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-a", "x:1", "-c", path})
		assert.Equal(t, "www.example:9000", cfg.ServerEndpointAddr)
	})

	t.Run("no flag, no changes", func(t *testing.T) {
		cfg := &Config{ServerEndpointAddr: "keep"}
		parseJson(cfg, nil)
		assert.Equal(t, "keep", cfg.ServerEndpointAddr)
	})

	t.Run("missing keys keep values", func(t *testing.T) {
		partial := writeTempJSON(t, map[string]any{"server_endpoint_addr": "only:1"})
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", partial})
		assert.Equal(t, "only:1", cfg.ServerEndpointAddr)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	})
}

func Test_parseJson_Panics(t *testing.T) {
	assert.Panics(t, func() {
		parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "absent.json")})
	})

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	assert.Panics(t, func() { parseJson(&Config{}, []string{"-c", bad}) })
}
