package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://argo.example/v1", cfg.ArgoAPIURL)
	assert.False(t, cfg.EnableLeakedToolFix)
}

func TestLoadFromEnv_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("ARGO_API_URL", "https://argo.internal/v2")
	t.Setenv("ARGO_PROXY_MAX_CONNECTIONS", "250")
	t.Setenv("ARGO_PROXY_CONNECT_TIMEOUT", "5s")
	t.Setenv("ARGO_PROXY_READ_TIMEOUT", "45")
	t.Setenv("ENABLE_LEAKED_TOOL_FIX", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://argo.internal/v2", cfg.ArgoAPIURL)
	assert.Equal(t, 250, cfg.Session.TotalConnections)
	assert.Equal(t, 5*time.Second, cfg.Session.ConnectTimeout)
	assert.Equal(t, 45*time.Second, cfg.Session.ReadTimeout)
	assert.True(t, cfg.EnableLeakedToolFix)
}

func TestLoadFromEnv_InvalidValuesAreIgnored(t *testing.T) {
	t.Setenv("ARGO_PROXY_MAX_CONNECTIONS", "not-a-number")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Session.TotalConnections) // falls back to session.DefaultConfig()
}
