package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.RateLimit.PublicMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.PublicWindow)
	assert.Equal(t, 10, cfg.RateLimit.StrictMax)
	assert.Equal(t, time.Minute, cfg.RateLimit.StrictWindow)
	assert.Equal(t, 10*time.Second, cfg.Editor.SaveTimeout)
	assert.Equal(t, 10*time.Second, cfg.Public.ReadTimeout)
	assert.Equal(t, LocalStoreRedis, cfg.Editor.LocalStoreBackend)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EDITOR_SAVE_TIMEOUT", "3s")
	t.Setenv("LOCAL_STORE_BACKEND", "FILESYSTEM")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Editor.SaveTimeout)
	assert.Equal(t, LocalStoreFilesystem, cfg.Editor.LocalStoreBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.TrustedProxies)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Second, parseDuration("nope", time.Second))
	assert.Equal(t, 2*time.Minute, parseDuration("2m", time.Second))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
