package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_EmbeddedFallback(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.HTTPPort)
	assert.Equal(t, "env", cfg.GenAI.CredentialMode)
	assert.Equal(t, "https://picsum.photos/seed", cfg.Images.PlaceholderBaseURL)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.TTL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 20, cfg.Server.GenerateRateLimit)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, "8000", cfg.Server.HTTPPort)
	assert.Equal(t, 8, cfg.Images.Concurrency)
	assert.Equal(t, 800, cfg.Images.PlaceholderWidth)
	assert.Equal(t, 600, cfg.Images.PlaceholderHeight)
	assert.Equal(t, int64(20<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, "16:9", cfg.GenAI.AspectRatio)
}
