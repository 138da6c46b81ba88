package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "/", cfg.DefaultDir)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_SessionLifetimeOverride(t *testing.T) {
	t.Setenv("SESSION_LIFETIME", "24")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoad_CookieSecureOverride(t *testing.T) {
	t.Setenv("COOKIE_ONLY_OVER_HTTPS", "true")

	cfg := Load()
	assert.True(t, cfg.CookieSecure)
}

func TestValidate_RejectsNonPositiveTTL(t *testing.T) {
	cfg := &Config{SessionTTL: 0}
	require.Error(t, cfg.Validate())

	cfg.SessionTTL = -time.Hour
	require.Error(t, cfg.Validate())
}

func TestEnvironmentHelpers(t *testing.T) {
	tests := []struct {
		env    string
		isProd bool
		isDev  bool
	}{
		{"production", true, false},
		{"prod", true, false},
		{"development", false, true},
		{"dev", false, true},
		{"", false, true},
		{"staging", false, false},
	}

	for _, tt := range tests {
		cfg := &Config{Environment: tt.env, SessionTTL: time.Hour}
		assert.Equal(t, tt.isProd, cfg.IsProduction(), "env=%q", tt.env)
		assert.Equal(t, tt.isDev, cfg.IsDevelopment(), "env=%q", tt.env)
	}
}
