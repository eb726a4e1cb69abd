package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "JWT_ACCESS_TTL", "MAIL_BACKEND", "STORAGE_BACKEND", "SMTP_PORT", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}

	cfg, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.PORT)
	assert.Equal(t, 24*time.Hour, cfg.JWT_ACCESS_TTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT_REFRESH_TTL)
	assert.Equal(t, "console", cfg.MAIL_BACKEND)
	assert.Equal(t, "local", cfg.STORAGE_BACKEND)
	assert.Equal(t, 587, cfg.SMTP_PORT)
	assert.Equal(t, 500, cfg.MAX_UPLOAD_MB)
	assert.False(t, cfg.IsProduction())
}

func TestGet_FromEnvironment(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("MAIL_BACKEND", "sendgrid")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.PORT)
	assert.Equal(t, 15*time.Minute, cfg.JWT_ACCESS_TTL)
	assert.Equal(t, "sendgrid", cfg.MAIL_BACKEND)
	assert.Equal(t, 587, cfg.SMTP_PORT)
	assert.True(t, cfg.IsProduction())
}
