package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_HOST", "SERVER_PORT", "JWT_SECRET", "AUTH_VERIFY_SIGNATURE", "AUTH_COOKIE_NAME",
		"ROUTES_FILE", "ROUTES_WATCH", "ROUTE_LOGIN", "ROUTE_ADMIN_LANDING", "ROUTE_USER_LANDING",
		"ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "access_token", cfg.Auth.CookieName)
	assert.False(t, cfg.Auth.VerifySignature)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, "Login", cfg.Routes.LoginRoute)
	assert.Equal(t, "AdminPanel", cfg.Routes.AdminLanding)
	assert.Equal(t, "UserDashboard", cfg.Routes.UserLanding)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoad_VerifySignatureRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_VERIFY_SIGNATURE", "true")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_VerifySignatureWithSecret(t *testing.T) {
	t.Setenv("AUTH_VERIFY_SIGNATURE", "true")
	t.Setenv("JWT_SECRET", "12345678901234567890123456789012")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Auth.VerifySignature)
}

func TestLoad_ProductionShortSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")
}

func TestLoad_WatchRequiresFile(t *testing.T) {
	t.Setenv("ROUTES_WATCH", "true")
	t.Setenv("ROUTES_FILE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROUTES_FILE")
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("ROUTES_WATCH", "maybe")
	t.Setenv("TRACING_SAMPLE_RATE", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Routes.Watch)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
}

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		level   string
		debugOK bool
	}{
		{level: "debug", debugOK: true},
		{level: "INFO", debugOK: false},
		{level: "garbage", debugOK: false},
		{level: "", debugOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(LoggingConfig{Level: tt.level, Format: "json"}, &buf)
			logger.Debug().Msg("debug line")
			assert.Equal(t, tt.debugOK, strings.Contains(buf.String(), "debug line"))
		})
	}
}

func TestLoad_TrustedProxyCIDRs(t *testing.T) {
	t.Setenv("TRUSTED_PROXY_CIDRS", " 10.0.0.0/8, ,192.168.1.0/24 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.0/24"}, cfg.RateLimit.TrustedProxyCIDRs)
}
