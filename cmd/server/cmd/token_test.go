package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/shell/internal/auth"
	"github.com/studyhall/shell/internal/testauth"
)

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return lines[len(lines)-1]
}

func TestTokenCommand(t *testing.T) {
	const secret = "a-test-secret-that-is-long-enough!!"

	tests := []struct {
		name      string
		args      []string
		envSecret string
		verifyKey string
		subject   string
		isAdmin   bool
		warned    bool
	}{
		{name: "explicit secret admin", args: []string{"--subject", "instructor", "--admin", "--secret", secret}, verifyKey: secret, subject: "instructor", isAdmin: true},
		{name: "env secret default subject", envSecret: secret, verifyKey: secret, subject: "student"},
		{name: "development secret", verifyKey: testauth.DevSecret, subject: "student", warned: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.envSecret)

			output, err := execute(t, append([]string{"token"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.warned, strings.Contains(output, "development secret"))

			claims, err := auth.NewJWTManager(tt.verifyKey, time.Hour, tokenIssuer).Validate(lastLine(output))
			require.NoError(t, err)
			assert.Equal(t, tt.subject, claims.Subject)
			assert.Equal(t, tt.isAdmin, claims.IsAdmin)
			assert.Equal(t, tokenIssuer, claims.Issuer)
		})
	}
}

func TestTokenCommandExpiry(t *testing.T) {
	t.Setenv("JWT_SECRET", testauth.DevSecret)
	t.Setenv("DEV_JWT_SECRET", "")

	output, err := execute(t, "token", "--expiry", "90m")
	require.NoError(t, err)
	claims, err := auth.NewJWTManager(testauth.DevSecret, time.Hour, tokenIssuer).Validate(lastLine(output))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(90*time.Minute), claims.ExpiresAt.Time, time.Minute)

	_, err = execute(t, "token", "--expiry", "0s")
	require.Error(t, err)

	_, err = execute(t, "token", "--subject", "")
	require.Error(t, err)
}
