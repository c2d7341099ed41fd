// Package testauth builds access tokens for tests and local development.
// This package should NEVER be used in production code.
//
// Security: signed tokens use a well-known development secret; unsigned
// tokens carry a fixed fake signature and are only accepted by the
// unverified decoder.
package testauth

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"time"

	"github.com/studyhall/shell/internal/auth"
)

// DevSecret is the well-known development signing secret.
const DevSecret = "dev_jwt_secret_change_me_in_production"

const devIssuer = "studyhall-dev"

// UnsignedToken encodes claims into a three-segment token whose signature
// is not valid. The navigation guard decodes it only in unverified mode.
func UnsignedToken(claims map[string]any) string {
	header := `{"alg":"HS256","typ":"JWT"}`
	payload, err := json.Marshal(claims)
	if err != nil {
		panic(err)
	}
	return encode([]byte(header)) + "." + encode(payload) + ".dGVzdC1zaWduYXR1cmU"
}

// AdminToken returns an unsigned token with is_admin=true.
func AdminToken() string {
	return UnsignedToken(map[string]any{"sub": "admin", "is_admin": true})
}

// UserToken returns an unsigned token with is_admin=false.
func UserToken() string {
	return UnsignedToken(map[string]any{"sub": "student", "is_admin": false})
}

// DevManager returns a JWT manager using DEV_JWT_SECRET or DevSecret.
func DevManager() *auth.JWTManager {
	secret := os.Getenv("DEV_JWT_SECRET")
	if secret == "" {
		secret = DevSecret
	}
	return auth.NewJWTManager(secret, 24*time.Hour, devIssuer)
}

// DevJWTToken generates a signed token using dev secrets for ad-hoc testing.
func DevJWTToken(subject string, isAdmin bool) (string, error) {
	if subject == "" {
		subject = "test-user"
	}
	return DevManager().Generate(subject, isAdmin)
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
