package auth

import (
	"encoding/base64"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecodeUnverified(t *testing.T) {
	header := segment(`{"alg":"HS256","typ":"JWT"}`)

	tests := []struct {
		name      string
		token     string
		wantAdmin bool
		wantSub   string
		wantErr   bool
	}{
		{
			name:      "admin claim",
			token:     header + "." + segment(`{"sub":"kim","is_admin":true}`) + ".sig",
			wantAdmin: true,
			wantSub:   "kim",
		},
		{
			name:    "user claim",
			token:   header + "." + segment(`{"sub":"lee","is_admin":false}`) + ".sig",
			wantSub: "lee",
		},
		{
			name:    "missing claim is not admin",
			token:   header + "." + segment(`{"sub":"park"}`) + ".sig",
			wantSub: "park",
		},
		{
			name:  "string true is not admin",
			token: header + "." + segment(`{"is_admin":"true"}`) + ".sig",
		},
		{
			name:      "signature is ignored",
			token:     "garbage." + segment(`{"is_admin":true}`) + ".",
			wantAdmin: true,
		},
		{
			name:    "single opaque string",
			token:   "opaque-token-value",
			wantErr: true,
		},
		{
			name:    "two segments",
			token:   header + "." + segment(`{"is_admin":true}`),
			wantErr: true,
		},
		{
			name:    "four segments",
			token:   "a.b.c.d",
			wantErr: true,
		},
		{
			name:    "invalid base64",
			token:   header + ".@@@@.sig",
			wantErr: true,
		},
		{
			name:    "payload not json",
			token:   header + "." + segment("not json") + ".sig",
			wantErr: true,
		},
		{
			name:    "payload null",
			token:   header + "." + segment("null") + ".sig",
			wantErr: true,
		},
		{
			name:    "payload array",
			token:   header + "." + segment("[1,2]") + ".sig",
			wantErr: true,
		},
		{
			name:    "payload number",
			token:   header + "." + segment("123") + ".sig",
			wantErr: true,
		},
		{
			name:    "payload string",
			token:   header + "." + segment(`"x"`) + ".sig",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := UnverifiedDecoder{}.Decode(tt.token)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdmin, claims.IsAdmin)
			assert.Equal(t, tt.wantSub, claims.Subject)
		})
	}
}

func TestDecodeUnverifiedAcceptsSignedTokens(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, "issuer")
	token, err := manager.Generate("user-7", true)
	require.NoError(t, err)

	claims, err := DecodeUnverified(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "user-7", claims.Subject)
}

func TestDecodeSegmentRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 64; n++ {
		payload := make([]byte, n)
		rng.Read(payload)

		encodings := map[string]string{
			"raw url":    base64.RawURLEncoding.EncodeToString(payload),
			"padded url": base64.URLEncoding.EncodeToString(payload),
			"raw std":    base64.RawStdEncoding.EncodeToString(payload),
			"padded std": base64.StdEncoding.EncodeToString(payload),
		}
		for name, encoded := range encodings {
			got, err := DecodeSegment(encoded)
			require.NoError(t, err, "%s len=%d", name, n)
			assert.Equal(t, payload, got, "%s len=%d", name, n)
		}
	}
}

func TestDecodeSegmentSubstitutedAlphabet(t *testing.T) {
	// 0xfb 0xff encodes to "+/8" in the standard alphabet and "-_8" in the URL one.
	payload := []byte{0xfb, 0xff}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	require.True(t, strings.ContainsAny(encoded, "-_"))

	got, err := DecodeSegment(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeSegmentRejectsImpossibleLength(t *testing.T) {
	_, err := DecodeSegment("abcde")
	require.ErrorIs(t, err, ErrMalformedToken)
}
