package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken reports a credential that cannot be split, decoded or parsed.
var ErrMalformedToken = errors.New("malformed token")

// segmentParser only decodes; it never verifies anything.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Both base64 alphabets are accepted so that tokens produced with either
// encoder decode to the same bytes.
var toURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

// DecodeSegment decodes one base64url token segment, with or without padding.
func DecodeSegment(seg string) ([]byte, error) {
	out, err := segmentParser.DecodeSegment(toURLAlphabet.Replace(seg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return out, nil
}

// DecodeUnverified reads the payload claims of a three-segment bearer token
// without checking its signature, issuer or expiry. IsAdmin is true only
// when the is_admin claim is the JSON boolean true. A payload that is not a
// JSON object (null, numbers, strings, arrays) is malformed.
func DecodeUnverified(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	payload, err := DecodeSegment(parts[1])
	if err != nil {
		return nil, err
	}

	var raw jwt.MapClaims
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedToken, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedToken)
	}

	claims := &Claims{}
	claims.IsAdmin, _ = raw["is_admin"].(bool)
	claims.Subject, _ = raw.GetSubject()
	return claims, nil
}

// UnverifiedDecoder decodes claims client-side style, trusting the payload.
type UnverifiedDecoder struct{}

func (UnverifiedDecoder) Decode(token string) (*Claims, error) {
	return DecodeUnverified(token)
}
