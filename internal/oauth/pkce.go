// Package oauth implements the PKCE handshake with the EVE Online SSO:
// attempt lifecycle, authorization URL construction, code exchange, token
// refresh and access-token validation.
package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

const codeVerifierBytes = 64

// GenerateCodeVerifier returns a high-entropy code verifier restricted to
// the URL-safe alphanumeric alphabet.
func GenerateCodeVerifier() (string, error) {
	raw := make([]byte, codeVerifierBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "oauth: generate code verifier")
	}
	encoded := base64.URLEncoding.EncodeToString(raw)
	var b strings.Builder
	for _, r := range encoded {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// CodeChallenge derives the S256 code challenge: the base64url digest of the
// verifier, without padding.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns an unguessable correlation key for the callback.
// 32 random bytes keep well past the 128-bit entropy floor.
func GenerateState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "oauth: generate state")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
