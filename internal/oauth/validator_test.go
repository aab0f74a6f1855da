package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerevar/corpsync/internal/domain"
)

type ssoFixture struct {
	key       *rsa.PrivateKey
	validator *Validator
	close     func()
}

func newSSOFixture(t *testing.T) *ssoFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)

	mux.HandleFunc("/oauth/jwks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"kid": "test-key",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jwks_uri": srv.URL + "/oauth/jwks",
		})
	})

	return &ssoFixture{
		key:       key,
		validator: NewValidator(srv.URL+"/.well-known/oauth-authorization-server", srv.Client()),
		close:     srv.Close,
	}
}

func (f *ssoFixture) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(f.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestValidatorIdentity(t *testing.T) {
	f := newSSOFixture(t)
	defer f.close()

	signed := f.sign(t, ssoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "login.eveonline.com",
			Subject:   "CHARACTER:EVE:95465499",
			Audience:  jwt.ClaimStrings{"EVE Online"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "CCP Bartender",
	})

	identity, err := f.validator.Identity(context.Background(), signed)
	if err != nil {
		t.Fatalf("identity failed: %v", err)
	}
	if identity.CharacterID != 95465499 {
		t.Fatalf("unexpected character id %d", identity.CharacterID)
	}
	if identity.CharacterName != "CCP Bartender" {
		t.Fatalf("unexpected character name %s", identity.CharacterName)
	}
}

func TestValidatorExpiredToken(t *testing.T) {
	f := newSSOFixture(t)
	defer f.close()

	signed := f.sign(t, ssoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "login.eveonline.com",
			Subject:   "CHARACTER:EVE:95465499",
			Audience:  jwt.ClaimStrings{"EVE Online"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := f.validator.Identity(context.Background(), signed)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected token expired, got %v", err)
	}
}

func TestValidatorAudienceMismatch(t *testing.T) {
	f := newSSOFixture(t)
	defer f.close()

	signed := f.sign(t, ssoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "login.eveonline.com",
			Subject:   "CHARACTER:EVE:95465499",
			Audience:  jwt.ClaimStrings{"Someone Else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := f.validator.Identity(context.Background(), signed)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}
}

func TestValidatorIssuerMismatch(t *testing.T) {
	f := newSSOFixture(t)
	defer f.close()

	signed := f.sign(t, ssoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "login.evil.example",
			Subject:   "CHARACTER:EVE:95465499",
			Audience:  jwt.ClaimStrings{"EVE Online"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := f.validator.Identity(context.Background(), signed)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}
}

func TestValidatorBadSubject(t *testing.T) {
	f := newSSOFixture(t)
	defer f.close()

	signed := f.sign(t, ssoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "login.eveonline.com",
			Subject:   "USER:EVE:95465499",
			Audience:  jwt.ClaimStrings{"EVE Online"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := f.validator.Identity(context.Background(), signed)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}
}
