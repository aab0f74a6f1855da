package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/nerevar/corpsync/internal/domain"
)

const jwtAudience = "EVE Online"

var jwtIssuers = []string{"login.eveonline.com", "https://login.eveonline.com"}

const characterSubjectPrefix = "CHARACTER:EVE:"

// Validator verifies SSO access tokens against the signing keys published at
// the well-known discovery endpoint and extracts the character identity.
type Validator struct {
	discoveryURL string
	client       *http.Client

	mu   sync.Mutex
	keys keyfunc.Keyfunc
}

func NewValidator(discoveryURL string, client *http.Client) *Validator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Validator{
		discoveryURL: discoveryURL,
		client:       client,
	}
}

type ssoClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// Identity validates the token's signature, issuer and audience, then
// extracts the character id and name from the subject. An expired signature
// is reported as TokenExpiredError; any other validation failure as
// TokenInvalidError. Failure to reach the discovery or JWKS endpoint aborts
// this operation only.
func (v *Validator) Identity(ctx context.Context, accessToken string) (*domain.TokenIdentity, error) {
	ctx, span := tracer.Start(ctx, "OAuth.Validator.Identity")
	defer span.End()

	keys, err := v.keyfunc(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	claims := &ssoClaims{}
	_, err = jwt.ParseWithClaims(accessToken, claims, keys.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(jwtAudience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.TokenExpiredError{}
		}
		span.RecordError(err)
		return nil, domain.TokenInvalidError{Reason: err.Error()}
	}

	if !issuerAllowed(claims.Issuer) {
		return nil, domain.TokenInvalidError{Reason: "issuer mismatch: " + claims.Issuer}
	}

	id, err := characterIDFromSubject(claims.Subject)
	if err != nil {
		return nil, domain.TokenInvalidError{Reason: err.Error()}
	}
	return &domain.TokenIdentity{
		CharacterID:   id,
		CharacterName: claims.Name,
	}, nil
}

func issuerAllowed(issuer string) bool {
	for _, allowed := range jwtIssuers {
		if issuer == allowed {
			return true
		}
	}
	return false
}

func characterIDFromSubject(subject string) (int64, error) {
	raw, ok := strings.CutPrefix(subject, characterSubjectPrefix)
	if !ok {
		return 0, errors.Errorf("unexpected subject format: %s", subject)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("unexpected subject format: %s", subject)
	}
	return id, nil
}

// keyfunc resolves the JWKS location from the discovery document once and
// caches the refreshing key set.
func (v *Validator) keyfunc(ctx context.Context) (keyfunc.Keyfunc, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keys != nil {
		return v.keys, nil
	}

	jwksURI, err := v.fetchJWKSURI(ctx)
	if err != nil {
		return nil, err
	}

	// Background context: the key set refreshes itself past this request.
	keys, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURI})
	if err != nil {
		return nil, errors.Wrap(err, "oauth: load jwks")
	}
	v.keys = keys
	return keys, nil
}

func (v *Validator) fetchJWKSURI(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.discoveryURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "oauth: build discovery request")
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "oauth: fetch discovery document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("oauth: discovery endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "oauth: read discovery document")
	}
	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", errors.Wrap(err, "oauth: parse discovery document")
	}
	if doc.JWKSURI == "" {
		return "", errors.New("oauth: discovery document has no jwks_uri")
	}
	return doc.JWKSURI, nil
}
