package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nerevar/corpsync/internal/domain"
)

// Config is the static client configuration for the SSO.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	BaseURL      string
}

// Service performs the OAuth 2.0 calls against the SSO token endpoint.
// Authorization URL construction is pure; exchange and refresh go over the
// wire. The PKCE flow keeps the client secret out of the browser redirect.
type Service struct {
	config Config
	client *http.Client
}

func NewService(config Config, client *http.Client) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{
		config: config,
		client: client,
	}
}

// AuthorizationURL builds the browser URL for the given attempt. Depends
// only on the attempt's state/verifier and static configuration.
func (s *Service) AuthorizationURL(attempt domain.AuthAttempt) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("redirect_uri", s.config.RedirectURI)
	params.Set("client_id", s.config.ClientID)
	params.Set("scope", strings.Join(s.config.Scopes, " "))
	params.Set("code_challenge", CodeChallenge(attempt.CodeVerifier))
	params.Set("code_challenge_method", "S256")
	params.Set("state", attempt.State)
	return s.config.BaseURL + "/authorize/?" + params.Encode()
}

// ExchangeCode redeems an authorization code, sending the raw code verifier
// so the SSO can check possession. Called at most once per attempt.
func (s *Service) ExchangeCode(ctx context.Context, code string, codeVerifier string) (*domain.AccessToken, error) {
	ctx, span := tracer.Start(ctx, "OAuth.Service.ExchangeCode")
	defer span.End()

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", s.config.ClientID)
	form.Set("code_verifier", codeVerifier)

	token, err := s.token(ctx, form, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new access token. This call
// authenticates with the client secret, there is no browser in the loop.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.AccessToken, error) {
	ctx, span := tracer.Start(ctx, "OAuth.Service.Refresh")
	defer span.End()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	token, err := s.token(ctx, form, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return token, nil
}

// RefreshIfNeeded returns the token as-is while it has remaining lifetime
// and refreshes it once it has expired.
func (s *Service) RefreshIfNeeded(ctx context.Context, token *domain.AccessToken) (*domain.AccessToken, error) {
	switch TokenStatus(token) {
	case domain.TokenOK:
		return token, nil
	case domain.TokenExpired:
		return s.Refresh(ctx, token.RefreshToken)
	default:
		return nil, domain.NotFoundError{Resource: "access token"}
	}
}

// TokenStatus classifies a token by its expiry.
func TokenStatus(token *domain.AccessToken) domain.TokenState {
	if token == nil || token.AccessToken == "" {
		return domain.TokenAbsent
	}
	if time.Now().After(token.ExpiresAt) {
		return domain.TokenExpired
	}
	return domain.TokenOK
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	ErrorDescription string `json:"error_description"`
}

func (s *Service) token(ctx context.Context, form url.Values, basicAuth bool) (*domain.AccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "oauth: build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicAuth {
		credentials := s.config.ClientID + ":" + s.config.ClientSecret
		req.Header.Set("Authorization",
			"Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "oauth: token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "oauth: read token response")
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "oauth: parse token response")
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.ErrorDescription != "" {
			return nil, errors.Errorf("oauth: token endpoint: %s", parsed.ErrorDescription)
		}
		return nil, errors.Errorf("oauth: token endpoint returned status %d", resp.StatusCode)
	}

	return &domain.AccessToken{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}, nil
}
