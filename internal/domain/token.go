package domain

import "time"

// AccessToken bundles the SSO token pair with its computed expiry.
type AccessToken struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// TokenState classifies an access token at a point in time.
type TokenState int

const (
	// TokenAbsent means there is no token to inspect.
	TokenAbsent TokenState = iota
	// TokenOK means the token has remaining lifetime.
	TokenOK
	// TokenExpired means the token is past its expiry and needs a refresh.
	TokenExpired
)

func (s TokenState) String() string {
	switch s {
	case TokenOK:
		return "ok"
	case TokenExpired:
		return "expired"
	default:
		return "absent"
	}
}

// TokenIdentity is the character identity extracted from a validated access
// token.
type TokenIdentity struct {
	CharacterID   int64  `json:"characterId"`
	CharacterName string `json:"characterName"`
}
