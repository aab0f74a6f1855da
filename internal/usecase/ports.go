package usecase

import (
	"context"
	"time"

	"github.com/nerevar/corpsync/internal/domain"
)

// RuleRepository persists corporation-to-role rules.
type RuleRepository interface {
	Save(ctx context.Context, rule domain.Rule) error
	Find(ctx context.Context, serverID, roleID string) (*domain.Rule, error)
	ListByServer(ctx context.Context, serverID string) ([]domain.Rule, error)
	List(ctx context.Context) ([]domain.Rule, error)
	Delete(ctx context.Context, serverID, roleID string) error
}

// RegistrationRepository persists user registrations with their characters.
type RegistrationRepository interface {
	Create(ctx context.Context, registration *domain.Registration) error
	Find(ctx context.Context, serverID, userID string) (*domain.Registration, error)
	ListByServer(ctx context.Context, serverID string) ([]domain.Registration, error)
	Delete(ctx context.Context, serverID, userID string) error
}

// CharacterRepository persists registered characters and their cached
// affiliation.
type CharacterRepository interface {
	Upsert(ctx context.Context, character domain.Character) error
	Find(ctx context.Context, serverID string, characterID int64) (*domain.Character, error)
	ListByServer(ctx context.Context, serverID string) ([]domain.Character, error)
	UpdateAffiliation(ctx context.Context, serverID string, characterID int64, corporationID int64, allianceID *int64, refreshedAt time.Time) error
	Delete(ctx context.Context, serverID string, characterID int64) error
}

// IdentityClient is the external identity source boundary.
type IdentityClient interface {
	Character(ctx context.Context, id int64) (*domain.AffiliationRecord, error)
	Corporation(ctx context.Context, id int64) (*domain.CorporationRecord, error)
	Characters(ctx context.Context, ids []int64) map[int64]domain.AffiliationRecord
}

// AttemptStore is the handshake-record boundary.
type AttemptStore interface {
	Begin(ctx context.Context, serverID, userID, userName, locale string) (*domain.AuthAttempt, error)
	Consume(ctx context.Context, state string) (*domain.AuthAttempt, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// HandshakeService is the OAuth boundary used during registration.
type HandshakeService interface {
	AuthorizationURL(attempt domain.AuthAttempt) string
	ExchangeCode(ctx context.Context, code string, codeVerifier string) (*domain.AccessToken, error)
}

// IdentityValidator extracts a character identity from an access token.
type IdentityValidator interface {
	Identity(ctx context.Context, accessToken string) (*domain.TokenIdentity, error)
}

// MembershipDirectory is the chat platform's live role-membership view.
// GrantRole and RevokeRole return domain.PermissionDeniedError when the
// platform forbids the operation; granting an already-held role is a no-op.
type MembershipDirectory interface {
	RoleExists(ctx context.Context, serverID, roleID string) (bool, error)
	GetMember(ctx context.Context, serverID, userID string) (*domain.Member, error)
	ListMembers(ctx context.Context, serverID string) ([]domain.Member, error)
	GrantRole(ctx context.Context, serverID, userID, roleID string) error
	RevokeRole(ctx context.Context, serverID, userID, roleID string) error
}

// Notifier delivers fire-and-forget channel messages. Failures are logged by
// implementations, never propagated.
type Notifier interface {
	Send(ctx context.Context, channelID string, text string)
}
