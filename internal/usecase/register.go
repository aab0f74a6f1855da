package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/nerevar/corpsync/internal/domain"
	"github.com/nerevar/corpsync/internal/locale"
)

var tracer = otel.Tracer("usecase")

// RegisterUsecase drives the character-linking flows: the PKCE handshake
// started from chat, the browser callback that completes it, and the
// admin-driven direct registration.
type RegisterUsecase struct {
	attempts      AttemptStore
	handshake     HandshakeService
	validator     IdentityValidator
	identity      IdentityClient
	rules         RuleRepository
	registrations RegistrationRepository
	characters    CharacterRepository
	directory     MembershipDirectory
	logger        *slog.Logger
}

func NewRegisterUsecase(
	attempts AttemptStore,
	handshake HandshakeService,
	validator IdentityValidator,
	identity IdentityClient,
	rules RuleRepository,
	registrations RegistrationRepository,
	characters CharacterRepository,
	directory MembershipDirectory,
	logger *slog.Logger,
) *RegisterUsecase {
	return &RegisterUsecase{
		attempts:      attempts,
		handshake:     handshake,
		validator:     validator,
		identity:      identity,
		rules:         rules,
		registrations: registrations,
		characters:    characters,
		directory:     directory,
		logger:        logger,
	}
}

// Begin starts a handshake for the user and returns the authorization URL
// to present. The server must have at least one rule configured.
func (uc *RegisterUsecase) Begin(ctx context.Context, serverID, userID, userName, localeTag string) (string, error) {
	ctx, span := tracer.Start(ctx, "Register.Usecase.Begin")
	defer span.End()

	rules, err := uc.rules.ListByServer(ctx, serverID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if len(rules) == 0 {
		return "", domain.NotFoundError{Resource: "rules"}
	}

	attempt, err := uc.attempts.Begin(ctx, serverID, userID, userName, localeTag)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return uc.handshake.AuthorizationURL(*attempt), nil
}

// CallbackResult is what the callback page renders.
type CallbackResult struct {
	CharacterName string
	Message       string
}

// CompleteCallback runs the callback sequence: consume the attempt, exchange
// the code, validate the token, then upsert registration and character with
// the holder's current affiliation.
func (uc *RegisterUsecase) CompleteCallback(ctx context.Context, code string, state string) (*CallbackResult, error) {
	ctx, span := tracer.Start(ctx, "Register.Usecase.CompleteCallback")
	defer span.End()

	attempt, err := uc.attempts.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	messages := locale.For(attempt.Locale)

	token, err := uc.handshake.ExchangeCode(ctx, code, attempt.CodeVerifier)
	if err != nil {
		span.RecordError(errors.Wrap(err, "code exchange failed"))
		return nil, err
	}

	who, err := uc.validator.Identity(ctx, token.AccessToken)
	if err != nil {
		span.RecordError(errors.Wrap(err, "identity extraction failed"))
		return nil, err
	}

	registration, err := uc.ensureRegistration(ctx, attempt.ServerID, attempt.UserID, attempt.UserName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, c := range registration.Characters {
		if c.CharacterID == who.CharacterID {
			return nil, domain.AlreadyExistsError{Resource: "character"}
		}
	}

	affiliation, err := uc.identity.Character(ctx, who.CharacterID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	err = uc.characters.Upsert(ctx, domain.Character{
		CharacterID:    who.CharacterID,
		CharacterName:  who.CharacterName,
		ServerID:       attempt.ServerID,
		RegistrationID: registration.ID,
		CorporationID:  affiliation.CorporationID,
		AllianceID:     affiliation.AllianceID,
		RefreshedAt:    time.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("character registered",
		slog.String("server_id", attempt.ServerID),
		slog.String("user_id", attempt.UserID),
		slog.Int64("character_id", who.CharacterID),
	)
	return &CallbackResult{
		CharacterName: who.CharacterName,
		Message:       messages.Registered,
	}, nil
}

// RegisterMember links a character to a member directly, without the
// browser handshake. Admin flow: the character must exist on the external
// source and belong to one of the server's rule corporations; the matching
// role is granted immediately.
func (uc *RegisterUsecase) RegisterMember(ctx context.Context, serverID, userID, userName string, characterID int64, localeTag string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Register.Usecase.RegisterMember")
	defer span.End()

	messages := locale.For(localeTag)

	rules, err := uc.rules.ListByServer(ctx, serverID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(rules) == 0 {
		return nil, domain.NotFoundError{Resource: "rules"}
	}

	affiliation, err := uc.identity.Character(ctx, characterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError{Resource: "character"}
		}
		span.RecordError(err)
		return nil, err
	}

	var matched *domain.Rule
	for i := range rules {
		if rules[i].CorporationID == affiliation.CorporationID {
			matched = &rules[i]
			break
		}
	}
	if matched == nil {
		return nil, errors.New(messages.CharacterNotInCorp)
	}

	registration, err := uc.ensureRegistration(ctx, serverID, userID, userName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, c := range registration.Characters {
		if c.CharacterID == characterID {
			return nil, domain.AlreadyExistsError{Resource: "character"}
		}
	}

	err = uc.characters.Upsert(ctx, domain.Character{
		CharacterID:    characterID,
		CharacterName:  affiliation.Name,
		ServerID:       serverID,
		RegistrationID: registration.ID,
		CorporationID:  affiliation.CorporationID,
		AllianceID:     affiliation.AllianceID,
		RefreshedAt:    time.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	results := []string{fmt.Sprintf(messages.CharacterLinked, affiliation.Name, userName)}

	member, err := uc.directory.GetMember(ctx, serverID, userID)
	if err != nil {
		span.RecordError(err)
		return results, nil
	}
	if member.HasRole(matched.RoleID) {
		results = append(results, messages.RoleAlreadyGranted)
		return results, nil
	}
	if err := uc.directory.GrantRole(ctx, serverID, userID, matched.RoleID); err != nil {
		uc.logger.Error("failed to grant role after registration",
			slog.String("server_id", serverID),
			slog.String("user_id", userID),
			slog.String("role_id", matched.RoleID),
			slog.String("error", err.Error()),
		)
		return results, nil
	}
	results = append(results, fmt.Sprintf(messages.RoleGranted, userName))
	return results, nil
}

// Unregister removes the user's registration and every linked character.
func (uc *RegisterUsecase) Unregister(ctx context.Context, serverID, userID string) error {
	ctx, span := tracer.Start(ctx, "Register.Usecase.Unregister")
	defer span.End()

	err := uc.registrations.Delete(ctx, serverID, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
	}
	return err
}

func (uc *RegisterUsecase) ensureRegistration(ctx context.Context, serverID, userID, userName string) (*domain.Registration, error) {
	registration, err := uc.registrations.Find(ctx, serverID, userID)
	if err == nil {
		return registration, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	registration = &domain.Registration{
		ServerID: serverID,
		UserID:   userID,
		UserName: userName,
	}
	if err := uc.registrations.Create(ctx, registration); err != nil {
		return nil, err
	}
	return registration, nil
}
