package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/nerevar/corpsync/internal/domain"
)

// RulesUsecase manages the corporation-to-role rules. Corporation ids are
// validated against the external identity source before a rule is stored.
type RulesUsecase struct {
	rules    RuleRepository
	identity IdentityClient
	logger   *slog.Logger
}

func NewRulesUsecase(rules RuleRepository, identity IdentityClient, logger *slog.Logger) *RulesUsecase {
	return &RulesUsecase{
		rules:    rules,
		identity: identity,
		logger:   logger,
	}
}

// AddRule creates or updates the rule for (server, role). The corporation
// must exist externally; its name and ticker are captured for display.
func (uc *RulesUsecase) AddRule(ctx context.Context, serverID, roleID string, corporationID int64, channelID, localeTag string) (*domain.Rule, error) {
	ctx, span := tracer.Start(ctx, "Rules.Usecase.AddRule")
	defer span.End()

	corporation, err := uc.identity.Corporation(ctx, corporationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError{Resource: "corporation"}
		}
		span.RecordError(err)
		return nil, err
	}

	rule := domain.Rule{
		ServerID:          serverID,
		RoleID:            roleID,
		CorporationID:     corporationID,
		CorporationName:   corporation.Name,
		CorporationTicker: corporation.Ticker,
		ChannelID:         channelID,
		Locale:            localeTag,
	}
	if existing, err := uc.rules.Find(ctx, serverID, roleID); err == nil {
		rule.ID = existing.ID
	}
	if err := uc.rules.Save(ctx, rule); err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("rule saved",
		slog.String("server_id", serverID),
		slog.String("role_id", roleID),
		slog.Int64("corporation_id", corporationID),
		slog.String("corporation", corporation.Name),
	)
	return &rule, nil
}

// RemoveRule deletes the rule for (server, role).
func (uc *RulesUsecase) RemoveRule(ctx context.Context, serverID, roleID string) error {
	ctx, span := tracer.Start(ctx, "Rules.Usecase.RemoveRule")
	defer span.End()

	err := uc.rules.Delete(ctx, serverID, roleID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
	}
	return err
}

// ListRules returns the server's rules.
func (uc *RulesUsecase) ListRules(ctx context.Context, serverID string) ([]domain.Rule, error) {
	ctx, span := tracer.Start(ctx, "Rules.Usecase.ListRules")
	defer span.End()

	rules, err := uc.rules.ListByServer(ctx, serverID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return rules, nil
}
