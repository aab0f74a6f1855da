package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/nerevar/corpsync/internal/domain"
	"github.com/nerevar/corpsync/internal/locale"
)

// ServerStats are the per-server counters of one reconciliation run.
type ServerStats struct {
	Grants  int
	Revokes int
	Failed  int
}

// RunStats summarizes one reconciliation run.
type RunStats struct {
	Servers             map[string]*ServerStats
	RefreshedCharacters int
}

// Reconciler keeps role membership synchronized with current corporation
// affiliation. The loop is level-triggered: every run recomputes desired and
// observed state from scratch, so missed events heal on the next run.
type Reconciler struct {
	rules         RuleRepository
	registrations RegistrationRepository
	characters    CharacterRepository
	identity      IdentityClient
	directory     MembershipDirectory
	notifier      Notifier
	logger        *slog.Logger
	now           func() time.Time
}

func NewReconciler(
	rules RuleRepository,
	registrations RegistrationRepository,
	characters CharacterRepository,
	identity IdentityClient,
	directory MembershipDirectory,
	notifier Notifier,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		rules:         rules,
		registrations: registrations,
		characters:    characters,
		identity:      identity,
		directory:     directory,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
	}
}

// Run executes one reconciliation pass: refresh cached affiliations for
// every character under a server with at least one live rule, then walk
// (rule, registration) pairs and emit the minimal grant/revoke set. Failures
// are contained per item; a run never aborts because one member or rule
// misbehaved.
func (r *Reconciler) Run(ctx context.Context) (*RunStats, error) {
	ctx, span := tracer.Start(ctx, "Reconciler.Run")
	defer span.End()

	start := r.now()

	all, err := r.rules.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	byServer := make(map[string][]domain.Rule)
	for _, rule := range all {
		byServer[rule.ServerID] = append(byServer[rule.ServerID], rule)
	}

	// Rules whose role no longer exists contribute nothing this run.
	liveRules := make(map[string][]domain.Rule, len(byServer))
	for serverID, rules := range byServer {
		for _, rule := range rules {
			exists, err := r.directory.RoleExists(ctx, serverID, rule.RoleID)
			if err != nil {
				r.logger.Warn("role lookup failed, skipping rule",
					slog.String("server_id", serverID),
					slog.String("role_id", rule.RoleID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if !exists {
				r.logger.Info("rule references deleted role, skipping",
					slog.String("server_id", serverID),
					slog.String("role_id", rule.RoleID),
				)
				continue
			}
			liveRules[serverID] = append(liveRules[serverID], rule)
		}
	}

	stats := &RunStats{Servers: make(map[string]*ServerStats)}

	// Affiliation refresh completes before any grant/revoke decision, so
	// decisions never see data older than this run.
	stats.RefreshedCharacters = r.refreshAffiliations(ctx, liveRules)

	for serverID, rules := range liveRules {
		serverStats := &ServerStats{}
		stats.Servers[serverID] = serverStats
		r.reconcileServer(ctx, serverID, rules, serverStats)
		r.logger.Info("server reconciled",
			slog.String("server_id", serverID),
			slog.Int("grants", serverStats.Grants),
			slog.Int("revokes", serverStats.Revokes),
			slog.Int("failed", serverStats.Failed),
		)
	}

	r.logger.Info("reconciliation run complete",
		slog.Int("servers", len(liveRules)),
		slog.Int("refreshed_characters", stats.RefreshedCharacters),
		slog.Duration("elapsed", r.now().Sub(start)),
	)
	return stats, nil
}

// refreshAffiliations batch-fetches current affiliation for every character
// under a server with at least one live rule and updates the cached values.
// An id that errored keeps its previous affiliation until the next run.
func (r *Reconciler) refreshAffiliations(ctx context.Context, liveRules map[string][]domain.Rule) int {
	type ref struct {
		serverID    string
		characterID int64
	}
	var refs []ref
	idSet := make(map[int64]struct{})

	for serverID := range liveRules {
		characters, err := r.characters.ListByServer(ctx, serverID)
		if err != nil {
			r.logger.Error("character listing failed",
				slog.String("server_id", serverID),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, c := range characters {
			refs = append(refs, ref{serverID: serverID, characterID: c.CharacterID})
			idSet[c.CharacterID] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return 0
	}

	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	records := r.identity.Characters(ctx, ids)

	refreshedAt := r.now().UTC()
	updated := 0
	for _, ref := range refs {
		record, ok := records[ref.characterID]
		if !ok {
			continue
		}
		err := r.characters.UpdateAffiliation(ctx,
			ref.serverID, ref.characterID,
			record.CorporationID, record.AllianceID, refreshedAt)
		if err != nil {
			r.logger.Error("affiliation update failed",
				slog.String("server_id", ref.serverID),
				slog.Int64("character_id", ref.characterID),
				slog.String("error", err.Error()),
			)
			continue
		}
		updated++
	}
	return updated
}

// reconcileServer evaluates every (rule, registration) pair of one server.
// Each rule is independent: a revoke decision for one rule never touches
// another rule's role. Operations for the same member run sequentially
// inside this walk, so a membership is never toggled concurrently.
func (r *Reconciler) reconcileServer(ctx context.Context, serverID string, rules []domain.Rule, stats *ServerStats) {
	registrations, err := r.registrations.ListByServer(ctx, serverID)
	if err != nil {
		r.logger.Error("registration listing failed",
			slog.String("server_id", serverID),
			slog.String("error", err.Error()),
		)
		return
	}

	members := make(map[string]*domain.Member, len(registrations))
	for _, registration := range registrations {
		member, err := r.directory.GetMember(ctx, serverID, registration.UserID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				r.logger.Warn("member lookup failed",
					slog.String("server_id", serverID),
					slog.String("user_id", registration.UserID),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		members[registration.UserID] = member
	}

	for _, rule := range rules {
		messages := locale.For(rule.Locale)
		for _, registration := range registrations {
			member, ok := members[registration.UserID]
			if !ok {
				continue
			}

			desired := false
			for _, c := range registration.Characters {
				if c.CorporationID == rule.CorporationID {
					desired = true
					break
				}
			}
			observed := member.HasRole(rule.RoleID)

			switch {
			case desired && !observed:
				r.apply(ctx, rule, member, stats, true, messages)
			case !desired && observed:
				r.apply(ctx, rule, member, stats, false, messages)
			}
		}
	}
}

// apply performs one grant or revoke. Failures are counted and logged, never
// retried within the run: the next run picks them up again.
func (r *Reconciler) apply(ctx context.Context, rule domain.Rule, member *domain.Member, stats *ServerStats, grant bool, messages locale.Messages) {
	var err error
	if grant {
		err = r.directory.GrantRole(ctx, rule.ServerID, member.UserID, rule.RoleID)
	} else {
		err = r.directory.RevokeRole(ctx, rule.ServerID, member.UserID, rule.RoleID)
	}
	if err != nil {
		stats.Failed++
		r.logger.Error("role operation failed",
			slog.Bool("grant", grant),
			slog.String("server_id", rule.ServerID),
			slog.String("user_id", member.UserID),
			slog.String("role_id", rule.RoleID),
			slog.String("error", err.Error()),
		)
		return
	}

	var text string
	if grant {
		stats.Grants++
		member.Roles = append(member.Roles, rule.RoleID)
		text = fmt.Sprintf(messages.RoleGranted, member.UserName)
	} else {
		stats.Revokes++
		member.Roles = removeRole(member.Roles, rule.RoleID)
		text = fmt.Sprintf(messages.RoleRevoked, member.UserName)
	}
	r.logger.Info("role operation applied",
		slog.Bool("grant", grant),
		slog.String("server_id", rule.ServerID),
		slog.String("user_id", member.UserID),
		slog.String("role_id", rule.RoleID),
	)
	if rule.ChannelID != "" {
		r.notifier.Send(ctx, rule.ChannelID, text)
	}
}

func removeRole(roles []string, roleID string) []string {
	out := roles[:0]
	for _, r := range roles {
		if r != roleID {
			out = append(out, r)
		}
	}
	return out
}
