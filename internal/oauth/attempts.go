package oauth

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/nerevar/corpsync/internal/domain"
)

var tracer = otel.Tracer("oauth")

// AttemptRepository is the persistence contract for in-flight handshake
// records. Consume must be read-then-delete in a single call so an attempt
// can never be redeemed twice.
type AttemptRepository interface {
	Save(ctx context.Context, attempt domain.AuthAttempt) error
	Consume(ctx context.Context, state string) (*domain.AuthAttempt, error)
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

// AttemptStore manages the TTL-bounded lifecycle of auth attempts.
type AttemptStore struct {
	repo   AttemptRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewAttemptStore(repo AttemptRepository, ttl time.Duration, logger *slog.Logger) *AttemptStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AttemptStore{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Begin creates and persists a new attempt with a fresh state and code
// verifier.
func (s *AttemptStore) Begin(ctx context.Context, serverID, userID, userName, locale string) (*domain.AuthAttempt, error) {
	ctx, span := tracer.Start(ctx, "OAuth.AttemptStore.Begin")
	defer span.End()

	state, err := GenerateState()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now().UTC()
	attempt := domain.AuthAttempt{
		State:        state,
		CodeVerifier: verifier,
		ServerID:     serverID,
		UserID:       userID,
		UserName:     userName,
		Locale:       locale,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.repo.Save(ctx, attempt); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &attempt, nil
}

// Consume redeems an attempt by state. Expired, already-consumed and
// never-existed states are indistinguishable: all return NotFound.
func (s *AttemptStore) Consume(ctx context.Context, state string) (*domain.AuthAttempt, error) {
	ctx, span := tracer.Start(ctx, "OAuth.AttemptStore.Consume")
	defer span.End()

	attempt, err := s.repo.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if attempt.Expired(s.now().UTC()) {
		return nil, domain.NotFoundError{Resource: "auth attempt"}
	}
	return attempt, nil
}

// SweepExpired deletes every attempt past its expiry and returns the count.
// Idempotent; a sweep racing a consume only ever removes expired rows.
func (s *AttemptStore) SweepExpired(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "OAuth.AttemptStore.SweepExpired")
	defer span.End()

	count, err := s.repo.DeleteExpiredBefore(ctx, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if count > 0 {
		s.logger.Info("swept expired auth attempts", slog.Int64("deleted", count))
	}
	return count, nil
}
