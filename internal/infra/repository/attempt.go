package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nerevar/corpsync/internal/domain"
	"github.com/nerevar/corpsync/internal/infra/database/models"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Save(ctx context.Context, attempt domain.AuthAttempt) error {
	model := models.AuthAttempt{
		State:        attempt.State,
		CodeVerifier: attempt.CodeVerifier,
		ServerID:     attempt.ServerID,
		UserID:       attempt.UserID,
		UserName:     attempt.UserName,
		Locale:       attempt.Locale,
		CreatedAt:    attempt.CreatedAt,
		ExpiresAt:    attempt.ExpiresAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// Consume reads and deletes the attempt in one transaction, so a state can
// be redeemed at most once even under concurrent callbacks.
func (r *AttemptRepository) Consume(ctx context.Context, state string) (*domain.AuthAttempt, error) {
	var attempt *domain.AuthAttempt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.AuthAttempt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("state = ?", state).First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "auth attempt"}
			}
			return err
		}
		if err := tx.Delete(&model).Error; err != nil {
			return err
		}
		attempt = &domain.AuthAttempt{
			State:        model.State,
			CodeVerifier: model.CodeVerifier,
			ServerID:     model.ServerID,
			UserID:       model.UserID,
			UserName:     model.UserName,
			Locale:       model.Locale,
			CreatedAt:    model.CreatedAt,
			ExpiresAt:    model.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// DeleteExpiredBefore bulk-deletes attempts whose expiry has passed.
func (r *AttemptRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", t).
		Delete(&models.AuthAttempt{})
	return result.RowsAffected, result.Error
}
