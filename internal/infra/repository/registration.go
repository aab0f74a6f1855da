package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nerevar/corpsync/internal/domain"
	"github.com/nerevar/corpsync/internal/infra/database/models"
)

type RegistrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create persists a new registration and assigns it an id.
func (r *RegistrationRepository) Create(ctx context.Context, registration *domain.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	model := models.Registration{
		ID:       registration.ID,
		ServerID: registration.ServerID,
		UserID:   registration.UserID,
		UserName: registration.UserName,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.AlreadyExistsError{Resource: "registration"}
		}
		return err
	}
	return nil
}

func (r *RegistrationRepository) Find(ctx context.Context, serverID, userID string) (*domain.Registration, error) {
	var model models.Registration
	err := r.db.WithContext(ctx).
		Preload("Characters").
		Where("server_id = ? AND user_id = ?", serverID, userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Resource: "registration"}
		}
		return nil, err
	}
	registration := registrationToDomain(model)
	return &registration, nil
}

func (r *RegistrationRepository) ListByServer(ctx context.Context, serverID string) ([]domain.Registration, error) {
	var rows []models.Registration
	err := r.db.WithContext(ctx).
		Preload("Characters").
		Where("server_id = ?", serverID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	registrations := make([]domain.Registration, 0, len(rows))
	for _, row := range rows {
		registrations = append(registrations, registrationToDomain(row))
	}
	return registrations, nil
}

// Delete removes a registration; its characters go with it.
func (r *RegistrationRepository) Delete(ctx context.Context, serverID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.Registration
		err := tx.Where("server_id = ? AND user_id = ?", serverID, userID).First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "registration"}
			}
			return err
		}
		if err := tx.Where("registration_id = ?", model.ID).Delete(&models.Character{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model).Error
	})
}

func registrationToDomain(model models.Registration) domain.Registration {
	characters := make([]domain.Character, 0, len(model.Characters))
	for _, c := range model.Characters {
		characters = append(characters, characterToDomain(c))
	}
	return domain.Registration{
		ID:         model.ID,
		ServerID:   model.ServerID,
		UserID:     model.UserID,
		UserName:   model.UserName,
		Characters: characters,
	}
}
