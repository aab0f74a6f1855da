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

type CharacterRepository struct {
	db *gorm.DB
}

func NewCharacterRepository(db *gorm.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Upsert inserts or updates a character keyed by (server, character).
func (r *CharacterRepository) Upsert(ctx context.Context, character domain.Character) error {
	model := models.Character{
		CharacterID:    character.CharacterID,
		CharacterName:  character.CharacterName,
		ServerID:       character.ServerID,
		RegistrationID: character.RegistrationID,
		CorporationID:  character.CorporationID,
		AllianceID:     character.AllianceID,
		RefreshedAt:    character.RefreshedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "server_id"}, {Name: "character_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"character_name", "corporation_id", "alliance_id",
			"refreshed_at", "updated_at",
		}),
	}).Create(&model).Error
}

func (r *CharacterRepository) Find(ctx context.Context, serverID string, characterID int64) (*domain.Character, error) {
	var model models.Character
	err := r.db.WithContext(ctx).
		Where("server_id = ? AND character_id = ?", serverID, characterID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Resource: "character"}
		}
		return nil, err
	}
	character := characterToDomain(model)
	return &character, nil
}

func (r *CharacterRepository) ListByServer(ctx context.Context, serverID string) ([]domain.Character, error) {
	var rows []models.Character
	err := r.db.WithContext(ctx).Where("server_id = ?", serverID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	characters := make([]domain.Character, 0, len(rows))
	for _, row := range rows {
		characters = append(characters, characterToDomain(row))
	}
	return characters, nil
}

// UpdateAffiliation stores the result of an external affiliation refresh.
func (r *CharacterRepository) UpdateAffiliation(ctx context.Context, serverID string, characterID int64, corporationID int64, allianceID *int64, refreshedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Character{}).
		Where("server_id = ? AND character_id = ?", serverID, characterID).
		Updates(map[string]any{
			"corporation_id": corporationID,
			"alliance_id":    allianceID,
			"refreshed_at":   refreshedAt,
		}).Error
}

func (r *CharacterRepository) Delete(ctx context.Context, serverID string, characterID int64) error {
	result := r.db.WithContext(ctx).
		Where("server_id = ? AND character_id = ?", serverID, characterID).
		Delete(&models.Character{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "character"}
	}
	return nil
}

func characterToDomain(model models.Character) domain.Character {
	return domain.Character{
		CharacterID:    model.CharacterID,
		CharacterName:  model.CharacterName,
		ServerID:       model.ServerID,
		RegistrationID: model.RegistrationID,
		CorporationID:  model.CorporationID,
		AllianceID:     model.AllianceID,
		RefreshedAt:    model.RefreshedAt,
	}
}
