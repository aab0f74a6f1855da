package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nerevar/corpsync/internal/domain"
	"github.com/nerevar/corpsync/internal/infra/database/models"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Save(ctx context.Context, rule domain.Rule) error {
	model := ruleToModel(rule)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "server_id"}, {Name: "role_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"corporation_id", "corporation_name", "corporation_ticker",
			"channel_id", "locale", "updated_at",
		}),
	}).Create(&model).Error
}

func (r *RuleRepository) Find(ctx context.Context, serverID, roleID string) (*domain.Rule, error) {
	var model models.Rule
	err := r.db.WithContext(ctx).
		Where("server_id = ? AND role_id = ?", serverID, roleID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Resource: "rule"}
		}
		return nil, err
	}
	rule := ruleToDomain(model)
	return &rule, nil
}

func (r *RuleRepository) ListByServer(ctx context.Context, serverID string) ([]domain.Rule, error) {
	var rows []models.Rule
	err := r.db.WithContext(ctx).Where("server_id = ?", serverID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	rules := make([]domain.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, ruleToDomain(row))
	}
	return rules, nil
}

func (r *RuleRepository) List(ctx context.Context) ([]domain.Rule, error) {
	var rows []models.Rule
	err := r.db.WithContext(ctx).Order("server_id, role_id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	rules := make([]domain.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, ruleToDomain(row))
	}
	return rules, nil
}

func (r *RuleRepository) Delete(ctx context.Context, serverID, roleID string) error {
	result := r.db.WithContext(ctx).
		Where("server_id = ? AND role_id = ?", serverID, roleID).
		Delete(&models.Rule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "rule"}
	}
	return nil
}

func ruleToModel(rule domain.Rule) models.Rule {
	return models.Rule{
		ID:                rule.ID,
		ServerID:          rule.ServerID,
		RoleID:            rule.RoleID,
		CorporationID:     rule.CorporationID,
		CorporationName:   rule.CorporationName,
		CorporationTicker: rule.CorporationTicker,
		ChannelID:         rule.ChannelID,
		Locale:            rule.Locale,
	}
}

func ruleToDomain(model models.Rule) domain.Rule {
	return domain.Rule{
		ID:                model.ID,
		ServerID:          model.ServerID,
		RoleID:            model.RoleID,
		CorporationID:     model.CorporationID,
		CorporationName:   model.CorporationName,
		CorporationTicker: model.CorporationTicker,
		ChannelID:         model.ChannelID,
		Locale:            model.Locale,
	}
}
