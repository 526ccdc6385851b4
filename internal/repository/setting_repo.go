package repository

import (
	"context"
	"errors"

	"ambassador-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) WithTx(tx *gorm.DB) *SettingRepository {
	return &SettingRepository{db: tx}
}

// Get returns the settings row, or nil when it has not been created.
func (r *SettingRepository) Get(ctx context.Context) (*models.AmbassadorSettings, error) {
	var s models.AmbassadorSettings
	err := r.db.WithContext(ctx).First(&s, models.SettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the settings row.
func (r *SettingRepository) Save(ctx context.Context, s *models.AmbassadorSettings) error {
	s.ID = models.SettingsRowID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(s).Error
}
