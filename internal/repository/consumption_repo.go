package repository

import (
	"context"

	"ambassador-ledger/internal/models"

	"gorm.io/gorm"
)

// ConsumptionRepository only ever inserts; there is no update or delete.
type ConsumptionRepository struct {
	db *gorm.DB
}

func NewConsumptionRepository(db *gorm.DB) *ConsumptionRepository {
	return &ConsumptionRepository{db: db}
}

func (r *ConsumptionRepository) WithTx(tx *gorm.DB) *ConsumptionRepository {
	return &ConsumptionRepository{db: tx}
}

func (r *ConsumptionRepository) Create(ctx context.Context, c *models.Consumption) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// SumFloors is the raw, unclamped ledger total for a user.
func (r *ConsumptionRepository) SumFloors(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.Consumption{}).
		Select("COALESCE(SUM(floors_consumed), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}

func (r *ConsumptionRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.Consumption, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.Consumption{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Consumption
	err := q.Order("consumed_at DESC, id DESC").Limit(limit).Offset(offset(page, limit)).Find(&list).Error
	return list, total, err
}
