package repository

import (
	"context"

	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/models"

	"gorm.io/gorm"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) WithTx(tx *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: tx}
}

// ReferralCounts are the per-referrer aggregates the ledger needs.
type ReferralCounts struct {
	TotalReferrals int64 // every referral row, any status
	CurrentFloors  int64 // completed or flagged_fraud
	FlaggedFloors  int64 // flagged_fraud
}

// CountByReferrer aggregates a referrer's rows in one statement.
func (r *ReferralRepository) CountByReferrer(ctx context.Context, referrerID uint) (ReferralCounts, error) {
	var c ReferralCounts
	err := r.db.WithContext(ctx).Model(&models.Referral{}).
		Select(
			"COUNT(*) AS total_referrals, "+
				"COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0) AS current_floors, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS flagged_floors",
			domain.ReferralStatusCompleted, domain.ReferralStatusFlaggedFraud, domain.ReferralStatusFlaggedFraud,
		).
		Where("referrer_id = ?", referrerID).
		Scan(&c).Error
	return c, err
}

func (r *ReferralRepository) Create(ctx context.Context, ref *models.Referral) error {
	return r.db.WithContext(ctx).Create(ref).Error
}

func (r *ReferralRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Referral{}).Where("id = ?", id).Update("status", status).Error
}
