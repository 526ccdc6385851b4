package repository

import (
	"context"
	"errors"

	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/models"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) WithTx(tx *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: tx}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := r.db.WithContext(ctx).Clauses(forUpdate).First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// Transition applies updates only if the row is still in status from.
// It reports false when another writer moved the request first.
func (r *WithdrawalRepository) Transition(ctx context.Context, id uint, from string, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SumOpenHolds totals amount_cents over the user's non-terminal requests.
func (r *WithdrawalRepository) SumOpenHolds(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("user_id = ? AND status NOT IN ?", userID, domain.TerminalWithdrawalStatuses).
		Scan(&sum).Error
	return sum, err
}

// GetOpenByUser returns the user's non-terminal request, or nil when there is none.
func (r *WithdrawalRepository) GetOpenByUser(ctx context.Context, userID uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status NOT IN ?", userID, domain.TerminalWithdrawalStatuses).
		Order("id DESC").
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) CountCompleted(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("user_id = ? AND status = ?", userID, domain.WithdrawalStatusCompleted).
		Count(&n).Error
	return n, err
}

// List pages through all requests, newest first, optionally filtered by status.
func (r *WithdrawalRepository) List(ctx context.Context, status string, page, limit int) ([]models.WithdrawalRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return r.page(q.Session(&gorm.Session{}), page, limit)
}

func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.WithdrawalRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).Where("user_id = ?", userID)
	return r.page(q.Session(&gorm.Session{}), page, limit)
}

func (r *WithdrawalRepository) page(q *gorm.DB, page, limit int) ([]models.WithdrawalRequest, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.WithdrawalRequest
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset(page, limit)).Find(&list).Error
	return list, total, err
}
