package repository

import (
	"context"
	"errors"
	"time"

	"ambassador-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID uint) (*models.AmbassadorWallet, error) {
	var w models.AmbassadorWallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreate lazily creates the wallet row. Concurrent first reads race on
// the unique user_id index; the loser simply reads the winner's row.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID uint) (*models.AmbassadorWallet, error) {
	w, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.AmbassadorWallet{UserID: userID}).Error; err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// LockForUser creates the wallet if needed and takes a row lock on it for the
// rest of the transaction. All money-moving operations for one user serialize here.
//
// It issues only writes and locking reads, so as the first call in a
// transaction it runs before any snapshot is taken and every later plain read
// sees what committed up to the lock.
func (r *WalletRepository) LockForUser(ctx context.Context, userID uint) (*models.AmbassadorWallet, error) {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.AmbassadorWallet{UserID: userID}).Error; err != nil {
		return nil, err
	}
	var w models.AmbassadorWallet
	err := r.db.WithContext(ctx).Clauses(forUpdate).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// SyncCache overwrites the cached figures when they differ from the given
// values and reports whether a row changed. Concurrent writers are last-write-wins.
func (r *WalletRepository) SyncCache(ctx context.Context, userID uint, balanceCents, buildings, earnedCents int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AmbassadorWallet{}).
		Where("user_id = ? AND (balance_cents <> ? OR total_buildings_completed <> ? OR total_earned_cents <> ?)",
			userID, balanceCents, buildings, earnedCents).
		Updates(map[string]interface{}{
			"balance_cents":             balanceCents,
			"total_buildings_completed": buildings,
			"total_earned_cents":        earnedCents,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *WalletRepository) SetBalance(ctx context.Context, userID uint, balanceCents int64) error {
	return r.db.WithContext(ctx).Model(&models.AmbassadorWallet{}).
		Where("user_id = ?", userID).
		Update("balance_cents", balanceCents).Error
}

// CreditBalance adds amountCents to the cached balance.
func (r *WalletRepository) CreditBalance(ctx context.Context, userID uint, amountCents int64) error {
	return r.db.WithContext(ctx).Model(&models.AmbassadorWallet{}).
		Where("user_id = ?", userID).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents)).Error
}

func (r *WalletRepository) AddWithdrawn(ctx context.Context, userID uint, amountCents int64) error {
	return r.db.WithContext(ctx).Model(&models.AmbassadorWallet{}).
		Where("user_id = ?", userID).
		Update("total_withdrawn_cents", gorm.Expr("total_withdrawn_cents + ?", amountCents)).Error
}

// AcceptTerms stamps terms_accepted_at once; later calls keep the first stamp.
func (r *WalletRepository) AcceptTerms(ctx context.Context, userID uint, at time.Time) (*models.AmbassadorWallet, error) {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Model(&models.AmbassadorWallet{}).
		Where("user_id = ? AND terms_accepted_at IS NULL", userID).
		Update("terms_accepted_at", at).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *WalletRepository) GetByUserIDs(ctx context.Context, ids []uint) (map[uint]models.AmbassadorWallet, error) {
	out := make(map[uint]models.AmbassadorWallet, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []models.AmbassadorWallet
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, w := range list {
		out[w.UserID] = w
	}
	return out, nil
}

func (r *WalletRepository) RecordTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *WalletRepository) ListTransactions(ctx context.Context, userID uint, limit int) ([]models.WalletTransaction, error) {
	var list []models.WalletTransaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
