package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConsumptionService owns the append-only consumption ledger. Entries are
// never updated or deleted.
type ConsumptionService struct {
	db       *gorm.DB
	repos    Repos
	notifier *NotificationService
	log      *zap.Logger
	now      func() time.Time
}

func NewConsumptionService(db *gorm.DB, repos Repos, notifier *NotificationService, log *zap.Logger) *ConsumptionService {
	return &ConsumptionService{db: db, repos: repos, notifier: notifier, log: log, now: time.Now}
}

// withRepos returns a copy bound to r so its writes join the caller's transaction.
func (s *ConsumptionService) withRepos(r Repos) *ConsumptionService {
	c := *s
	c.repos = r
	return &c
}

type ConsumptionInput struct {
	UserID     uint
	RewardType string
	Floors     int64
	AdminID    uint
	Notes      string
	// RequestID links the entry to the withdrawal that produced it.
	RequestID *uint
	// ConsumedAt defaults to now.
	ConsumedAt time.Time
}

// RecordConsumption appends an entry without checking the user's available
// floors. Over-consumption is absorbed by the floor calculation. Withdrawal
// completion and redemption reach the ledger through here too, bound to their
// own transaction.
func (s *ConsumptionService) RecordConsumption(ctx context.Context, in ConsumptionInput) (*models.Consumption, error) {
	rewardType := strings.TrimSpace(in.RewardType)
	if rewardType == "" {
		return nil, ErrInvalidRewardType
	}
	if in.Floors <= 0 {
		return nil, ErrInvalidFloors
	}
	at := in.ConsumedAt
	if at.IsZero() {
		at = s.now()
	}
	c := &models.Consumption{
		UserID:         in.UserID,
		RewardType:     rewardType,
		FloorsConsumed: in.Floors,
		ConsumedAt:     at.UTC(),
		AdminID:        in.AdminID,
		RequestID:      in.RequestID,
		Notes:          strings.TrimSpace(in.Notes),
	}
	if err := s.repos.Consumptions.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("append consumption: %w", err)
	}
	return c, nil
}

type RedeemInput struct {
	UserID     uint
	RewardType string
	Floors     int64
	Notes      string
}

// Redeem is an admin redemption of a non-cash reward. Unlike RecordConsumption
// it refuses to consume more than the user's available floors.
func (s *ConsumptionService) Redeem(ctx context.Context, actor Actor, in RedeemInput) (*models.Consumption, error) {
	if !domain.HasRole(actor.Role, domain.AmbassadorReviewRoles) {
		return nil, ErrForbidden
	}
	rewardType := strings.TrimSpace(in.RewardType)
	if rewardType == "" || rewardType == domain.RewardTypeFinancialWithdrawal {
		return nil, ErrInvalidRewardType
	}
	if in.Floors <= 0 {
		return nil, ErrInvalidFloors
	}

	var c *models.Consumption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		wallet, err := r.Wallets.LockForUser(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		ps, err := loadProgram(ctx, r)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		st, err := loadState(ctx, r, in.UserID, ps)
		if err != nil {
			return fmt.Errorf("compute balance: %w", err)
		}
		if in.Floors > st.balance.AvailableFloors {
			return insufficientFloors(st.balance.AvailableFloors)
		}
		if c, err = s.withRepos(r).RecordConsumption(ctx, ConsumptionInput{
			UserID:     in.UserID,
			RewardType: rewardType,
			Floors:     in.Floors,
			AdminID:    actor.ID,
			Notes:      in.Notes,
		}); err != nil {
			return err
		}
		after, err := loadState(ctx, r, in.UserID, ps)
		if err != nil {
			return fmt.Errorf("compute balance: %w", err)
		}
		if _, err := syncWalletCache(ctx, r, wallet, after.balance); err != nil {
			return fmt.Errorf("sync wallet cache: %w", err)
		}
		return s.notifier.withRepos(r).NotifyRedeemed(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("reward redeemed",
		zap.Uint("user_id", c.UserID),
		zap.Uint("admin_id", actor.ID),
		zap.String("reward_type", c.RewardType),
		zap.Int64("floors", c.FloorsConsumed),
	)
	return c, nil
}

func (s *ConsumptionService) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.Consumption, int64, error) {
	return s.repos.Consumptions.ListByUser(ctx, userID, page, limit)
}
