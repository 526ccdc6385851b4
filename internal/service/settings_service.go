package service

import (
	"context"
	"fmt"

	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SettingsService struct {
	repos Repos
	log   *zap.Logger
}

func NewSettingsService(repos Repos, log *zap.Logger) *SettingsService {
	return &SettingsService{repos: repos, log: log}
}

// Snapshot returns the resolved program settings, defaults included.
func (s *SettingsService) Snapshot(ctx context.Context) (models.ProgramSettings, error) {
	ps, err := loadProgram(ctx, s.repos)
	if err != nil {
		return ps, fmt.Errorf("load settings: %w", err)
	}
	return ps, nil
}

// SettingsUpdate carries the fields an admin may change; nil leaves a field as is.
type SettingsUpdate struct {
	BuildingsPerDollar      *decimal.Decimal
	MinWithdrawalCents      *int64
	FinancialRewardsEnabled *bool
	RequireTermsAcceptance  *bool
}

// Update is restricted to super admins.
func (s *SettingsService) Update(ctx context.Context, actor Actor, u SettingsUpdate) (models.ProgramSettings, error) {
	if actor.Role != domain.RoleSuperAdmin {
		return models.ProgramSettings{}, ErrForbidden
	}
	if u.BuildingsPerDollar != nil && !u.BuildingsPerDollar.IsPositive() {
		return models.ProgramSettings{}, ErrInvalidSettings.withMessage("buildings_per_dollar must be greater than zero")
	}
	if u.MinWithdrawalCents != nil && *u.MinWithdrawalCents < 0 {
		return models.ProgramSettings{}, ErrInvalidSettings.withMessage("min_withdrawal_cents cannot be negative")
	}
	row, err := s.repos.Settings.Get(ctx)
	if err != nil {
		return models.ProgramSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if row == nil {
		row = &models.AmbassadorSettings{}
	}
	if u.BuildingsPerDollar != nil {
		row.BuildingsPerDollar = decimal.NewNullDecimal(*u.BuildingsPerDollar)
	}
	if u.MinWithdrawalCents != nil {
		row.MinWithdrawalCents = u.MinWithdrawalCents
	}
	if u.FinancialRewardsEnabled != nil {
		row.FinancialRewardsEnabled = u.FinancialRewardsEnabled
	}
	if u.RequireTermsAcceptance != nil {
		row.RequireTermsAcceptance = u.RequireTermsAcceptance
	}
	row.UpdatedBy = &actor.ID
	if err := s.repos.Settings.Save(ctx, row); err != nil {
		return models.ProgramSettings{}, fmt.Errorf("save settings: %w", err)
	}
	ps := row.Program()
	s.log.Info("ambassador settings updated",
		zap.Uint("admin_id", actor.ID),
		zap.String("buildings_per_dollar", ps.BuildingsPerDollar.String()),
		zap.Int64("min_withdrawal_cents", ps.MinWithdrawalCents),
		zap.Bool("financial_rewards_enabled", ps.FinancialRewardsEnabled),
	)
	return ps, nil
}
