package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettingsRowID is the single program-wide settings row.
const SettingsRowID = 1

const (
	DefaultBuildingsPerDollar = 5
	DefaultMinWithdrawalCents = 100
)

// AmbassadorSettings mirrors the nullable settings row; NULL columns fall back
// to defaults in Program.
type AmbassadorSettings struct {
	ID                      uint                `gorm:"primaryKey" json:"id"`
	BuildingsPerDollar      decimal.NullDecimal `gorm:"type:decimal(10,4)" json:"buildings_per_dollar"`
	MinWithdrawalCents      *int64              `json:"min_withdrawal_cents"`
	FinancialRewardsEnabled *bool               `json:"financial_rewards_enabled"`
	RequireTermsAcceptance  *bool               `json:"require_terms_acceptance"`
	UpdatedBy               *uint               `json:"updated_by"`
	UpdatedAt               time.Time           `json:"updated_at"`
}

func (AmbassadorSettings) TableName() string { return "ambassador_settings" }

// ProgramSettings is an immutable snapshot read once per operation.
type ProgramSettings struct {
	BuildingsPerDollar      decimal.Decimal `json:"buildings_per_dollar"`
	MinWithdrawalCents      int64           `json:"min_withdrawal_cents"`
	FinancialRewardsEnabled bool            `json:"financial_rewards_enabled"`
	RequireTermsAcceptance  bool            `json:"require_terms_acceptance"`
}

func DefaultProgramSettings() ProgramSettings {
	return ProgramSettings{
		BuildingsPerDollar: decimal.NewFromInt(DefaultBuildingsPerDollar),
		MinWithdrawalCents: DefaultMinWithdrawalCents,
	}
}

// Program resolves the row into a snapshot. A nil row, NULL columns and a
// non-positive rate all resolve to defaults.
func (s *AmbassadorSettings) Program() ProgramSettings {
	p := DefaultProgramSettings()
	if s == nil {
		return p
	}
	if s.BuildingsPerDollar.Valid && s.BuildingsPerDollar.Decimal.IsPositive() {
		p.BuildingsPerDollar = s.BuildingsPerDollar.Decimal
	}
	if s.MinWithdrawalCents != nil && *s.MinWithdrawalCents >= 0 {
		p.MinWithdrawalCents = *s.MinWithdrawalCents
	}
	if s.FinancialRewardsEnabled != nil {
		p.FinancialRewardsEnabled = *s.FinancialRewardsEnabled
	}
	if s.RequireTermsAcceptance != nil {
		p.RequireTermsAcceptance = *s.RequireTermsAcceptance
	}
	return p
}
