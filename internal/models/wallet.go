package models

import "time"

// AmbassadorWallet caches derived balance figures. BalanceCents and
// TotalBuildingsCompleted are overwritten on every wallet read and are never
// an input to any calculation.
type AmbassadorWallet struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	UserID                  uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	BalanceCents            int64      `gorm:"not null;default:0" json:"balance_cents"`
	TotalBuildingsCompleted int64      `gorm:"not null;default:0" json:"total_buildings_completed"`
	TotalEarnedCents        int64      `gorm:"not null;default:0" json:"total_earned_cents"`
	TotalWithdrawnCents     int64      `gorm:"not null;default:0" json:"total_withdrawn_cents"`
	TermsAcceptedAt         *time.Time `json:"terms_accepted_at"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

func (AmbassadorWallet) TableName() string { return "ambassador_wallet" }
