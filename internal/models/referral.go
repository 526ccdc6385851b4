package models

import "time"

// Referral is one sign-up attributed to a referrer. Rows are written by the
// attribution process; the ledger only counts them.
type Referral struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferrerID uint      `gorm:"not null;index:idx_referrals_referrer_status" json:"referrer_id"`
	ReferredID uint      `gorm:"uniqueIndex;not null" json:"referred_id"`
	Status     string    `gorm:"size:30;not null;index:idx_referrals_referrer_status" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Referral) TableName() string { return "referrals" }
