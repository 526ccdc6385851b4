package models

import "time"

// Consumption is an append-only ledger entry: floors permanently removed from
// a user's available pool by a redeemed reward.
type Consumption struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	RewardType     string    `gorm:"size:50;not null" json:"reward_type"`
	FloorsConsumed int64     `gorm:"not null" json:"floors_consumed"`
	ConsumedAt     time.Time `gorm:"not null" json:"consumed_at"`
	AdminID        uint      `gorm:"not null" json:"admin_id"`
	RequestID      *uint     `gorm:"index" json:"request_id"`
	Notes          string    `gorm:"type:text" json:"notes"`
}

func (Consumption) TableName() string { return "ambassador_consumptions" }
