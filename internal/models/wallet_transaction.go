package models

import "time"

// WalletTransaction is the human-readable audit trail of wallet movements.
// It is never read back to compute a balance.
type WalletTransaction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	Type              string    `gorm:"size:30;not null;index" json:"type"` // withdrawal_hold, withdrawal_refund
	AmountCents       int64     `gorm:"not null" json:"amount_cents"`      // positive = credit, negative = debit
	BalanceAfterCents int64     `gorm:"not null" json:"balance_after_cents"`
	Description       string    `gorm:"size:255" json:"description"`
	RelatedRequestID  *uint     `gorm:"index" json:"related_request_id"`
	CreatedBy         uint      `gorm:"not null" json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }
