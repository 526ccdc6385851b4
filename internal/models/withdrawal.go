package models

import (
	"time"

	"gorm.io/datatypes"
)

type WithdrawalRequest struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"not null;index" json:"user_id"`
	AmountCents    int64  `gorm:"not null" json:"amount_cents"`
	PaymentMethod  string `gorm:"size:30;not null" json:"payment_method"`
	PaymentDetails string `gorm:"size:255" json:"payment_details"`
	Status         string `gorm:"size:20;not null;index" json:"status"` // pending, finance_review, completed, rejected

	// OpenSlot holds the user id while the request is non-terminal and NULL
	// afterwards; the unique index allows one open request per user.
	OpenSlot *uint `gorm:"uniqueIndex" json:"-"`

	RiskScore int            `gorm:"not null;default:0" json:"risk_score"`
	RiskLevel string         `gorm:"size:10" json:"risk_level"`
	RiskNotes datatypes.JSON `json:"risk_notes"`

	AmbassadorAdminNotes string     `gorm:"type:text" json:"ambassador_admin_notes"`
	AmbassadorReviewedBy *uint      `json:"ambassador_reviewed_by"`
	AmbassadorReviewedAt *time.Time `json:"ambassador_reviewed_at"`
	FinanceNotes         string     `gorm:"type:text" json:"finance_notes"`
	FinanceReviewedBy    *uint      `json:"finance_reviewed_by"`
	FinanceReviewedAt    *time.Time `json:"finance_reviewed_at"`
	PaymentReference     string     `gorm:"size:128" json:"payment_reference"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WithdrawalRequest) TableName() string { return "ambassador_withdrawal_requests" }
