package models

import (
	"time"

	"ambassador-ledger/internal/domain"

	"gorm.io/gorm"
)

// User is the slice of the users table the ledger reads: role for admin
// audiences and created_at for account age.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:255" json:"name"`
	Role      string         `gorm:"size:30;not null;default:'user';index" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return domain.HasRole(u.Role, domain.AdminRoles) }
