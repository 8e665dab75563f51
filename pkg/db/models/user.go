package models

import (
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the loyalty account holder. Points is only mutated through the ledger.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Utorid       string     `gorm:"column:utorid;type:text;not null;uniqueIndex"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash *string    `gorm:"column:password_hash"`
	Birthday     *time.Time `gorm:"column:birthday;type:date"`
	Role         enums.Role `gorm:"column:role;type:role_enum;not null;default:regular"`
	Points       int        `gorm:"column:points;not null;default:0"`
	Verified     bool       `gorm:"column:verified;not null;default:false"`
	Suspicious   bool       `gorm:"column:suspicious;not null;default:false"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Activated reports whether the user has logged in at least once.
func (u User) Activated() bool {
	return u.LastLoginAt != nil
}
