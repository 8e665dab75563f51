package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/campuspoints-backend/internal/promotions"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
)

// birthdayLayout is the only accepted birthday format.
const birthdayLayout = "2006-01-02"

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID         uuid.UUID  `json:"id"`
	Utorid     string     `json:"utorid"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Birthday   *string    `json:"birthday,omitempty"`
	Role       enums.Role `json:"role,omitempty"`
	Points     int        `json:"points"`
	Verified   bool       `json:"verified"`
	Suspicious *bool      `json:"suspicious,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`

	Promotions []promotions.PromotionDTO `json:"promotions,omitempty"`
}

// FromModel projects the full profile, as seen by the owner or a manager.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	created := u.CreatedAt.UTC()
	suspicious := u.Suspicious
	dto := &UserDTO{
		ID:         u.ID,
		Utorid:     u.Utorid,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Points:     u.Points,
		Verified:   u.Verified,
		Suspicious: &suspicious,
		CreatedAt:  &created,
		LastLogin:  u.LastLoginAt,
	}
	if u.Birthday != nil {
		formatted := u.Birthday.UTC().Format(birthdayLayout)
		dto.Birthday = &formatted
	}
	return dto
}

// cashierView trims a profile down to what a cashier may look up at the till.
func cashierView(u *models.User) *UserDTO {
	return &UserDTO{
		ID:       u.ID,
		Utorid:   u.Utorid,
		Name:     u.Name,
		Points:   u.Points,
		Verified: u.Verified,
	}
}

// CreateInput registers a new account on behalf of a student.
type CreateInput struct {
	Utorid string
	Name   string
	Email  string
}

// Created is returned to the cashier who registered the account. The reset
// token lets the student choose their first password.
type Created struct {
	ID         uuid.UUID `json:"id"`
	Utorid     string    `json:"utorid"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Verified   bool      `json:"verified"`
	ExpiresAt  time.Time `json:"expiresAt"`
	ResetToken string    `json:"resetToken"`
}

type ListFilters struct {
	Name      string
	Role      *enums.Role
	Verified  *bool
	Activated *bool
	Params    pagination.Params
}

// UpdateMeInput is a sparse self-service patch. Birthday uses YYYY-MM-DD.
type UpdateMeInput struct {
	Name     *string
	Email    *string
	Birthday *string
}

func (u UpdateMeInput) empty() bool {
	return u.Name == nil && u.Email == nil && u.Birthday == nil
}

// UpdateInput is the manager patch over another account.
type UpdateInput struct {
	Email      *string
	Verified   *bool
	Suspicious *bool
	Role       *enums.Role
}

func (u UpdateInput) empty() bool {
	return u.Email == nil && u.Verified == nil && u.Suspicious == nil && u.Role == nil
}

// Updated echoes only the fields a manager patch touched.
type Updated struct {
	ID         uuid.UUID   `json:"id"`
	Utorid     string      `json:"utorid"`
	Name       string      `json:"name"`
	Email      *string     `json:"email,omitempty"`
	Verified   *bool       `json:"verified,omitempty"`
	Suspicious *bool       `json:"suspicious,omitempty"`
	Role       *enums.Role `json:"role,omitempty"`
}

type PasswordChange struct {
	Old string
	New string
}
