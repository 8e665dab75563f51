package users

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user persistence. Point balances are not written here;
// they belong to internal/ledger.
type Repository struct {
	db *gorm.DB
}

type listQuery struct {
	name      string
	role      *enums.Role
	verified  *bool
	activated *bool
	limit     int
	offset    int
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByUtorid retrieves the user matching the provided utorid.
func (r *Repository) FindByUtorid(ctx context.Context, utorid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("utorid = ?", utorid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByUtoridOrEmail reports which of the unique identifiers are taken.
func (r *Repository) ExistsByUtoridOrEmail(ctx context.Context, utorid, email string) (bool, bool, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Select("id", "utorid", "email").
		Where("utorid = ? OR email = ?", utorid, email).
		Find(&rows).Error
	if err != nil {
		return false, false, err
	}
	var utoridTaken, emailTaken bool
	for _, row := range rows {
		if row.Utorid == utorid {
			utoridTaken = true
		}
		if strings.EqualFold(row.Email, email) {
			emailTaken = true
		}
	}
	return utoridTaken, emailTaken, nil
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.User, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.User{})
	if name := strings.TrimSpace(q.name); name != "" {
		like := "%" + strings.ToLower(name) + "%"
		base = base.Where("LOWER(utorid) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if q.role != nil {
		base = base.Where("role = ?", *q.role)
	}
	if q.verified != nil {
		base = base.Where("verified = ?", *q.verified)
	}
	if q.activated != nil {
		if *q.activated {
			base = base.Where("last_login_at IS NOT NULL")
		} else {
			base = base.Where("last_login_at IS NULL")
		}
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.User
	err := base.
		Order("created_at ASC").
		Order("id ASC").
		Limit(q.limit).
		Offset(q.offset).
		Find(&out).Error
	return out, total, err
}

// Updates applies a column map to a single user.
func (r *Repository) Updates(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
