package ledger

import (
	"context"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository applies balance deltas with single-statement conditional updates,
// so concurrent writers against one row serialize on the row lock the UPDATE
// takes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	IncrementPoints(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	DecrementIfAvailable(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	SetSuspicious(ctx context.Context, transactionID uuid.UUID, from, to bool) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// IncrementPoints reports false when the user row does not exist or the
// credit would push the balance past models.MaxPoints.
func (r *repository) IncrementPoints(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND points <= ?", userID, models.MaxPoints-amount).
		UpdateColumn("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementIfAvailable reports false when the user is missing or holds fewer
// than amount points; the balance is left untouched in both cases.
func (r *repository) DecrementIfAvailable(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND points >= ?", userID, amount).
		UpdateColumn("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("id", "points").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// SetSuspicious flips the flag only if it still holds from, which makes a
// concurrent duplicate toggle a no-op instead of a double reversal.
func (r *repository) SetSuspicious(ctx context.Context, transactionID uuid.UUID, from, to bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND suspicious = ?", transactionID, from).
		UpdateColumn("suspicious", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
