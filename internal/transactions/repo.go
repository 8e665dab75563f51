package transactions

import (
	"context"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/pkg/db"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists ledger records. Balances are owned by internal/ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedBy string) (bool, error)
	List(ctx context.Context, q listQuery) ([]models.Transaction, int64, error)

	FindUserByUtorid(ctx context.Context, utorid string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type listQuery struct {
	userID      *uuid.UUID
	name        string
	createdBy   string
	suspicious  *bool
	promotionID *uuid.UUID
	txType      *enums.TransactionType
	relatedID   *uuid.UUID
	amount      *int
	operator    string
	limit       int
	offset      int
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts txn and its promotion links in the same statement batch.
func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Promotions").
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := db.LockForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// MarkProcessed sets processed_by only while it is still null, so exactly one
// caller wins a processing race.
func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID, processedBy string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND processed_by IS NULL", id).
		UpdateColumn("processed_by", processedBy)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Transaction, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Transaction{})

	if q.userID != nil {
		base = base.Where("transactions.user_id = ?", *q.userID)
	}
	if name := strings.TrimSpace(q.name); name != "" {
		like := "%" + strings.ToLower(name) + "%"
		owners := r.db.Model(&models.User{}).
			Select("id").
			Where("LOWER(utorid) LIKE ? OR LOWER(name) LIKE ?", like, like)
		base = base.Where("transactions.user_id IN (?)", owners)
	}
	if createdBy := strings.TrimSpace(q.createdBy); createdBy != "" {
		base = base.Where("transactions.created_by = ?", createdBy)
	}
	if q.suspicious != nil {
		base = base.Where("transactions.suspicious = ?", *q.suspicious)
	}
	if q.promotionID != nil {
		linked := r.db.Model(&models.TransactionPromotion{}).
			Select("transaction_id").
			Where("promotion_id = ?", *q.promotionID)
		base = base.Where("transactions.id IN (?)", linked)
	}
	if q.txType != nil {
		base = base.Where("transactions.type = ?", *q.txType)
	}
	if q.relatedID != nil {
		base = base.Where("transactions.related_id = ?", *q.relatedID)
	}
	if q.amount != nil {
		switch q.operator {
		case OperatorGTE:
			base = base.Where("transactions.amount >= ?", *q.amount)
		case OperatorLTE:
			base = base.Where("transactions.amount <= ?", *q.amount)
		}
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Transaction
	err := base.
		Preload("User").
		Preload("Promotions").
		Order("transactions.created_at DESC").
		Order("transactions.id ASC").
		Limit(q.limit).
		Offset(q.offset).
		Find(&out).Error
	return out, total, err
}

func (r *repository) FindUserByUtorid(ctx context.Context, utorid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("utorid = ?", utorid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
