package promotions

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists promotions and the one-time usage markers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.Promotion) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Promotion, error)
	Update(ctx context.Context, promo *models.Promotion) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q listQuery) ([]models.Promotion, int64, error)
	UsedBy(ctx context.Context, userID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	MarkUsed(ctx context.Context, usage models.PromotionUsage) (bool, error)
}

// listQuery is the resolved form of ListFilters after role rules apply.
type listQuery struct {
	name        string
	promoType   *enums.PromotionType
	started     *bool
	ended       *bool
	activeAt    *time.Time
	excludeUsed *uuid.UUID
	now         time.Time
	limit       int
	offset      int
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a promotion repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Promotion, error) {
	var promos []models.Promotion
	if len(ids) == 0 {
		return promos, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&promos).Error
	return promos, err
}

func (r *repository) Update(ctx context.Context, promo *models.Promotion) error {
	return r.db.WithContext(ctx).Save(promo).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Promotion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Promotion, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Promotion{})

	if name := strings.TrimSpace(q.name); name != "" {
		base = base.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if q.promoType != nil {
		base = base.Where("type = ?", *q.promoType)
	}
	if q.started != nil {
		if *q.started {
			base = base.Where("start_time <= ?", q.now)
		} else {
			base = base.Where("start_time > ?", q.now)
		}
	}
	if q.ended != nil {
		if *q.ended {
			base = base.Where("end_time <= ?", q.now)
		} else {
			base = base.Where("end_time > ?", q.now)
		}
	}
	if q.activeAt != nil {
		base = base.Where("start_time <= ? AND end_time > ?", *q.activeAt, *q.activeAt)
	}
	if q.excludeUsed != nil {
		used := r.db.Model(&models.PromotionUsage{}).
			Select("promotion_id").
			Where("user_id = ?", *q.excludeUsed)
		base = base.Where("id NOT IN (?)", used)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var promos []models.Promotion
	err := base.
		Order("end_time ASC").
		Order("id ASC").
		Limit(q.limit).
		Offset(q.offset).
		Find(&promos).Error
	return promos, total, err
}

func (r *repository) UsedBy(ctx context.Context, userID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	used := make(map[uuid.UUID]bool, len(promotionIDs))
	if len(promotionIDs) == 0 {
		return used, nil
	}
	var rows []models.PromotionUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND promotion_id IN ?", userID, promotionIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		used[row.PromotionID] = true
	}
	return used, nil
}

// MarkUsed inserts the usage marker and reports false when the user already
// consumed the promotion. The primary key decides concurrent races.
func (r *repository) MarkUsed(ctx context.Context, usage models.PromotionUsage) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&usage)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
