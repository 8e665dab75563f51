package events

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists events, their organizer and guest rosters, and the
// point budget counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, q listQuery) ([]models.Event, int64, error)
	Updates(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindUserByUtorid(ctx context.Context, utorid string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	IsGuest(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	AddOrganizer(ctx context.Context, eventID, userID uuid.UUID) error
	RemoveOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	AddGuest(ctx context.Context, eventID, userID uuid.UUID) error
	RemoveGuest(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	CountGuests(ctx context.Context, eventID uuid.UUID) (int, error)
	GuestCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int, error)
	GuestUsers(ctx context.Context, eventID uuid.UUID) ([]models.User, error)

	ConsumeBudget(ctx context.Context, eventID uuid.UUID, total int) (bool, error)
}

type listQuery struct {
	name          string
	location      string
	started       *bool
	ended         *bool
	hideFull      bool
	published     *bool
	now           time.Time
	limit, offset int
}

const guestCountSQL = "(SELECT COUNT(*) FROM event_guests WHERE event_guests.event_id = events.id)"

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

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Preload("Organizers", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		Preload("Organizers.User").
		Preload("Guests", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		Preload("Guests.User").
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// LockByID loads the bare event row under a row lock so roster and budget
// checks serialize with each other.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := db.LockForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Event, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Event{})

	if name := strings.TrimSpace(q.name); name != "" {
		base = base.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if loc := strings.TrimSpace(q.location); loc != "" {
		base = base.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
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
	if q.published != nil {
		base = base.Where("published = ?", *q.published)
	}
	if q.hideFull {
		base = base.Where("(capacity IS NULL OR capacity > " + guestCountSQL + ")")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Event
	err := base.
		Order("start_time ASC").
		Order("id ASC").
		Limit(q.limit).
		Offset(q.offset).
		Find(&out).Error
	return out, total, err
}

func (r *repository) Updates(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the event together with its rosters and any transactions
// that reference it. Callers run it inside a transaction.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("event_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
		return err
	}
	if err := conn.Where("event_id = ?", id).Delete(&models.EventGuest{}).Error; err != nil {
		return err
	}
	if err := conn.Where("event_id = ?", id).Delete(&models.EventOrganizer{}).Error; err != nil {
		return err
	}
	res := conn.Where("id = ?", id).Delete(&models.Event{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
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

func (r *repository) IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.EventOrganizer{}, eventID, userID)
}

func (r *repository) IsGuest(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.EventGuest{}, eventID, userID)
}

func (r *repository) exists(ctx context.Context, model any, eventID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) AddOrganizer(ctx context.Context, eventID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&models.EventOrganizer{EventID: eventID, UserID: userID}).Error
}

func (r *repository) RemoveOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.EventOrganizer{})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) AddGuest(ctx context.Context, eventID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&models.EventGuest{EventID: eventID, UserID: userID}).Error
}

func (r *repository) RemoveGuest(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.EventGuest{})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) CountGuests(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventGuest{}).Where("event_id = ?", eventID).Count(&count).Error
	return int(count), err
}

func (r *repository) GuestCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		EventID uuid.UUID
		Total   int
	}
	err := r.db.WithContext(ctx).Model(&models.EventGuest{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.EventID] = row.Total
	}
	return counts, nil
}

// GuestUsers returns the guests' user rows in RSVP order.
func (r *repository) GuestUsers(ctx context.Context, eventID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN event_guests ON event_guests.user_id = users.id").
		Where("event_guests.event_id = ?", eventID).
		Order("event_guests.created_at ASC").
		Find(&users).Error
	return users, err
}

// ConsumeBudget moves total points from remaining to awarded. It reports false
// without touching the row when fewer than total points remain.
func (r *repository) ConsumeBudget(ctx context.Context, eventID uuid.UUID, total int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND points_remain >= ?", eventID, total).
		UpdateColumns(map[string]any{
			"points_remain":  gorm.Expr("points_remain - ?", total),
			"points_awarded": gorm.Expr("points_awarded + ?", total),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
