package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxDLQErrorLen = 1024

// DLQBacklog counts dead-lettered ledger events of one type.
type DLQBacklog struct {
	EventType enums.OutboxEventType `gorm:"column:event_type"`
	Count     int64                 `gorm:"column:count"`
}

// DLQRepository stores ledger events the relay gave up on, keyed by the
// transaction, event, user or promotion they describe.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx dead-letters entry inside tx, the same transaction that marks the
// outbox row handled.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !entry.EventType.IsValid() {
		return fmt.Errorf("dead letter for unknown event type %q", entry.EventType)
	}
	if !entry.AggregateType.IsValid() {
		return fmt.Errorf("dead letter for unknown aggregate type %q", entry.AggregateType)
	}
	if entry.ErrorMessage != nil {
		msg := truncateDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var dlq models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&dlq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dlq, nil
}

// ListByAggregate returns the dead letters for one ledger aggregate, newest
// first, e.g. every undelivered event about a single transaction.
func (r *DLQRepository) ListByAggregate(ctx context.Context, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) ([]models.OutboxDLQ, error) {
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateID).
		Order("failed_at DESC").
		Find(&rows).Error
	return rows, err
}

// Backlog counts dead letters per event type.
func (r *DLQRepository) Backlog(ctx context.Context) ([]DLQBacklog, error) {
	var rows []DLQBacklog
	err := r.db.WithContext(ctx).
		Model(&models.OutboxDLQ{}).
		Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Order("event_type").
		Scan(&rows).Error
	return rows, err
}

func truncateDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	return message[:maxDLQErrorLen]
}
