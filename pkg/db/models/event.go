package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event owns a point budget. PointsRemain + PointsAwarded always equals Points.
type Event struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Description   string           `gorm:"column:description;not null;default:''"`
	Location      string           `gorm:"column:location;not null;default:''"`
	StartTime     time.Time        `gorm:"column:start_time;not null"`
	EndTime       time.Time        `gorm:"column:end_time;not null"`
	Capacity      *int             `gorm:"column:capacity"`
	Points        int              `gorm:"column:points;not null"`
	PointsRemain  int              `gorm:"column:points_remain;not null"`
	PointsAwarded int              `gorm:"column:points_awarded;not null;default:0"`
	Published     bool             `gorm:"column:published;not null;default:false"`
	CreatedBy     string           `gorm:"column:created_by;not null"`
	Organizers    []EventOrganizer `gorm:"foreignKey:EventID"`
	Guests        []EventGuest     `gorm:"foreignKey:EventID"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Ended reports whether the event is over at now.
func (e Event) Ended(now time.Time) bool {
	return !now.Before(e.EndTime)
}

// Started reports whether the event has begun at now.
func (e Event) Started(now time.Time) bool {
	return !now.Before(e.StartTime)
}

type EventOrganizer struct {
	EventID   uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey;index"`
	User      *User     `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type EventGuest struct {
	EventID   uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey;index"`
	User      *User     `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
