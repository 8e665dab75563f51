package events

import (
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/google/uuid"
)

type CreateInput struct {
	Name        string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	Capacity    *int
	Points      int
}

// UpdateInput is a sparse patch. Points and Published are manager-only.
type UpdateInput struct {
	Name        *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	Capacity    *int
	Points      *int
	Published   *bool
}

func (u UpdateInput) empty() bool {
	return u.Name == nil && u.Description == nil && u.Location == nil && u.StartTime == nil &&
		u.EndTime == nil && u.Capacity == nil && u.Points == nil && u.Published == nil
}

type ListFilters struct {
	Name      string
	Location  string
	Started   *bool
	Ended     *bool
	ShowFull  *bool
	Published *bool
	Params    pagination.Params
}

// UserRef is the compact user shape embedded in event responses.
type UserRef struct {
	ID     uuid.UUID `json:"id"`
	Utorid string    `json:"utorid"`
	Name   string    `json:"name"`
}

func refFromUser(u *models.User) UserRef {
	if u == nil {
		return UserRef{}
	}
	return UserRef{ID: u.ID, Utorid: u.Utorid, Name: u.Name}
}

// EventDTO is the API projection of an event. Budget and guest details are
// populated for managers and organizers only.
type EventDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Capacity      *int      `json:"capacity"`
	NumGuests     int       `json:"numGuests"`
	Points        *int      `json:"points,omitempty"`
	PointsRemain  *int      `json:"pointsRemain,omitempty"`
	PointsAwarded *int      `json:"pointsAwarded,omitempty"`
	Published     *bool     `json:"published,omitempty"`
	Organizers    []UserRef `json:"organizers,omitempty"`
	Guests        []UserRef `json:"guests,omitempty"`
}

type view uint8

const (
	showDetail view = 1 << iota
	showBudget
	showGuests

	viewFull = showDetail | showBudget | showGuests
)

func toDTO(e models.Event, numGuests int, v view) EventDTO {
	dto := EventDTO{
		ID:        e.ID,
		Name:      e.Name,
		Location:  e.Location,
		StartTime: e.StartTime.UTC(),
		EndTime:   e.EndTime.UTC(),
		Capacity:  e.Capacity,
		NumGuests: numGuests,
	}
	if v&showDetail != 0 {
		dto.Description = e.Description
		dto.Organizers = make([]UserRef, 0, len(e.Organizers))
		for _, o := range e.Organizers {
			dto.Organizers = append(dto.Organizers, refFromUser(o.User))
		}
	}
	if v&showBudget != 0 {
		points, remain, awarded, published := e.Points, e.PointsRemain, e.PointsAwarded, e.Published
		dto.Points = &points
		dto.PointsRemain = &remain
		dto.PointsAwarded = &awarded
		dto.Published = &published
	}
	if v&showGuests != 0 {
		dto.Guests = make([]UserRef, 0, len(e.Guests))
		for _, g := range e.Guests {
			dto.Guests = append(dto.Guests, refFromUser(g.User))
		}
	}
	return dto
}

// GuestAdded is returned when a guest joins an event.
type GuestAdded struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	GuestAdded UserRef   `json:"guestAdded"`
	NumGuests  int       `json:"numGuests"`
}

// AwardPlan is a reserved slice of an event's budget. Targets each receive
// Amount points; Total has already been moved from remaining to awarded.
type AwardPlan struct {
	Event   models.Event
	Targets []models.User
	Amount  int
	Total   int
}
