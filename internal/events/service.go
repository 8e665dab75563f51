package events

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers event management, guest rosters and the point budget.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateInput) (*EventDTO, error)
	List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[EventDTO], error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*EventDTO, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*EventDTO, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error

	AddOrganizer(ctx context.Context, actor policy.Actor, eventID uuid.UUID, utorid string) (*EventDTO, error)
	RemoveOrganizer(ctx context.Context, actor policy.Actor, eventID, userID uuid.UUID) error
	AddGuest(ctx context.Context, actor policy.Actor, eventID uuid.UUID, utorid string) (*GuestAdded, error)
	RemoveGuest(ctx context.Context, actor policy.Actor, eventID, userID uuid.UUID) error
	RSVP(ctx context.Context, actor policy.Actor, eventID uuid.UUID) (*GuestAdded, error)
	CancelRSVP(ctx context.Context, actor policy.Actor, eventID uuid.UUID) error

	// ReserveAward authorizes an award of amount points per target inside tx
	// and debits the event budget for all targets at once. An empty utorid
	// targets every guest.
	ReserveAward(ctx context.Context, tx *gorm.DB, actor policy.Actor, eventID uuid.UUID, utorid string, amount int) (*AwardPlan, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*EventDTO, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	location := strings.TrimSpace(input.Location)
	if name == "" || description == "" || location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, description and location are required")
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startTime and endTime are required")
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endTime must be after startTime")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be a positive integer")
	}
	if input.Capacity != nil && *input.Capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive or null")
	}

	event := models.Event{
		Name:         name,
		Description:  description,
		Location:     location,
		StartTime:    input.StartTime.UTC(),
		EndTime:      input.EndTime.UTC(),
		Capacity:     input.Capacity,
		Points:       input.Points,
		PointsRemain: input.Points,
		CreatedBy:    actor.Utorid,
	}

	var created *models.Event
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
		}
		// the creator organizes the event until a manager says otherwise
		if err := repo.AddOrganizer(ctx, event.ID, actor.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add creator as organizer")
		}
		loaded, err := repo.FindByID(ctx, event.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload event")
		}
		created = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id": created.ID.String(),
		"points":   created.Points,
	}), "event.created")

	dto := toDTO(*created, 0, viewFull)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[EventDTO], error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return pagination.Page[EventDTO]{}, err
	}
	if filters.Started != nil && filters.Ended != nil {
		return pagination.Page[EventDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "started and ended cannot both be set")
	}

	params := filters.Params.Normalize()
	q := listQuery{
		name:     filters.Name,
		location: filters.Location,
		started:  filters.Started,
		ended:    filters.Ended,
		hideFull: filters.ShowFull != nil && !*filters.ShowFull,
		now:      s.now().UTC(),
		limit:    params.Limit,
		offset:   params.Offset(),
	}

	manager := actor.Is(enums.RoleManager)
	if manager {
		q.published = filters.Published
	} else {
		published := true
		q.published = &published
	}

	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return pagination.Page[EventDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, e := range rows {
		ids = append(ids, e.ID)
	}
	counts, err := s.repo.GuestCounts(ctx, ids)
	if err != nil {
		return pagination.Page[EventDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count guests")
	}

	var v view
	if manager {
		v = showBudget
	}
	results := make([]EventDTO, 0, len(rows))
	for _, e := range rows {
		results = append(results, toDTO(e, counts[e.ID], v))
	}
	return pagination.NewPage(params, total, results), nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*EventDTO, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	event, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	if actor.Is(enums.RoleManager) || organizes(event, actor.UserID) {
		dto := toDTO(*event, len(event.Guests), viewFull)
		return &dto, nil
	}
	if !event.Published {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	dto := toDTO(*event, len(event.Guests), showDetail)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*EventDTO, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.Event
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		event, err := s.lock(ctx, repo, id)
		if err != nil {
			return err
		}
		manager := actor.Is(enums.RoleManager)
		if !manager {
			ok, err := repo.IsOrganizer(ctx, id, actor.UserID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organizer")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only managers and organizers may edit this event")
			}
		}

		guests, err := repo.CountGuests(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count guests")
		}
		fields, err := s.patchFields(*event, input, manager, guests)
		if err != nil {
			return err
		}
		if err := repo.Updates(ctx, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update event")
		}
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "event_id", id.String()), "event.updated")
	dto := toDTO(*updated, len(updated.Guests), viewFull)
	return &dto, nil
}

// patchFields validates input against the current event state and returns the
// column changes to apply.
func (s *service) patchFields(event models.Event, input UpdateInput, manager bool, guests int) (map[string]any, error) {
	now := s.now().UTC()
	fields := map[string]any{}

	if input.Points != nil && !manager {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers may change points")
	}
	if input.Published != nil && !manager {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers may publish events")
	}

	if event.Started(now) && (input.Name != nil || input.Description != nil || input.Location != nil ||
		input.StartTime != nil || input.Capacity != nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event already started; only endTime, points and published may change")
	}
	if event.Ended(now) && input.EndTime != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event already ended")
	}

	for col, val := range map[string]*string{"name": input.Name, "description": input.Description, "location": input.Location} {
		if val == nil {
			continue
		}
		trimmed := strings.TrimSpace(*val)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, col+" cannot be empty")
		}
		fields[col] = trimmed
	}

	start, end := event.StartTime, event.EndTime
	if input.StartTime != nil {
		if input.StartTime.Before(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "startTime cannot be in the past")
		}
		start = input.StartTime.UTC()
		fields["start_time"] = start
	}
	if input.EndTime != nil {
		if input.EndTime.Before(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "endTime cannot be in the past")
		}
		end = input.EndTime.UTC()
		fields["end_time"] = end
	}
	if !end.After(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endTime must be after startTime")
	}

	if input.Capacity != nil {
		if *input.Capacity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
		}
		if *input.Capacity < guests {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity cannot be less than the number of guests").
				WithDetails(map[string]any{"numGuests": guests})
		}
		fields["capacity"] = *input.Capacity
	}

	if input.Points != nil {
		if *input.Points <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be a positive integer")
		}
		if *input.Points < event.PointsAwarded {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "points cannot be less than points already awarded").
				WithDetails(map[string]any{"pointsAwarded": event.PointsAwarded})
		}
		fields["points"] = *input.Points
		fields["points_remain"] = *input.Points - event.PointsAwarded
	}

	if input.Published != nil {
		if !*input.Published {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "published can only be set to true")
		}
		fields["published"] = true
	}
	return fields, nil
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleManager); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		event, err := s.lock(ctx, repo, id)
		if err != nil {
			return err
		}
		if event.Published {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete a published event")
		}
		if event.PointsAwarded > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete an event that has awarded points").
				WithDetails(map[string]any{"pointsAwarded": event.PointsAwarded})
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete event")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "event_id", id.String()), "event.deleted")
	return nil
}

func (s *service) AddOrganizer(ctx context.Context, actor policy.Actor, eventID uuid.UUID, utorid string) (*EventDTO, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}
	utorid = strings.TrimSpace(utorid)
	if utorid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utorid is required")
	}

	var updated *models.Event
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		event, err := s.lock(ctx, repo, eventID)
		if err != nil {
			return err
		}
		if event.Ended(s.now()) {
			return pkgerrors.New(pkgerrors.CodeGone, "event has ended")
		}
		user, err := s.findUser(ctx, repo, utorid)
		if err != nil {
			return err
		}
		guest, err := repo.IsGuest(ctx, eventID, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check guest")
		}
		if guest {
			return pkgerrors.New(pkgerrors.CodeValidation, "user is a guest; remove them as a guest first")
		}
		organizer, err := repo.IsOrganizer(ctx, eventID, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organizer")
		}
		if organizer {
			return pkgerrors.New(pkgerrors.CodeConflict, "user is already an organizer")
		}
		if err := repo.AddOrganizer(ctx, eventID, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add organizer")
		}
		updated, err = repo.FindByID(ctx, eventID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toDTO(*updated, len(updated.Guests), showDetail)
	return &dto, nil
}

func (s *service) RemoveOrganizer(ctx context.Context, actor policy.Actor, eventID, userID uuid.UUID) error {
	if err := actor.Require(enums.RoleManager); err != nil {
		return err
	}
	if _, err := s.load(ctx, s.repo, eventID); err != nil {
		return err
	}
	removed, err := s.repo.RemoveOrganizer(ctx, eventID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove organizer")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user is not an organizer of this event")
	}
	return nil
}

func (s *service) AddGuest(ctx context.Context, actor policy.Actor, eventID uuid.UUID, utorid string) (*GuestAdded, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	utorid = strings.TrimSpace(utorid)
	if utorid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utorid is required")
	}

	return s.joinEvent(ctx, eventID, func(repo Repository, event *models.Event) (*models.User, error) {
		if !actor.Is(enums.RoleManager) {
			ok, err := repo.IsOrganizer(ctx, eventID, actor.UserID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organizer")
			}
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers and organizers may add guests")
			}
			if !event.Published {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
			}
		}
		return s.findUser(ctx, repo, utorid)
	})
}

// RSVP adds the actor to the guest list of a published event.
func (s *service) RSVP(ctx context.Context, actor policy.Actor, eventID uuid.UUID) (*GuestAdded, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	return s.joinEvent(ctx, eventID, func(repo Repository, event *models.Event) (*models.User, error) {
		if !event.Published && !actor.Is(enums.RoleManager) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		user, err := repo.FindUserByID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		return user, nil
	})
}

// joinEvent runs the shared guest-admission checks under the event row lock.
// resolve authorizes the caller and names the user being admitted.
func (s *service) joinEvent(ctx context.Context, eventID uuid.UUID, resolve func(Repository, *models.Event) (*models.User, error)) (*GuestAdded, error) {
	var out *GuestAdded
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		event, err := s.lock(ctx, repo, eventID)
		if err != nil {
			return err
		}
		user, err := resolve(repo, event)
		if err != nil {
			return err
		}
		if event.Ended(s.now()) {
			return pkgerrors.New(pkgerrors.CodeGone, "event has ended")
		}

		guests, err := repo.CountGuests(ctx, eventID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count guests")
		}
		if event.Capacity != nil && guests >= *event.Capacity {
			return pkgerrors.New(pkgerrors.CodeConflict, "event is full").
				WithDetails(map[string]any{"capacity": *event.Capacity})
		}

		organizer, err := repo.IsOrganizer(ctx, eventID, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organizer")
		}
		if organizer {
			return pkgerrors.New(pkgerrors.CodeValidation, "user is an organizer; remove them as an organizer first")
		}
		guest, err := repo.IsGuest(ctx, eventID, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check guest")
		}
		if guest {
			return pkgerrors.New(pkgerrors.CodeConflict, "user is already a guest")
		}

		if err := repo.AddGuest(ctx, eventID, user.ID); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user is already a guest")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add guest")
		}

		out = &GuestAdded{
			ID:         event.ID,
			Name:       event.Name,
			Location:   event.Location,
			GuestAdded: refFromUser(user),
			NumGuests:  guests + 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id": eventID.String(),
		"user_id":  out.GuestAdded.ID.String(),
	}), "event.guest_added")
	return out, nil
}

func (s *service) RemoveGuest(ctx context.Context, actor policy.Actor, eventID, userID uuid.UUID) error {
	if err := actor.Require(enums.RoleManager); err != nil {
		return err
	}
	return s.leaveEvent(ctx, eventID, userID, "user is not a guest of this event")
}

func (s *service) CancelRSVP(ctx context.Context, actor policy.Actor, eventID uuid.UUID) error {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return err
	}
	return s.leaveEvent(ctx, eventID, actor.UserID, "user did not RSVP to this event")
}

func (s *service) leaveEvent(ctx context.Context, eventID, userID uuid.UUID, notGuest string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		event, err := s.lock(ctx, repo, eventID)
		if err != nil {
			return err
		}
		if event.Ended(s.now()) {
			return pkgerrors.New(pkgerrors.CodeGone, "event has ended")
		}
		removed, err := repo.RemoveGuest(ctx, eventID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove guest")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, notGuest)
		}
		return nil
	})
}

func (s *service) ReserveAward(ctx context.Context, tx *gorm.DB, actor policy.Actor, eventID uuid.UUID, utorid string, amount int) (*AwardPlan, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}

	repo := s.repo.WithTx(tx)
	event, err := s.lock(ctx, repo, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(enums.RoleManager) {
		ok, err := repo.IsOrganizer(ctx, eventID, actor.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organizer")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers and organizers may award event points")
		}
	}
	if event.Ended(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeGone, "event has ended")
	}

	targets, err := s.awardTargets(ctx, repo, eventID, strings.TrimSpace(utorid))
	if err != nil {
		return nil, err
	}

	// divide first so a huge per-guest amount cannot wrap the total
	if amount > event.PointsRemain/len(targets) {
		return nil, budgetError(requiredPoints(amount, len(targets)), event.PointsRemain)
	}
	total := amount * len(targets)
	ok, err := repo.ConsumeBudget(ctx, eventID, total)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume event budget")
	}
	if !ok {
		// the row lock is a no-op on sqlite; the conditional update still holds
		return nil, budgetError(total, event.PointsRemain)
	}

	event.PointsRemain -= total
	event.PointsAwarded += total
	return &AwardPlan{Event: *event, Targets: targets, Amount: amount, Total: total}, nil
}

func (s *service) awardTargets(ctx context.Context, repo Repository, eventID uuid.UUID, utorid string) ([]models.User, error) {
	if utorid == "" {
		guests, err := repo.GuestUsers(ctx, eventID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guests")
		}
		if len(guests) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event has no guests to award")
		}
		return guests, nil
	}

	user, err := s.findUser(ctx, repo, utorid)
	if err != nil {
		return nil, err
	}
	guest, err := repo.IsGuest(ctx, eventID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check guest")
	}
	if !guest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not on the guest list")
	}
	return []models.User{*user}, nil
}

// requiredPoints is amount*guests, saturated at math.MaxInt.
func requiredPoints(amount, guests int) int {
	if amount > math.MaxInt/guests {
		return math.MaxInt
	}
	return amount * guests
}

func budgetError(required, remaining int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientBudget, "insufficient remaining event points").
		WithDetails(map[string]any{"required": required, "remaining": remaining})
}

func organizes(event *models.Event, userID uuid.UUID) bool {
	for _, o := range event.Organizers {
		if o.UserID == userID {
			return true
		}
	}
	return false
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Event, error) {
	event, err := repo.FindByID(ctx, id)
	return event, notFound(err, "load event")
}

func (s *service) lock(ctx context.Context, repo Repository, id uuid.UUID) (*models.Event, error) {
	event, err := repo.LockByID(ctx, id)
	return event, notFound(err, "lock event")
}

func (s *service) findUser(ctx context.Context, repo Repository, utorid string) (*models.User, error) {
	user, err := repo.FindUserByUtorid(ctx, utorid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func notFound(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
