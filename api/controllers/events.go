package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/campuspoints-backend/api/middleware"
	"github.com/angelmondragon/campuspoints-backend/api/responses"
	"github.com/angelmondragon/campuspoints-backend/api/validators"
	"github.com/angelmondragon/campuspoints-backend/internal/events"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
)

type createEventRequest struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description" validate:"required"`
	Location    string     `json:"location" validate:"required"`
	StartTime   *time.Time `json:"startTime" validate:"required"`
	EndTime     *time.Time `json:"endTime" validate:"required"`
	Capacity    *int       `json:"capacity" validate:"omitempty,gt=0"`
	Points      int        `json:"points" validate:"required,gt=0"`
}

type updateEventRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Capacity    *int       `json:"capacity" validate:"omitempty,gt=0"`
	Points      *int       `json:"points" validate:"omitempty,gt=0"`
	Published   *bool      `json:"published"`
}

type utoridRequest struct {
	Utorid string `json:"utorid" validate:"required,utorid"`
}

func eventServiceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
}

func EventsCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		var body createEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), events.CreateInput{
			Name:        body.Name,
			Description: body.Description,
			Location:    body.Location,
			StartTime:   *body.StartTime,
			EndTime:     *body.EndTime,
			Capacity:    body.Capacity,
			Points:      body.Points,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func EventsList(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		filters, err := parseEventFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func parseEventFilters(r *http.Request) (events.ListFilters, error) {
	var filters events.ListFilters
	params, err := validators.ParsePagination(r)
	if err != nil {
		return filters, err
	}
	filters.Params = params
	filters.Name = strings.TrimSpace(r.URL.Query().Get("name"))
	filters.Location = strings.TrimSpace(r.URL.Query().Get("location"))
	if filters.Started, err = validators.ParseQueryBool(r, "started"); err != nil {
		return filters, err
	}
	if filters.Ended, err = validators.ParseQueryBool(r, "ended"); err != nil {
		return filters, err
	}
	if filters.ShowFull, err = validators.ParseQueryBool(r, "showFull"); err != nil {
		return filters, err
	}
	if filters.Published, err = validators.ParseQueryBool(r, "published"); err != nil {
		return filters, err
	}
	return filters, nil
}

func EventsGet(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

func EventsUpdate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, events.UpdateInput{
			Name:        body.Name,
			Description: body.Description,
			Location:    body.Location,
			StartTime:   body.StartTime,
			EndTime:     body.EndTime,
			Capacity:    body.Capacity,
			Points:      body.Points,
			Published:   body.Published,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

func EventsDelete(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func EventsAddOrganizer(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body utoridRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.AddOrganizer(r.Context(), middleware.ActorFromContext(r.Context()), id, body.Utorid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func EventsRemoveOrganizer(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseURLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveOrganizer(r.Context(), middleware.ActorFromContext(r.Context()), id, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func EventsAddGuest(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body utoridRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		added, err := svc.AddGuest(r.Context(), middleware.ActorFromContext(r.Context()), id, body.Utorid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, added)
	}
}

func EventsRemoveGuest(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseURLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveGuest(r.Context(), middleware.ActorFromContext(r.Context()), id, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// EventsRSVP adds the caller to the guest list.
func EventsRSVP(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		added, err := svc.RSVP(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, added)
	}
}

// EventsCancelRSVP removes the caller from the guest list.
func EventsCancelRSVP(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			eventServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CancelRSVP(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
