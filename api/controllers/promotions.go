package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/campuspoints-backend/api/middleware"
	"github.com/angelmondragon/campuspoints-backend/api/responses"
	"github.com/angelmondragon/campuspoints-backend/api/validators"
	"github.com/angelmondragon/campuspoints-backend/internal/promotions"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
)

type createPromotionRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"required"`
	Type        string           `json:"type" validate:"required"`
	StartTime   *time.Time       `json:"startTime" validate:"required"`
	EndTime     *time.Time       `json:"endTime" validate:"required"`
	MinSpending *decimal.Decimal `json:"minSpending"`
	Rate        *decimal.Decimal `json:"rate"`
	Points      *int             `json:"points"`
}

type updatePromotionRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description"`
	Type        *string          `json:"type"`
	StartTime   *time.Time       `json:"startTime"`
	EndTime     *time.Time       `json:"endTime"`
	MinSpending *decimal.Decimal `json:"minSpending"`
	Rate        *decimal.Decimal `json:"rate"`
	Points      *int             `json:"points"`
}

func promotionServiceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
}

func parsePromotionType(raw string) (enums.PromotionType, error) {
	kind, err := enums.ParsePromotionType(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "type must be automatic or one-time").WithDetails(map[string]any{"field": "type"})
	}
	return kind, nil
}

func PromotionsCreate(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promotionServiceUnavailable(w, r, logg)
			return
		}

		var body createPromotionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := parsePromotionType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), promotions.CreateInput{
			Name:        body.Name,
			Description: body.Description,
			Type:        kind,
			StartTime:   *body.StartTime,
			EndTime:     *body.EndTime,
			MinSpending: body.MinSpending,
			Rate:        body.Rate,
			Points:      body.Points,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func PromotionsList(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promotionServiceUnavailable(w, r, logg)
			return
		}

		var filters promotions.ListFilters
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Params = params
		filters.Name = strings.TrimSpace(r.URL.Query().Get("name"))
		if raw := r.URL.Query().Get("type"); raw != "" {
			kind, err := parsePromotionType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.Type = &kind
		}
		if filters.Started, err = validators.ParseQueryBool(r, "started"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.Ended, err = validators.ParseQueryBool(r, "ended"); err != nil {
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

func PromotionsGet(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promotionServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "promotionId")
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

func PromotionsUpdate(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promotionServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePromotionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := promotions.UpdateInput{
			Name:        body.Name,
			Description: body.Description,
			StartTime:   body.StartTime,
			EndTime:     body.EndTime,
			MinSpending: body.MinSpending,
			Rate:        body.Rate,
			Points:      body.Points,
		}
		if body.Type != nil {
			kind, err := parsePromotionType(*body.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Type = &kind
		}

		dto, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

func PromotionsDelete(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promotionServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "promotionId")
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
