package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/campuspoints-backend/api/middleware"
	"github.com/angelmondragon/campuspoints-backend/api/responses"
	"github.com/angelmondragon/campuspoints-backend/api/validators"
	"github.com/angelmondragon/campuspoints-backend/internal/transactions"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
)

type createTransactionRequest struct {
	Utorid       string           `json:"utorid" validate:"required,utorid"`
	Type         string           `json:"type" validate:"required,oneof=purchase adjustment"`
	Spent        *decimal.Decimal `json:"spent"`
	Amount       *int             `json:"amount" validate:"omitempty,gte=-2147483647,lte=2147483647"`
	RelatedID    *uuid.UUID       `json:"relatedId"`
	PromotionIDs []uuid.UUID      `json:"promotionIds"`
	Remark       string           `json:"remark" validate:"max=500"`
}

type transferRequest struct {
	Type   string `json:"type" validate:"required,oneof=transfer"`
	Amount int    `json:"amount" validate:"required,gt=0,lte=2147483647"`
	Remark string `json:"remark" validate:"max=500"`
}

type redemptionRequest struct {
	Type   string `json:"type" validate:"required,oneof=redemption"`
	Amount int    `json:"amount" validate:"required,gt=0,lte=2147483647"`
	Remark string `json:"remark" validate:"max=500"`
}

type eventAwardRequest struct {
	Type   string `json:"type" validate:"required,oneof=event"`
	Utorid string `json:"utorid" validate:"omitempty,utorid"`
	Amount int    `json:"amount" validate:"required,gt=0,lte=2147483647"`
	Remark string `json:"remark" validate:"max=500"`
}

type suspiciousRequest struct {
	Suspicious *bool `json:"suspicious" validate:"required"`
}

type processedRequest struct {
	Processed *bool `json:"processed" validate:"required"`
}

func transactionServiceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
}

// TransactionsCreate records a purchase or an adjustment.
func TransactionsCreate(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		var body createTransactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), transactions.CreateInput{
			Type:         enums.TransactionType(body.Type),
			Utorid:       body.Utorid,
			Spent:        body.Spent,
			Amount:       body.Amount,
			RelatedID:    body.RelatedID,
			PromotionIDs: body.PromotionIDs,
			Remark:       body.Remark,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// TransactionsList is the manager-wide listing.
func TransactionsList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		filters, err := parseTransactionFilters(r, true)
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

// TransactionsListMine lists the caller's own ledger.
func TransactionsListMine(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		filters, err := parseTransactionFilters(r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMine(r.Context(), middleware.ActorFromContext(r.Context()), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func parseTransactionFilters(r *http.Request, manager bool) (transactions.ListFilters, error) {
	var filters transactions.ListFilters
	params, err := validators.ParsePagination(r)
	if err != nil {
		return filters, err
	}
	filters.Params = params
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		kind, err := enums.ParseTransactionType(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type").WithDetails(map[string]any{"field": "type"})
		}
		filters.Type = &kind
	}
	if filters.RelatedID, err = validators.ParseQueryUUID(r, "relatedId"); err != nil {
		return filters, err
	}
	if filters.PromotionID, err = validators.ParseQueryUUID(r, "promotionId"); err != nil {
		return filters, err
	}
	if filters.Amount, err = validators.ParseOptionalInt(r, "amount"); err != nil {
		return filters, err
	}
	filters.Operator = strings.TrimSpace(q.Get("operator"))

	if manager {
		filters.Name = strings.TrimSpace(q.Get("name"))
		filters.CreatedBy = strings.TrimSpace(q.Get("createdBy"))
		if filters.Suspicious, err = validators.ParseQueryBool(r, "suspicious"); err != nil {
			return filters, err
		}
	}
	return filters, nil
}

// TransactionsGet returns a single transaction.
func TransactionsGet(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "transactionId")
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

// TransactionsSetSuspicious flags or clears a transaction and moves the
// owner's balance accordingly.
func TransactionsSetSuspicious(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body suspiciousRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.SetSuspicious(r.Context(), middleware.ActorFromContext(r.Context()), id, *body.Suspicious)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// TransactionsProcess completes a pending redemption.
func TransactionsProcess(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body processedRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !*body.Processed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "processed can only be set to true"))
			return
		}

		dto, err := svc.ProcessRedemption(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// UsersTransfer moves points from the caller to the user in the path.
func UsersTransfer(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		recipient, err := validators.ParseURLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transfer(r.Context(), middleware.ActorFromContext(r.Context()), transactions.TransferInput{
			RecipientID: recipient,
			Amount:      body.Amount,
			Remark:      body.Remark,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// UsersRedeem opens a redemption request for the caller.
func UsersRedeem(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		var body redemptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateRedemption(r.Context(), middleware.ActorFromContext(r.Context()), transactions.RedemptionInput{
			Amount: body.Amount,
			Remark: body.Remark,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// EventsAward distributes event points to one guest or to every guest. A
// single-guest award answers with one record, a bulk award with the list.
func EventsAward(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transactionServiceUnavailable(w, r, logg)
			return
		}

		eventID, err := validators.ParseURLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body eventAwardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.AwardEvent(r.Context(), middleware.ActorFromContext(r.Context()), transactions.AwardInput{
			EventID: eventID,
			Utorid:  body.Utorid,
			Amount:  body.Amount,
			Remark:  body.Remark,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.Utorid != "" && len(results) == 1 {
			responses.WriteSuccessStatus(w, http.StatusCreated, results[0])
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, results)
	}
}
