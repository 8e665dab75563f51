package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/api/middleware"
	"github.com/angelmondragon/campuspoints-backend/api/responses"
	"github.com/angelmondragon/campuspoints-backend/api/validators"
	"github.com/angelmondragon/campuspoints-backend/internal/users"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
)

type createUserRequest struct {
	Utorid string `json:"utorid" validate:"required,utorid"`
	Name   string `json:"name" validate:"required,min=1,max=50"`
	Email  string `json:"email" validate:"required,uoftemail"`
}

type updateMeRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=50"`
	Email    *string `json:"email" validate:"omitempty,uoftemail"`
	Birthday *string `json:"birthday"`
	Avatar   *string `json:"avatar"`
}

type changePasswordRequest struct {
	Old string `json:"old" validate:"required"`
	New string `json:"new" validate:"required"`
}

type updateUserRequest struct {
	Email      *string `json:"email" validate:"omitempty,uoftemail"`
	Verified   *bool   `json:"verified"`
	Suspicious *bool   `json:"suspicious"`
	Role       *string `json:"role"`
}

func userServiceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
}

// UsersCreate registers a student account and returns its activation token.
func UsersCreate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			userServiceUnavailable(w, r, logg)
			return
		}

		var body createUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), users.CreateInput{
			Utorid: body.Utorid,
			Name:   body.Name,
			Email:  body.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// UsersList returns a filtered page of accounts.
func UsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			userServiceUnavailable(w, r, logg)
			return
		}

		filters, err := parseUserFilters(r)
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

func parseUserFilters(r *http.Request) (users.ListFilters, error) {
	var filters users.ListFilters
	params, err := validators.ParsePagination(r)
	if err != nil {
		return filters, err
	}
	filters.Params = params
	filters.Name = strings.TrimSpace(r.URL.Query().Get("name"))

	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, err := enums.ParseRole(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").WithDetails(map[string]any{"field": "role"})
		}
		filters.Role = &role
	}
	if filters.Verified, err = validators.ParseQueryBool(r, "verified"); err != nil {
		return filters, err
	}
	if filters.Activated, err = validators.ParseQueryBool(r, "activated"); err != nil {
		return filters, err
	}
	return filters, nil
}

// UsersMe returns the caller's own profile.
func UsersMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			userServiceUnavailable(w, r, logg)
			return
		}

		dto, err := svc.Me(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// UsersUpdateMe patches the caller's name, email, or birthday.
func UsersUpdateMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			userServiceUnavailable(w, r, logg)
			return
		}

		var body updateMeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Avatar != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "avatar uploads are not supported"))
			return
		}

		dto, err := svc.UpdateMe(r.Context(), middleware.ActorFromContext(r.Context()), users.UpdateMeInput{
			Name:     body.Name,
			Email:    body.Email,
			Birthday: body.Birthday,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// UsersChangePassword swaps the caller's password after checking the old one.
func UsersChangePassword(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			userServiceUnavailable(w, r, logg)
			return
		}

		var body changePasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := svc.ChangePassword(r.Context(), middleware.ActorFromContext(r.Context()), users.PasswordChange{
			Old: body.Old,
			New: body.New,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}

// UsersGet looks up one account. Cashiers receive the limited view.
func UsersGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			userServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "userId")
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

// UsersUpdate applies a manager patch and echoes the changed fields.
func UsersUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			userServiceUnavailable(w, r, logg)
			return
		}

		id, err := validators.ParseURLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := users.UpdateInput{
			Email:      body.Email,
			Verified:   body.Verified,
			Suspicious: body.Suspicious,
		}
		if body.Role != nil {
			role, err := enums.ParseRole(strings.ToLower(strings.TrimSpace(*body.Role)))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").WithDetails(map[string]any{"field": "role"}))
				return
			}
			input.Role = &role
		}

		updated, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}
