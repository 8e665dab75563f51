package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/campuspoints-backend/internal/users"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
)

type stubUsers struct {
	users.Service

	created  *users.CreateInput
	updateMe *users.UpdateMeInput
	update   *users.UpdateInput
	updateID uuid.UUID
	filters  *users.ListFilters
}

func (s *stubUsers) Create(_ context.Context, _ policy.Actor, input users.CreateInput) (*users.Created, error) {
	s.created = &input
	return &users.Created{}, nil
}

func (s *stubUsers) List(_ context.Context, _ policy.Actor, filters users.ListFilters) (pagination.Page[users.UserDTO], error) {
	s.filters = &filters
	return pagination.NewPage(filters.Params, 0, []users.UserDTO{}), nil
}

func (s *stubUsers) UpdateMe(_ context.Context, actor policy.Actor, input users.UpdateMeInput) (*users.UserDTO, error) {
	s.updateMe = &input
	return &users.UserDTO{ID: actor.UserID, Utorid: actor.Utorid}, nil
}

func (s *stubUsers) Update(_ context.Context, _ policy.Actor, id uuid.UUID, input users.UpdateInput) (*users.Updated, error) {
	s.updateID = id
	s.update = &input
	return &users.Updated{ID: id, Role: input.Role}, nil
}

func TestUsersCreateValidatesIdentity(t *testing.T) {
	svc := &stubUsers{}
	rec := httptest.NewRecorder()
	UsersCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/users", `{"utorid":"newstud1","name":"New Student","email":"new.student@mail.utoronto.ca"}`, enums.RoleCashier, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "newstud1", svc.created.Utorid)

	bad := map[string]string{
		"short utorid":   `{"utorid":"abc","name":"A","email":"a.b@mail.utoronto.ca"}`,
		"foreign domain": `{"utorid":"newstud1","name":"A","email":"a.b@gmail.com"}`,
		"long name":      `{"utorid":"newstud1","name":"` + strings.Repeat("a", 51) + `","email":"a.b@mail.utoronto.ca"}`,
	}
	for name, body := range bad {
		t.Run(name, func(t *testing.T) {
			svc := &stubUsers{}
			rec := httptest.NewRecorder()
			UsersCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/users", body, enums.RoleCashier, nil))
			requireErrorCode(t, rec, http.StatusBadRequest, string(pkgerrors.CodeValidation))
			require.Nil(t, svc.created)
		})
	}
}

func TestUsersListParsesFilters(t *testing.T) {
	svc := &stubUsers{}
	rec := httptest.NewRecorder()
	UsersList(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/users?name=ann&role=cashier&verified=false&activated=true&limit=20", "", enums.RoleManager, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "ann", svc.filters.Name)
	require.Equal(t, enums.RoleCashier, *svc.filters.Role)
	require.False(t, *svc.filters.Verified)
	require.True(t, *svc.filters.Activated)
	require.Equal(t, 20, svc.filters.Params.Limit)

	rec = httptest.NewRecorder()
	UsersList(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/users?role=admin", "", enums.RoleManager, nil))
	requireErrorCode(t, rec, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}

func TestUsersUpdateMeRejectsAvatar(t *testing.T) {
	svc := &stubUsers{}
	rec := httptest.NewRecorder()
	UsersUpdateMe(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/users/me", `{"avatar":"data:image/png;base64,AAAA"}`, enums.RoleRegular, nil))
	requireErrorCode(t, rec, http.StatusBadRequest, string(pkgerrors.CodeValidation))
	require.Nil(t, svc.updateMe)

	rec = httptest.NewRecorder()
	UsersUpdateMe(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/users/me", `{"birthday":"2001-02-03"}`, enums.RoleRegular, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "2001-02-03", *svc.updateMe.Birthday)
}

func TestUsersUpdateParsesRole(t *testing.T) {
	svc := &stubUsers{}
	id := uuid.New()
	params := map[string]string{"userId": id.String()}

	rec := httptest.NewRecorder()
	UsersUpdate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/", `{"role":" Cashier ","suspicious":false}`, enums.RoleManager, params))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, id, svc.updateID)
	require.Equal(t, enums.RoleCashier, *svc.update.Role)
	require.False(t, *svc.update.Suspicious)

	rec = httptest.NewRecorder()
	UsersUpdate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/", `{"role":"owner"}`, enums.RoleManager, params))
	requireErrorCode(t, rec, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}
