package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/campuspoints-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
)

type stubAuth struct {
	login      *auth.LoginRequest
	resetToken string
	completion *auth.ResetCompletion
	err        error
}

func (s *stubAuth) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.login = &req
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{Token: "jwt", ExpiresAt: time.Now().Add(time.Hour), RefreshToken: "refresh"}, nil
}

func (s *stubAuth) RequestReset(_ context.Context, req auth.ResetRequest) (*auth.ResetIssued, error) {
	return &auth.ResetIssued{ResetToken: "reset", ExpiresAt: time.Now().Add(time.Hour)}, s.err
}

func (s *stubAuth) CompleteReset(_ context.Context, token string, req auth.ResetCompletion) error {
	s.resetToken = token
	s.completion = &req
	return s.err
}

func TestAuthLoginHandler(t *testing.T) {
	svc := &stubAuth{}
	req := httptest.NewRequest(http.MethodPost, "/auth/tokens", strings.NewReader(`{"utorid":"student1","password":"Secret1!"}`))
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"token":"jwt"`)
	require.Equal(t, "student1", svc.login.Utorid)

	denied := &stubAuth{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req = httptest.NewRequest(http.MethodPost, "/auth/tokens", strings.NewReader(`{"utorid":"student1","password":"nope"}`))
	rec = httptest.NewRecorder()
	AuthLogin(denied, nil).ServeHTTP(rec, req)
	requireErrorCode(t, rec, http.StatusUnauthorized, string(pkgerrors.CodeUnauthorized))
}

func TestAuthCompleteResetReadsToken(t *testing.T) {
	svc := &stubAuth{}
	req := httptest.NewRequest(http.MethodPost, "/auth/resets/abc123", strings.NewReader(`{"utorid":"student1","password":"NewPass1!"}`))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("resetToken", "abc123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	rec := httptest.NewRecorder()
	AuthCompleteReset(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "abc123", svc.resetToken)
	require.Equal(t, "NewPass1!", svc.completion.Password)
}
