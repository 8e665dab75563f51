package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/campuspoints-backend/pkg/auth"
	"github.com/angelmondragon/campuspoints-backend/pkg/auth/session"
	"github.com/angelmondragon/campuspoints-backend/pkg/config"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/angelmondragon/campuspoints-backend/pkg/redis"
	"github.com/angelmondragon/campuspoints-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	RequestReset(ctx context.Context, req ResetRequest) (*ResetIssued, error)
	CompleteReset(ctx context.Context, token string, req ResetCompletion) error
}

type service struct {
	users       userRepository
	session     sessionManager
	resetTokens resetTokenStore
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	resetTTL    time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

type userRepository interface {
	FindByUtorid(ctx context.Context, utorid string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
}

type resetTokenStore interface {
	StoreResetToken(ctx context.Context, token, utorid string, ttl time.Duration) error
	PeekResetToken(ctx context.Context, token string) (string, error)
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	ResetTokens    resetTokenStore
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	ResetTokenTTL  time.Duration
	Logger         *logger.Logger
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.ResetTokens == nil {
		return nil, fmt.Errorf("reset token store is required")
	}
	if params.ResetTokenTTL <= 0 {
		return nil, fmt.Errorf("reset token ttl must be positive")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		resetTokens: params.ResetTokens,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		resetTTL:    params.ResetTokenTTL,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Utorid, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Utorid: user.Utorid,
		Role:   policy.Normalize(string(user.Role)),
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	s.logg.Info(s.logg.WithUtorid(ctx, user.Utorid), "auth.login")
	return &LoginResponse{
		Token:        accessToken,
		ExpiresAt:    pkgAuth.ExpiresAt(s.jwtCfg, now),
		RefreshToken: refreshToken,
	}, nil
}

func (s *service) RequestReset(ctx context.Context, req ResetRequest) (*ResetIssued, error) {
	utorid := strings.TrimSpace(req.Utorid)
	if utorid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utorid is required")
	}
	user, err := s.lookup(ctx, utorid)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.resetTokens.StoreResetToken(ctx, token, user.Utorid, s.resetTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}

	s.logg.Info(s.logg.WithUtorid(ctx, user.Utorid), "auth.reset_requested")
	return &ResetIssued{
		ExpiresAt:  s.now().UTC().Add(s.resetTTL),
		ResetToken: token,
	}, nil
}

func (s *service) CompleteReset(ctx context.Context, token string, req ResetCompletion) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reset token not found")
	}
	if violations := security.PasswordViolations(req.Password); len(violations) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password does not meet policy").
			WithDetails(map[string]any{"password": violations})
	}

	owner, err := s.resetTokens.PeekResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, redis.ErrResetTokenNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reset token not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read reset token")
	}
	if owner != strings.TrimSpace(req.Utorid) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "reset token does not belong to this user")
	}

	user, err := s.lookup(ctx, owner)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return err
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	// Consuming after the peek keeps a token usable if hashing fails, and a
	// concurrent redeemer loses here.
	if _, err := s.resetTokens.ConsumeResetToken(ctx, token); err != nil {
		if errors.Is(err, redis.ErrResetTokenNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reset token not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	s.logg.Info(s.logg.WithUtorid(ctx, user.Utorid), "auth.reset_completed")
	return nil
}

func (s *service) authenticate(ctx context.Context, utorid, password string) (*models.User, error) {
	user, err := s.lookup(ctx, strings.TrimSpace(utorid))
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) lookup(ctx context.Context, utorid string) (*models.User, error) {
	if utorid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByUtorid(ctx, utorid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}
