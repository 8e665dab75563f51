package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/internal/users"
	"github.com/angelmondragon/campuspoints-backend/pkg/config"
	"github.com/angelmondragon/campuspoints-backend/pkg/db"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/security"
)

type superuserCreator interface {
	Create(ctx context.Context, user *models.User) error
}

// createSuperuser bootstraps the first verified superuser. Every other account
// is created through the API by a cashier or above.
func createSuperuser(ctx context.Context, repo superuserCreator, passwordCfg config.PasswordConfig, utorid, email, password string) (*models.User, error) {
	utorid = strings.TrimSpace(utorid)
	email = strings.ToLower(strings.TrimSpace(email))

	if !users.ValidUtorid(utorid) {
		return nil, fmt.Errorf("utorid %q must be 7-8 alphanumeric characters", utorid)
	}
	if !users.ValidEmail(email) {
		return nil, fmt.Errorf("email %q must end with %s", email, users.EmailDomain)
	}
	if violations := security.PasswordViolations(password); len(violations) > 0 {
		return nil, fmt.Errorf("password rejected: %s", strings.Join(violations, "; "))
	}

	hash, err := security.HashPassword(password, passwordCfg)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Utorid:       utorid,
		Name:         "default",
		Email:        email,
		PasswordHash: &hash,
		Role:         enums.RoleSuperuser,
		Verified:     true,
	}
	if err := repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("utorid or email already registered")
		}
		return nil, fmt.Errorf("create superuser: %w", err)
	}
	return user, nil
}
