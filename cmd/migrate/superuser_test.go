package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/campuspoints-backend/internal/users"
	"github.com/angelmondragon/campuspoints-backend/pkg/config"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/dbtest"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/security"
)

var testPassword = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestCreateSuperuser(t *testing.T) {
	conn := dbtest.Open(t)
	repo := users.NewRepository(conn)
	ctx := context.Background()

	user, err := createSuperuser(ctx, repo, testPassword, "clive123", "Clive.SU@mail.utoronto.ca", "SuperUser123!")
	require.NoError(t, err)

	stored, err := repo.FindByUtorid(ctx, "clive123")
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.ID)
	require.Equal(t, enums.RoleSuperuser, stored.Role)
	require.True(t, stored.Verified)
	require.Equal(t, "clive.su@mail.utoronto.ca", stored.Email)
	require.NotNil(t, stored.PasswordHash)
	ok, err := security.VerifyPassword("SuperUser123!", *stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = createSuperuser(ctx, repo, testPassword, "clive123", "other.su@mail.utoronto.ca", "SuperUser123!")
	require.ErrorContains(t, err, "already registered")
}

func TestCreateSuperuserValidatesInput(t *testing.T) {
	repo := users.NewRepository(dbtest.Open(t))
	ctx := context.Background()

	cases := map[string][3]string{
		"bad utorid":    {"su", "su.user@mail.utoronto.ca", "SuperUser123!"},
		"bad email":     {"superu01", "su@example.com", "SuperUser123!"},
		"weak password": {"superu01", "su.user@mail.utoronto.ca", "password"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := createSuperuser(ctx, repo, testPassword, tc[0], tc[1], tc[2])
			require.Error(t, err)
		})
	}
}
