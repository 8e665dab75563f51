package policy

import (
	"testing"

	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/google/uuid"
)

func TestAuthorizeOrdering(t *testing.T) {
	cases := []struct {
		actor   enums.Role
		minimum enums.Role
		want    bool
	}{
		{enums.RoleRegular, enums.RoleRegular, true},
		{enums.RoleRegular, enums.RoleCashier, false},
		{enums.RoleCashier, enums.RoleCashier, true},
		{enums.RoleCashier, enums.RoleManager, false},
		{enums.RoleManager, enums.RoleCashier, true},
		{enums.RoleManager, enums.RoleSuperuser, false},
		{enums.RoleSuperuser, enums.RoleManager, true},
		{enums.Role("root"), enums.RoleCashier, false},
		{enums.Role(""), enums.RoleRegular, true},
		{enums.Role("MANAGER"), enums.RoleManager, true},
	}

	for _, tc := range cases {
		if got := Authorize(tc.actor, tc.minimum); got != tc.want {
			t.Fatalf("Authorize(%q, %q) = %v, want %v", tc.actor, tc.minimum, got, tc.want)
		}
	}
}

func TestNormalizeNeverElevates(t *testing.T) {
	for _, raw := range []string{"", "admin", "owner", "super user"} {
		if got := Normalize(raw); got != enums.RoleRegular {
			t.Fatalf("Normalize(%q) = %q, want regular", raw, got)
		}
	}
	if Normalize(" Cashier ") != enums.RoleCashier {
		t.Fatal("expected whitespace and case to be ignored")
	}
}

func TestActorRequire(t *testing.T) {
	anonymous := Actor{Role: enums.RoleSuperuser}
	if err := anonymous.Require(enums.RoleRegular); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for missing identity, got %v", err)
	}

	cashier := Actor{UserID: uuid.New(), Role: enums.RoleCashier}
	if err := cashier.Require(enums.RoleCashier); err != nil {
		t.Fatalf("expected cashier to pass, got %v", err)
	}
	err := cashier.Require(enums.RoleManager)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCanAssign(t *testing.T) {
	if !CanAssign(enums.RoleManager, enums.RoleCashier) {
		t.Fatal("manager should assign cashier")
	}
	if CanAssign(enums.RoleManager, enums.RoleManager) {
		t.Fatal("manager should not assign manager")
	}
	if !CanAssign(enums.RoleSuperuser, enums.RoleSuperuser) {
		t.Fatal("superuser should assign any role")
	}
	if CanAssign(enums.RoleCashier, enums.RoleRegular) {
		t.Fatal("cashier should not assign roles")
	}
}
