// Package policy centralizes role ordering and authorization checks.
//
// Roles are totally ordered: regular < cashier < manager < superuser. Unknown or
// missing roles collapse to regular and are never elevated.
package policy

import (
	"strings"

	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/google/uuid"
)

var levels = map[enums.Role]int{
	enums.RoleRegular:   0,
	enums.RoleCashier:   1,
	enums.RoleManager:   2,
	enums.RoleSuperuser: 3,
}

// Normalize maps raw role input onto a known role, defaulting to regular.
func Normalize(raw string) enums.Role {
	role := enums.Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := levels[role]; ok {
		return role
	}
	return enums.RoleRegular
}

// Level returns the numeric rank of a role.
func Level(role enums.Role) int {
	return levels[role]
}

// Authorize reports whether actorRole meets or exceeds minimum.
func Authorize(actorRole, minimum enums.Role) bool {
	return Level(Normalize(string(actorRole))) >= Level(Normalize(string(minimum)))
}

// Actor is the authenticated identity passed explicitly into every service call.
type Actor struct {
	UserID uuid.UUID
	Utorid string
	Role   enums.Role
}

// Is reports whether the actor has at least the given role.
func (a Actor) Is(minimum enums.Role) bool {
	return Authorize(a.Role, minimum)
}

// Require returns a FORBIDDEN error unless the actor has at least minimum.
func (a Actor) Require(minimum enums.Role) error {
	if a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !a.Is(minimum) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	return nil
}

// CanAssign reports whether an actor may grant target to another user.
// Managers may hand out regular and cashier; superusers may assign any role.
func CanAssign(actorRole, target enums.Role) bool {
	switch Normalize(string(actorRole)) {
	case enums.RoleSuperuser:
		return target.IsValid()
	case enums.RoleManager:
		return target == enums.RoleRegular || target == enums.RoleCashier
	default:
		return false
	}
}
