package middleware

import (
	"context"

	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxUtorid contextKey = "utorid"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func UtoridFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUtorid).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext builds the policy actor for the authenticated caller. An
// unauthenticated context yields the zero actor, which every Require rejects.
func ActorFromContext(ctx context.Context) policy.Actor {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return policy.Actor{}
	}
	return policy.Actor{
		UserID: id,
		Utorid: UtoridFromContext(ctx),
		Role:   policy.Normalize(RoleFromContext(ctx)),
	}
}

// WithActor injects an authenticated identity into the context.
func WithActor(ctx context.Context, userID uuid.UUID, utorid string, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID.String())
	ctx = context.WithValue(ctx, ctxUtorid, utorid)
	return context.WithValue(ctx, ctxRole, string(role))
}
