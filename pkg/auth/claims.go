package auth

import (
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Utorid string
	Role   enums.Role
	// JTI doubles as the access session id checked against redis.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Utorid string     `json:"utorid"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}
