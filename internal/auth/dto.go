package auth

import "time"

// LoginRequest captures the credentials sent to the token endpoint.
type LoginRequest struct {
	Utorid   string `json:"utorid" validate:"required,utorid"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the bearer token, its expiry, and the refresh token
// paired with it.
type LoginResponse struct {
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken"`
}

// ResetRequest asks for a password reset token.
type ResetRequest struct {
	Utorid string `json:"utorid" validate:"required,utorid"`
}

// ResetIssued is returned when a reset token is minted.
type ResetIssued struct {
	ExpiresAt  time.Time `json:"expiresAt"`
	ResetToken string    `json:"resetToken"`
}

// ResetCompletion redeems a reset token for a new password.
type ResetCompletion struct {
	Utorid   string `json:"utorid" validate:"required,utorid"`
	Password string `json:"password" validate:"required"`
}
