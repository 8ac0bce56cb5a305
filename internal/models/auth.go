package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role gates access to mutating gallery endpoints.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// IssueTokenRequest describes a token minted by the server operator.
type IssueTokenRequest struct {
	Name string `validate:"required"`
	Role Role   `validate:"required,oneof=admin viewer"`
}

// IssuedToken is returned when an operator mints an access token.
type IssuedToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Role        Role      `json:"role"`
}
