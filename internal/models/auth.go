package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Roles recognised by the admin API
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TokenClaims are the claims of an admin API bearer token
type TokenClaims struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
