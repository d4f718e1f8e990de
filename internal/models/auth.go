package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access-token payload issued by the external identity
// provider. The service trusts the user id and staff flag after signature
// verification.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsStaff  bool   `json:"is_staff"`
	jwt.RegisteredClaims
}
