package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of access tokens issued by the auth
// frontend. This service only verifies them; it never mints tokens.
type JWTClaims struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
