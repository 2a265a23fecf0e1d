package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles the campus SSO issues tokens for.
type UserRole string

// Roles recognised by this service.
const (
	RoleStudent   UserRole = "STUDENT"
	RoleProfessor UserRole = "PROFESSOR"
	RoleHead      UserRole = "HEAD"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
