package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleDeansOffice UserRole = "DEANS_OFFICE"
	RoleInstructor  UserRole = "INSTRUCTOR"
	RoleAssistant   UserRole = "TA"
)

// JWTClaims represents the JWT payload for access tokens. Token issuance
// lives in the identity service; this API only validates and reads claims.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
