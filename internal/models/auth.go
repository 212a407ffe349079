package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
)

// CanOverrideFinalized reports whether the role may edit finalized courses.
func (r UserRole) CanOverrideFinalized() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor identifies who performs a grade sheet mutation.
type Actor struct {
	ID   string
	Name string
	Role UserRole
}

// ActorFromClaims converts token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	name := claims.FullName
	if name == "" {
		name = claims.Email
	}
	return Actor{ID: claims.UserID, Name: name, Role: claims.Role}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
