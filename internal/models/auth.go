package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the access-token claims issued by the upstream gateway.
// Tenant context (school id) rides along with the operator identity.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	SchoolID string `json:"school_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
