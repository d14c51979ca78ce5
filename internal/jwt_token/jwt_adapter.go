package jwttoken

import (
	"sante/internal/platform/middleware"
)

func ToMiddlewareClaims(claims *Claims) *middleware.JWTClaims {
	return &middleware.JWTClaims{
		UserID:      claims.UserID,
		Identifier:  claims.Identifier,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		JTI:         claims.ID,
	}
}

// JWTServiceAdapter exposes access-token validation in the shape the auth
// middleware expects.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
