package jwtauth

import "landcert/internal/platform/middleware"

// MiddlewareAdapter exposes the token service through the interface the HTTP
// middleware expects.
type MiddlewareAdapter struct {
	svc *Service
}

func NewMiddlewareAdapter(svc *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{svc: svc}
}

func (a *MiddlewareAdapter) ValidateToken(token string) (*middleware.JWTClaims, error) {
	claims, err := a.svc.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{UserID: claims.UserID, Role: claims.Role}, nil
}
