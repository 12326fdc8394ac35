package token

import "custodia/internal/platform/middleware"

// MiddlewareAdapter bridges the token service to the middleware's validator
// interface without the middleware importing this package.
type MiddlewareAdapter struct {
	svc *Service
}

func NewMiddlewareAdapter(svc *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{svc: svc}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.SessionClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.SessionClaims{
		Address:   claims.Address,
		SessionID: claims.SessionID,
	}, nil
}
