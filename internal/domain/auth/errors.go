package auth

import "errors"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrMissingClaims = errors.New("token is missing required claims")
	ErrForbidden     = errors.New("you do not have access to this resource")
)
