package user

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidRole    = errors.New("invalid role")
	ErrUserIDRequired = errors.New("user ID is required")
)
