package company

import "errors"

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrInvalidSettings = errors.New("invalid company settings")
)
