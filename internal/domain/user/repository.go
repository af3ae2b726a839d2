package user

import (
	"context"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (Profile, error)
	ListByCompany(ctx context.Context, companyID string) ([]Profile, error)
}
