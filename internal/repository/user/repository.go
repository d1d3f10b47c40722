package user

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists and fetches users.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByMobile(ctx context.Context, mobile string) (*domain.User, error)
	SetOTP(ctx context.Context, id, otpHash string) error
	MarkVerified(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, p domain.Profile) (*domain.User, error)
	SetAdmin(ctx context.Context, id string, admin bool) (*domain.User, error)
}
