package repository

import (
	"context"

	"envmonitor/console/internal/user/domain"
)

// Repository is the user administration REST surface.
type Repository interface {
	List(ctx context.Context) ([]domain.User, error)
	ListPending(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, u domain.User, password string) (*domain.User, error)
	Update(ctx context.Context, u domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	Approve(ctx context.Context, id int64) (*domain.User, error)
	Reject(ctx context.Context, id int64) (*domain.User, error)
	Deactivate(ctx context.Context, id int64) (*domain.User, error)
	Suspend(ctx context.Context, id int64) (*domain.User, error)
	ChangeRole(ctx context.Context, id int64, role string) (*domain.User, error)
	// Ping calls the plain-text /users/test endpoint.
	Ping(ctx context.Context) (string, error)
}
