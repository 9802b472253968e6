package repository

import (
	"context"

	sessiondomain "envmonitor/console/internal/session/domain"
)

// AuthResponse is a normalized login/register/google reply.
type AuthResponse struct {
	Token string
	User  sessiondomain.User
}

// Repository is the /auth REST surface.
type Repository interface {
	Login(ctx context.Context, email, password string, rememberMe bool) (*AuthResponse, error)
	Register(ctx context.Context, username, email, password string) (*AuthResponse, error)
	Google(ctx context.Context, idToken, email, name string) (*AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) (bool, error)
	ResetPassword(ctx context.Context, token, password string) error
}
