// Package service implements sign-in, registration and password recovery on top of the /auth API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"envmonitor/console/internal/auth/repository"
	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/platform/rbac"
	sessiondomain "envmonitor/console/internal/session/domain"
)

// Validation and outcome errors. Validation errors are returned before any request is sent.
var (
	ErrEmptyField         = errors.New("required field is empty")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUsernameTooShort   = errors.New("username must be at least 3 characters")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoAccount          = errors.New("no account is associated with this email")
	ErrInvalidResponse    = errors.New("auth response carries no token")
)

// Landing routes.
const (
	RouteLogin           = "/auth/login"
	RouteWaitingApproval = "/auth/waiting-approval"
	RouteAdminDashboard  = "/admin/dashboard"
	RouteUserDashboard   = "/user/dashboard"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SessionStore is the part of the session holder the auth service drives.
type SessionStore interface {
	Establish(ctx context.Context, token string, user sessiondomain.User) error
	Clear(ctx context.Context) error
}

// NewUserNotifier tells administrators that an account was registered.
type NewUserNotifier interface {
	NotifyNewUser(ctx context.Context, id int64, username, email string) error
}

// Credentials is the login form.
type Credentials struct {
	Email      string
	Password   string
	RememberMe bool
}

// Registration is the sign-up form.
type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// RegisterResult reports whether registration also signed the user in.
type RegisterResult struct {
	User      sessiondomain.User
	SignedIn  bool
	NextRoute string
}

// AuthService implements login, registration, logout and password recovery.
type AuthService struct {
	repo     repository.Repository
	sessions SessionStore
	notifier NewUserNotifier
}

// NewAuthService returns an AuthService. notifier may be nil.
func NewAuthService(repo repository.Repository, sessions SessionStore, notifier NewUserNotifier) *AuthService {
	return &AuthService{repo: repo, sessions: sessions, notifier: notifier}
}

// Login validates the form, authenticates and establishes the session.
func (s *AuthService) Login(ctx context.Context, c Credentials) (*sessiondomain.Session, error) {
	email := strings.TrimSpace(c.Email)
	if email == "" || c.Password == "" {
		return nil, ErrEmptyField
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	res, err := s.repo.Login(ctx, email, c.Password, c.RememberMe)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return s.establish(ctx, res)
}

// GoogleLogin exchanges a Google ID token for a session.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken, email, name string) (*sessiondomain.Session, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrEmptyField
	}
	res, err := s.repo.Google(ctx, idToken, email, name)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, res)
}

func (s *AuthService) establish(ctx context.Context, res *repository.AuthResponse) (*sessiondomain.Session, error) {
	if res == nil || strings.TrimSpace(res.Token) == "" {
		return nil, ErrInvalidResponse
	}
	if err := s.sessions.Establish(ctx, res.Token, res.User); err != nil {
		return nil, fmt.Errorf("auth: establish session: %w", err)
	}
	return &sessiondomain.Session{Token: res.Token, User: res.User}, nil
}

// Register validates the form and creates the account. Administrators are notified best-effort.
// A reply with a token signs the user in; otherwise the next route is the login page.
func (s *AuthService) Register(ctx context.Context, r Registration) (*RegisterResult, error) {
	if err := validateRegistration(r); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(r.Username)
	email := strings.TrimSpace(r.Email)
	res, err := s.repo.Register(ctx, username, email, r.Password)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if nerr := s.notifier.NotifyNewUser(ctx, res.User.ID, username, email); nerr != nil {
			log.Printf("auth: new-user notification failed: %v", nerr)
		}
	}

	out := &RegisterResult{User: res.User, NextRoute: RouteLogin}
	if out.User.Username == "" {
		out.User.Username = username
	}
	if out.User.Email == "" {
		out.User.Email = email
	}
	if strings.TrimSpace(res.Token) != "" {
		if err := s.sessions.Establish(ctx, res.Token, out.User); err != nil {
			return nil, fmt.Errorf("auth: establish session: %w", err)
		}
		out.SignedIn = true
		out.NextRoute = LandingRoute(out.User)
	}
	return out, nil
}

// ForgotPassword requests a reset mail. ErrNoAccount when the backend knows no such email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyField
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := s.repo.ForgotPassword(ctx, email); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return ErrNoAccount
		}
		return err
	}
	return nil
}

// ValidateResetToken reports whether a reset link is still usable.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, ErrEmptyField
	}
	return s.repo.ValidateResetToken(ctx, token)
}

// ResetPassword validates the new password pair and submits it.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if strings.TrimSpace(token) == "" || password == "" || confirm == "" {
		return ErrEmptyField
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return s.repo.ResetPassword(ctx, token, password)
}

// Logout clears the local session. There is no server-side logout endpoint.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// LandingRoute is where a freshly signed-in user is sent.
func LandingRoute(u sessiondomain.User) string {
	if u.Empty() {
		return RouteLogin
	}
	if rbac.RoleAdmin.Is(u.Role) {
		return RouteAdminDashboard
	}
	if !u.IsEnabled() {
		return RouteWaitingApproval
	}
	return RouteUserDashboard
}

func validateRegistration(r Registration) error {
	username := strings.TrimSpace(r.Username)
	email := strings.TrimSpace(r.Email)
	if username == "" || email == "" || r.Password == "" || r.ConfirmPassword == "" {
		return ErrEmptyField
	}
	if len([]rune(username)) < minUsernameLen {
		return ErrUsernameTooShort
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(r.Password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
