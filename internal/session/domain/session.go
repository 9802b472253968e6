// Package domain holds the signed-in session and its cached user profile.
package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmptyToken = errors.New("session token is empty")
	ErrNoUser     = errors.New("session user is missing")
)

// User is the cached profile of the signed-in account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	// Enabled is nil when the backend did not report it.
	Enabled *bool `json:"enabled,omitempty"`
}

// Empty reports whether the profile carries no identity.
func (u User) Empty() bool {
	return u.ID == 0 && strings.TrimSpace(u.Username) == "" && strings.TrimSpace(u.Email) == ""
}

// IsEnabled treats a missing flag as enabled.
func (u User) IsEnabled() bool {
	return u.Enabled == nil || *u.Enabled
}

// DisplayName prefers the username and falls back to the email.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Session is a bearer token and its user.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Validate enforces that a token always comes with a user.
func (s Session) Validate() error {
	if strings.TrimSpace(s.Token) == "" {
		return ErrEmptyToken
	}
	if s.User.Empty() {
		return ErrNoUser
	}
	return nil
}
