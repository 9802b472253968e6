// Package rbac defines the closed set of account roles and the admin gate used by admin screens.
package rbac

import (
	"errors"
	"strings"
)

// Role is an account role as issued by the backend.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

var (
	// ErrUnauthenticated is returned when no session is present.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the session lacks the required role.
	ErrForbidden = errors.New("admin role required")
)

type roleInfo struct {
	label      string
	badgeClass string
}

var roleTable = map[Role]roleInfo{
	RoleAdmin: {label: "Administrateur", badgeClass: "bg-purple-100 text-purple-800"},
	RoleUser:  {label: "Utilisateur", badgeClass: "bg-blue-100 text-blue-800"},
}

// ParseRole folds s to a known role. ok is false for anything else.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := roleTable[r]
	return r, ok
}

// Is reports whether s names this role, case-insensitively.
func (r Role) Is(s string) bool {
	return strings.EqualFold(string(r), strings.TrimSpace(s))
}

// Label returns the display label, or the raw role when unknown.
func (r Role) Label() string {
	if info, ok := roleTable[r]; ok {
		return info.label
	}
	return string(r)
}

// BadgeClass returns the css class for the role badge.
func (r Role) BadgeClass() string {
	if info, ok := roleTable[r]; ok {
		return info.badgeClass
	}
	return "bg-gray-100 text-gray-800"
}

// RoleChecker is the part of the session holder the gate needs.
type RoleChecker interface {
	IsAuthenticated() bool
	HasRole(role Role) bool
}

// RequireAdmin ensures the caller is authenticated and holds the admin role.
// Returns ErrUnauthenticated or ErrForbidden otherwise.
func RequireAdmin(s RoleChecker) error {
	if s == nil || !s.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !s.HasRole(RoleAdmin) {
		return ErrForbidden
	}
	return nil
}
