package domain

import (
	"errors"
	"strings"
	"time"

	"envmonitor/console/internal/platform/rbac"
)

// User is an account as seen by the administration screens.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    UserStatus `json:"status"`
	Enabled   *bool      `json:"enabled,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type UserStatus string

const (
	UserStatusPending  UserStatus = "PENDING"
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusRejected UserStatus = "REJECTED"
	UserStatusInactive UserStatus = "INACTIVE"
)

// Statuses lists every known status.
var Statuses = []UserStatus{UserStatusPending, UserStatusActive, UserStatusRejected, UserStatusInactive}

type statusInfo struct {
	label string
	class string
}

var statusTable = map[UserStatus]statusInfo{
	UserStatusActive:   {"Actif", "bg-green-100 text-green-800"},
	UserStatusPending:  {"En attente", "bg-amber-100 text-amber-800"},
	UserStatusRejected: {"Désactivé", "bg-red-100 text-red-800"},
	UserStatusInactive: {"Désactivé", "bg-red-100 text-red-800"},
}

// Label is the French display text; an unknown status shows as itself, an empty one as "Inconnu".
func (s UserStatus) Label() string {
	if info, ok := statusTable[s]; ok {
		return info.label
	}
	if s == "" {
		return "Inconnu"
	}
	return string(s)
}

// BadgeClass is the css class of the status badge.
func (s UserStatus) BadgeClass() string {
	if info, ok := statusTable[s]; ok {
		return info.class
	}
	return "bg-gray-100 text-gray-800"
}

// Disabled reports REJECTED or INACTIVE.
func (s UserStatus) Disabled() bool {
	return s == UserStatusRejected || s == UserStatusInactive
}

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

// IsActive derives the enabled flag from the status.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// RoleLabel renders the role for display.
func (u *User) RoleLabel() string {
	return rbac.Role(strings.ToUpper(u.Role)).Label()
}

// Validate validates the user for create/update. Returns an error describing the first failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = string(rbac.RoleUser)
	}
	if _, ok := rbac.ParseRole(u.Role); !ok {
		return errors.New("unknown role " + u.Role)
	}
	if u.Status == "" {
		u.Status = UserStatusPending
	}
	return nil
}

// StatusFilter selects users by status group.
type StatusFilter string

const (
	StatusFilterAll      StatusFilter = "all"
	StatusFilterPending  StatusFilter = "pending"
	StatusFilterActive   StatusFilter = "active"
	StatusFilterInactive StatusFilter = "inactive"
)

// SearchField restricts the free-text search.
type SearchField string

const (
	SearchAll      SearchField = "all"
	SearchUsername SearchField = "username"
	SearchEmail    SearchField = "email"
)

// Filter is the user list predicate. The zero value matches everything.
type Filter struct {
	Status StatusFilter
	Term   string
	Field  SearchField
}

// Match applies the status group then the case-insensitive substring search.
func (f Filter) Match(u User) bool {
	switch f.Status {
	case StatusFilterPending:
		if u.Status != UserStatusPending {
			return false
		}
	case StatusFilterActive:
		if u.Status != UserStatusActive {
			return false
		}
	case StatusFilterInactive:
		if !u.Status.Disabled() {
			return false
		}
	}
	term := strings.ToLower(strings.TrimSpace(f.Term))
	if term == "" {
		return true
	}
	username := strings.Contains(strings.ToLower(u.Username), term)
	email := strings.Contains(strings.ToLower(u.Email), term)
	switch f.Field {
	case SearchUsername:
		return username
	case SearchEmail:
		return email
	default:
		return username || email
	}
}

// IsPendingApproval reports a self-registered user waiting for an administrator.
func (u *User) IsPendingApproval() bool {
	return u.Status == UserStatusPending && rbac.RoleUser.Is(u.Role)
}
