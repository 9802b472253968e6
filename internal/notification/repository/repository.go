// Package repository reads and mutates notifications through the backend REST API.
package repository

import (
	"context"

	"envmonitor/console/internal/notification/domain"
	"envmonitor/console/internal/platform/paging"
)

// Repository is the notification store.
type Repository interface {
	// List returns one zero-based server page.
	List(ctx context.Context, page, size int) (*paging.Page[domain.Notification], error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
	Preferences(ctx context.Context) (*domain.Preferences, error)
	UpdatePreferences(ctx context.Context, p domain.Preferences) (*domain.Preferences, error)
	// Create posts n to one of the creation endpoints (new-user, threshold-alert).
	Create(ctx context.Context, endpoint string, n domain.Notification) (*domain.Notification, error)
	ApproveUser(ctx context.Context, userID int64) error
	RejectUser(ctx context.Context, userID int64) error
}
