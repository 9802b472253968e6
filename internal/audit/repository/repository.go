package repository

import (
	"context"

	"envmonitor/console/internal/audit/domain"
)

// Repository defines persistence for the audit journal.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	// List returns at most limit entries, newest first.
	List(ctx context.Context, limit int) ([]*domain.Entry, error)
}
