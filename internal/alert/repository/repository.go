// Package repository provides alert data access over the backend REST API.
package repository

import (
	"context"

	"envmonitor/console/internal/alert/domain"
)

// Repository is the alert data access interface.
type Repository interface {
	List(ctx context.Context) ([]domain.Alert, error)
	Get(ctx context.Context, id int64) (*domain.Alert, error)
	Create(ctx context.Context, a domain.Alert) (*domain.Alert, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	Recalculate(ctx context.Context) error
	Thresholds(ctx context.Context) ([]domain.Threshold, error)
	UpdateThreshold(ctx context.Context, t domain.Threshold) (*domain.Threshold, error)
}
