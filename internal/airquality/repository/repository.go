// Package repository reads air quality from the backend.
package repository

import (
	"context"

	"envmonitor/console/internal/airquality/domain"
)

// Repository is the air-quality data access interface.
type Repository interface {
	Current(ctx context.Context) (domain.Reading, error)
}
