// Package repository reads weather data through the backend REST API.
package repository

import (
	"context"
	"encoding/json"

	"envmonitor/console/internal/weather/domain"
)

// Repository is the weather source.
type Repository interface {
	City(ctx context.Context, city string) (*domain.Report, error)
	Coordinates(ctx context.Context, lat, lon float64) (*domain.Report, error)
	Search(ctx context.Context, query string) ([]domain.Location, error)
	// Forecast returns the provider payload as is; its shape depends on the backend provider.
	Forecast(ctx context.Context, city string, days int) (json.RawMessage, error)
}
