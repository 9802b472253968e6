package repository

import (
	"context"

	"envmonitor/console/internal/sensor/domain"
)

// Repository is the /capteurs REST surface.
type Repository interface {
	List(ctx context.Context) ([]domain.Sensor, error)
	Current(ctx context.Context) ([]domain.Sensor, error)
	Get(ctx context.Context, id int64) (*domain.Sensor, error)
	Create(ctx context.Context, s domain.Sensor) (*domain.Sensor, error)
	Update(ctx context.Context, s domain.Sensor) (*domain.Sensor, error)
	Delete(ctx context.Context, id int64) error
	GenerateData(ctx context.Context, id int64) error
	// History returns the raw JSON text of the maintenance log.
	History(ctx context.Context, id int64) (string, error)
	SaveHistory(ctx context.Context, id int64, history string) error
}
