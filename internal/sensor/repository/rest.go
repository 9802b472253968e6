package repository

import (
	"context"
	"errors"
	"strconv"

	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/sensor/domain"
)

// RESTRepository implements Repository against /capteurs.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

func sensorPath(id int64, suffix string) string {
	return "/capteurs/" + strconv.FormatInt(id, 10) + suffix
}

// List returns every sensor.
func (r *RESTRepository) List(ctx context.Context) ([]domain.Sensor, error) {
	var out []domain.Sensor
	if err := r.client.GetJSON(ctx, "/capteurs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Current returns sensors with their latest values.
func (r *RESTRepository) Current(ctx context.Context) ([]domain.Sensor, error) {
	var out []domain.Sensor
	if err := r.client.GetJSON(ctx, "/capteurs/current", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one sensor, or nil, nil when it does not exist.
func (r *RESTRepository) Get(ctx context.Context, id int64) (*domain.Sensor, error) {
	var out domain.Sensor
	if err := r.client.GetJSON(ctx, sensorPath(id, ""), nil, &out); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// Create posts s. Free-text locations are sent with the TEXT: prefix.
func (r *RESTRepository) Create(ctx context.Context, s domain.Sensor) (*domain.Sensor, error) {
	s.Location = domain.ParseLocation(s.Location).ForCreate()
	var out domain.Sensor
	if err := r.client.PostJSON(ctx, "/capteurs", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update saves s via PUT /capteurs/:id.
func (r *RESTRepository) Update(ctx context.Context, s domain.Sensor) (*domain.Sensor, error) {
	var out domain.Sensor
	if err := r.client.PutJSON(ctx, sensorPath(s.ID, ""), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a sensor.
func (r *RESTRepository) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, sensorPath(id, ""), nil, nil)
}

// GenerateData asks the backend to simulate readings for a sensor.
func (r *RESTRepository) GenerateData(ctx context.Context, id int64) error {
	return r.client.PostJSON(ctx, sensorPath(id, "/generate-data"), struct{}{}, nil)
}

// History returns the history endpoint body as text.
func (r *RESTRepository) History(ctx context.Context, id int64) (string, error) {
	return r.client.GetText(ctx, sensorPath(id, "/history"), nil)
}

// SaveHistory replaces the maintenance log with the JSON text history.
func (r *RESTRepository) SaveHistory(ctx context.Context, id int64, history string) error {
	return r.client.PutJSON(ctx, sensorPath(id, "/history"), map[string]string{"history": history}, nil)
}
