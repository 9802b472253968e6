package repository

import (
	"context"
	"errors"
	"strconv"

	"envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/platform/api"
)

// RESTRepository implements Repository against /alerts.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

func alertPath(id int64) string {
	return "/alerts/" + strconv.FormatInt(id, 10)
}

// List returns all alerts, normalized.
func (r *RESTRepository) List(ctx context.Context) ([]domain.Alert, error) {
	var out []domain.Alert
	if err := r.client.GetJSON(ctx, "/alerts", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}

// Get returns one alert, or nil, nil when it does not exist.
func (r *RESTRepository) Get(ctx context.Context, id int64) (*domain.Alert, error) {
	var out domain.Alert
	if err := r.client.GetJSON(ctx, alertPath(id), nil, &out); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// Create posts a new alert.
func (r *RESTRepository) Create(ctx context.Context, a domain.Alert) (*domain.Alert, error) {
	var out domain.Alert
	if err := r.client.PostJSON(ctx, "/alerts", a, &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// Delete removes one alert.
func (r *RESTRepository) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, alertPath(id), nil, nil)
}

// Clear removes every alert.
func (r *RESTRepository) Clear(ctx context.Context) error {
	return r.client.Delete(ctx, "/alerts/clear", nil, nil)
}

// Recalculate asks the backend to re-evaluate alerts against current thresholds.
func (r *RESTRepository) Recalculate(ctx context.Context) error {
	return r.client.PostJSON(ctx, "/alerts/recalculate", struct{}{}, nil)
}

// Thresholds returns configured thresholds.
func (r *RESTRepository) Thresholds(ctx context.Context) ([]domain.Threshold, error) {
	var out []domain.Threshold
	if err := r.client.GetJSON(ctx, "/alerts/thresholds", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateThreshold saves t via PUT /alerts/thresholds/:id.
func (r *RESTRepository) UpdateThreshold(ctx context.Context, t domain.Threshold) (*domain.Threshold, error) {
	var out domain.Threshold
	if err := r.client.PutJSON(ctx, "/alerts/thresholds/"+strconv.FormatInt(t.ID, 10), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
