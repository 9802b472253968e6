package repository

import (
	"context"

	"envmonitor/console/internal/airquality/domain"
	"envmonitor/console/internal/platform/api"
)

// RESTRepository implements Repository over the REST API.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

// Current returns the latest reading from GET /airquality/current.
func (r *RESTRepository) Current(ctx context.Context) (domain.Reading, error) {
	var out domain.Reading
	if err := r.client.GetJSON(ctx, "/airquality/current", nil, &out); err != nil {
		return domain.Reading{}, err
	}
	return out, nil
}
