package repository

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/weather/domain"
)

// RESTRepository implements Repository against /weather.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

// City returns the report for a city name.
func (r *RESTRepository) City(ctx context.Context, city string) (*domain.Report, error) {
	var out domain.Report
	if err := r.client.GetJSON(ctx, "/weather/"+url.PathEscape(city), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Coordinates returns the report for a position.
func (r *RESTRepository) Coordinates(ctx context.Context, lat, lon float64) (*domain.Report, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	var out domain.Report
	if err := r.client.GetJSON(ctx, "/weather/coordinates", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns locations matching query.
func (r *RESTRepository) Search(ctx context.Context, query string) ([]domain.Location, error) {
	q := url.Values{}
	q.Set("q", query)
	var out []domain.Location
	if err := r.client.GetJSON(ctx, "/weather/search", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Forecast returns the multi-day forecast of a city.
func (r *RESTRepository) Forecast(ctx context.Context, city string, days int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	var out json.RawMessage
	if err := r.client.GetJSON(ctx, "/weather/forecast/"+url.PathEscape(city), q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
