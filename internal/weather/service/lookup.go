// Package service holds the weather lookup view-model and the locally persisted comparison
// history and accuracy log.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/platform/generation"
	"envmonitor/console/internal/weather/domain"
	"envmonitor/console/internal/weather/repository"
)

// ErrEmptyQuery is returned when a city or search term is blank.
var ErrEmptyQuery = errors.New("weather: empty query")

// DefaultForecastDays is used when Forecast gets a non-positive day count.
const DefaultForecastDays = 5

// LookupError carries the user-facing message of a failed weather call.
type LookupError struct {
	Status  int
	Message string
	Err     error
}

func (e *LookupError) Error() string { return e.Message }

func (e *LookupError) Unwrap() error { return e.Err }

func lookupErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	status := api.StatusOf(err)
	return &LookupError{Status: status, Message: domain.StatusMessage(status), Err: err}
}

// Lookup is the weather view-model: the last detailed report of a city and lookups by position.
type Lookup struct {
	repo repository.Repository
	gen  generation.Counter

	mu      sync.Mutex
	current *domain.Detailed
	err     error
}

// NewLookup returns an empty lookup.
func NewLookup(repo repository.Repository) *Lookup {
	return &Lookup{repo: repo}
}

// City fetches and converts the report of city. Only the latest call updates the cached view.
func (l *Lookup) City(ctx context.Context, city string) (*domain.Detailed, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrEmptyQuery
	}
	token := l.gen.Next()
	rep, err := l.repo.City(ctx, city)
	var d *domain.Detailed
	if err != nil {
		err = lookupErr(err)
	} else {
		d, err = rep.Detailed()
	}
	if d != nil && d.Name == "" {
		d.Name = city
	}
	if !l.gen.Current(token) {
		return d, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		log.Printf("weather: city %q: %v", city, err)
		l.err = err
		return nil, err
	}
	l.err = nil
	l.current = d
	return d, nil
}

// Coordinates fetches the detailed report of a position. A report without a name is labelled
// with the rounded coordinates.
func (l *Lookup) Coordinates(ctx context.Context, lat, lon float64) (*domain.Detailed, error) {
	rep, err := l.repo.Coordinates(ctx, lat, lon)
	if err != nil {
		return nil, lookupErr(err)
	}
	if rep.Current == nil {
		rep.Current = &domain.Current{}
	}
	d, err := rep.Detailed()
	if err != nil {
		return nil, err
	}
	if d.Name == "" {
		d.Name = fmt.Sprintf("Position (%.2f, %.2f)", lat, lon)
	}
	if d.Country == "" {
		d.Country = "MA"
	}
	d.Coord = domain.Coord{Lat: lat, Lon: lon}
	return d, nil
}

// Basic returns the compact view of a position. It never fails: errors and empty reports
// yield domain.FallbackBasic.
func (l *Lookup) Basic(ctx context.Context, lat, lon float64) domain.Basic {
	rep, err := l.repo.Coordinates(ctx, lat, lon)
	if err != nil {
		log.Printf("weather: basic %.4f,%.4f, using fallback: %v", lat, lon, err)
		return domain.FallbackBasic()
	}
	return rep.Basic()
}

// Search returns matching locations.
func (l *Lookup) Search(ctx context.Context, query string) ([]domain.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	out, err := l.repo.Search(ctx, query)
	if err != nil {
		return nil, lookupErr(err)
	}
	return out, nil
}

// Forecast returns the raw multi-day forecast of city.
func (l *Lookup) Forecast(ctx context.Context, city string, days int) (json.RawMessage, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrEmptyQuery
	}
	if days <= 0 {
		days = DefaultForecastDays
	}
	out, err := l.repo.Forecast(ctx, city, days)
	if err != nil {
		return nil, lookupErr(err)
	}
	return out, nil
}

// Current returns the last detailed report, or nil.
func (l *Lookup) Current() *domain.Detailed {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Err returns the last failure, or nil.
func (l *Lookup) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
