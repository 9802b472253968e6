package service

import (
	"context"
	"sync"
	"time"

	"envmonitor/console/internal/storage"
	"envmonitor/console/internal/weather/domain"
)

// ComparisonLog persists the recent comparison cities and the provider accuracy log.
type ComparisonLog struct {
	store storage.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewComparisonLog returns a log backed by store.
func NewComparisonLog(store storage.Store) *ComparisonLog {
	return &ComparisonLog{store: store, now: time.Now}
}

// Cities returns the recent comparison cities, newest first.
func (c *ComparisonLog) Cities(ctx context.Context) ([]string, error) {
	var out []string
	if _, err := storage.GetJSON(ctx, c.store, storage.KeyWeatherComparisons, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddCity moves city to the front of the recent list and persists it.
func (c *ComparisonLog) AddCity(ctx context.Context, city string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cities, err := c.Cities(ctx)
	if err != nil {
		return nil, err
	}
	cities = domain.PushHistory(cities, city)
	if err := storage.SetJSON(ctx, c.store, storage.KeyWeatherComparisons, cities); err != nil {
		return nil, err
	}
	return cities, nil
}

// Entries returns the accuracy log, newest first.
func (c *ComparisonLog) Entries(ctx context.Context) ([]domain.HistoricalComparison, error) {
	var out []domain.HistoricalComparison
	if _, err := storage.GetJSON(ctx, c.store, storage.KeyWeatherHistoricalData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Record scores both provider readings for city, prepends the entry and persists the log.
func (c *ComparisonLog) Record(ctx context.Context, city string, openWeather, weatherAPI domain.ProviderReading) (domain.HistoricalComparison, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.Entries(ctx)
	if err != nil {
		return domain.HistoricalComparison{}, err
	}
	e := domain.NewHistoricalComparison(city, c.now(), openWeather, weatherAPI)
	entries = domain.PushHistorical(entries, e)
	if err := storage.SetJSON(ctx, c.store, storage.KeyWeatherHistoricalData, entries); err != nil {
		return domain.HistoricalComparison{}, err
	}
	return e, nil
}

// Averages returns each provider's mean accuracy over the log.
func (c *ComparisonLog) Averages(ctx context.Context) (openWeather, weatherAPI float64, err error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return 0, 0, err
	}
	openWeather, weatherAPI = domain.AverageAccuracy(entries)
	return openWeather, weatherAPI, nil
}
