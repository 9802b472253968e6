package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/weather/domain"
)

type mockRepo struct {
	report *domain.Report
	err    error
	cities []string
}

func (m *mockRepo) City(ctx context.Context, city string) (*domain.Report, error) {
	m.cities = append(m.cities, city)
	return m.report, m.err
}

func (m *mockRepo) Coordinates(ctx context.Context, lat, lon float64) (*domain.Report, error) {
	return m.report, m.err
}

func (m *mockRepo) Search(ctx context.Context, query string) ([]domain.Location, error) {
	return []domain.Location{{Name: query}}, m.err
}

func (m *mockRepo) Forecast(ctx context.Context, city string, days int) (json.RawMessage, error) {
	return json.RawMessage(`{}`), m.err
}

func TestCity_Converts(t *testing.T) {
	repo := &mockRepo{report: &domain.Report{Current: &domain.Current{Temp: 18.7, Wind: &domain.Wind{Speed: 10, Deg: 90}}}}
	l := NewLookup(repo)
	d, err := l.City(context.Background(), "  Rabat ")
	if err != nil {
		t.Fatalf("City: %v", err)
	}
	if repo.cities[0] != "Rabat" {
		t.Errorf("requested city = %q, want trimmed", repo.cities[0])
	}
	if d.Name != "Rabat" || d.Current.Temp != 19 || d.Wind.Speed != 36 || d.Wind.Direction != "Est" {
		t.Errorf("Detailed = %+v", d)
	}
	if l.Current() != d {
		t.Error("Current should cache the last report")
	}
}

func TestCity_Errors(t *testing.T) {
	l := NewLookup(&mockRepo{})
	if _, err := l.City(context.Background(), " "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("blank city err = %v, want ErrEmptyQuery", err)
	}

	notFound := &api.Error{Status: 404, Kind: api.KindNotFound}
	l = NewLookup(&mockRepo{err: notFound})
	_, err := l.City(context.Background(), "Atlantis")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LookupError", err)
	}
	if le.Status != 404 || le.Message != "Localisation non trouvée. Vérifiez le nom de la ville." {
		t.Errorf("LookupError = %+v", le)
	}
	if !errors.Is(err, api.ErrNotFound) {
		t.Error("LookupError should unwrap to api.ErrNotFound")
	}
	if l.Err() == nil {
		t.Error("Err should be set")
	}

	l = NewLookup(&mockRepo{report: &domain.Report{}})
	if _, err := l.City(context.Background(), "Empty"); !errors.Is(err, domain.ErrIncomplete) {
		t.Errorf("incomplete err = %v, want ErrIncomplete", err)
	}
}

func TestCoordinates_NamesPosition(t *testing.T) {
	l := NewLookup(&mockRepo{report: &domain.Report{}})
	d, err := l.Coordinates(context.Background(), 33.2541, -8.5061)
	if err != nil {
		t.Fatalf("Coordinates: %v", err)
	}
	if d.Name != "Position (33.25, -8.51)" {
		t.Errorf("Name = %q", d.Name)
	}
	if d.Coord.Lat != 33.2541 || d.Current.Condition != domain.Unknown {
		t.Errorf("Detailed = %+v", d)
	}
}

func TestBasic_FallsBack(t *testing.T) {
	l := NewLookup(&mockRepo{err: errors.New("offline")})
	b := l.Basic(context.Background(), 1, 2)
	if !b.Fallback || b.Condition != domain.Unknown || b.Visibility != domain.DefaultVisibilityKm {
		t.Errorf("Basic = %+v, want fallback", b)
	}
	l = NewLookup(&mockRepo{report: &domain.Report{Current: &domain.Current{Temp: 30}}})
	if b := l.Basic(context.Background(), 1, 2); b.Fallback || b.Temperature != 30 {
		t.Errorf("Basic = %+v", b)
	}
}

func TestSearchAndForecast_RejectBlank(t *testing.T) {
	l := NewLookup(&mockRepo{})
	if _, err := l.Search(context.Background(), ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Search err = %v", err)
	}
	if _, err := l.Forecast(context.Background(), "", 3); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Forecast err = %v", err)
	}
	locs, err := l.Search(context.Background(), "Casa")
	if err != nil || len(locs) != 1 {
		t.Errorf("Search = %v, %v", locs, err)
	}
}
