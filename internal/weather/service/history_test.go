package service

import (
	"context"
	"testing"
	"time"

	"envmonitor/console/internal/storage"
	"envmonitor/console/internal/weather/domain"
)

func TestComparisonLog_Cities(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := NewComparisonLog(store)

	cities, err := c.Cities(ctx)
	if err != nil || len(cities) != 0 {
		t.Fatalf("Cities = %v, %v, want empty", cities, err)
	}
	_, _ = c.AddCity(ctx, "Rabat")
	_, _ = c.AddCity(ctx, "Casablanca")
	got, err := c.AddCity(ctx, "RABAT")
	if err != nil {
		t.Fatalf("AddCity: %v", err)
	}
	if len(got) != 2 || got[0] != "RABAT" {
		t.Errorf("AddCity = %v, want [RABAT Casablanca]", got)
	}

	raw, ok, _ := store.Get(ctx, storage.KeyWeatherComparisons)
	if !ok || raw != `["RABAT","Casablanca"]` {
		t.Errorf("stored = %q", raw)
	}
}

func TestComparisonLog_Record(t *testing.T) {
	ctx := context.Background()
	c := NewComparisonLog(storage.NewMemoryStore())
	fixed := time.Date(2024, 8, 2, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	e, err := c.Record(ctx, "Agadir",
		domain.ProviderReading{Temperature: 26, Description: "soleil"},
		domain.ProviderReading{Temperature: 26, Description: "sunny"},
	)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !e.Date.Equal(fixed) || e.Accuracy.OpenWeather != 100 {
		t.Errorf("entry = %+v", e)
	}
	_, _ = c.Record(ctx, "Agadir",
		domain.ProviderReading{Temperature: 30},
		domain.ProviderReading{Temperature: 20},
	)

	entries, err := c.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Accuracy.OpenWeather != 20 {
		t.Errorf("entries = %+v, want newest (20) first", entries)
	}
	ow, wa, err := c.Averages(ctx)
	if err != nil {
		t.Fatalf("Averages: %v", err)
	}
	if ow != 60 || wa != 60 {
		t.Errorf("Averages = %v/%v, want 60/60", ow, wa)
	}
}
