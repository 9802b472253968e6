// seed fills the local store with sample weather comparison history for development.
// Idempotent: does nothing when the comparison log already has entries.
package main

import (
	"context"
	"errors"
	"log"

	"envmonitor/console/internal/config"
	"envmonitor/console/internal/db"
	"envmonitor/console/internal/db/migrate"
	"envmonitor/console/internal/storage"
	"envmonitor/console/internal/weather/domain"
	"envmonitor/console/internal/weather/service"
)

type sample struct {
	city        string
	openWeather domain.ProviderReading
	weatherAPI  domain.ProviderReading
}

var samples = []sample{
	{"El Jadida", domain.ProviderReading{Temperature: 21.4, Description: "ciel dégagé"}, domain.ProviderReading{Temperature: 22.1, Description: "ensoleillé"}},
	{"Casablanca", domain.ProviderReading{Temperature: 19.8, Description: "peu nuageux"}, domain.ProviderReading{Temperature: 18.9, Description: "partiellement nuageux"}},
	{"Marrakech", domain.ProviderReading{Temperature: 27.0, Description: "ciel dégagé"}, domain.ProviderReading{Temperature: 28.3, Description: "ensoleillé"}},
	{"Rabat", domain.ProviderReading{Temperature: 18.2, Description: "brume"}, domain.ProviderReading{Temperature: 17.5, Description: "brouillard"}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := migrate.Run(cfg.StoreDSN, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}
	gdb, err := db.OpenGorm(cfg.StoreDSN, false)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	history := service.NewComparisonLog(storage.NewGormStore(gdb))

	entries, err := history.Entries(ctx)
	if err != nil {
		log.Fatalf("read comparison log: %v", err)
	}
	if len(entries) > 0 {
		log.Printf("seed: comparison log already has %d entries, skipping", len(entries))
		return
	}
	for _, s := range samples {
		if _, err := history.AddCity(ctx, s.city); err != nil {
			log.Fatalf("add city %s: %v", s.city, err)
		}
		if _, err := history.Record(ctx, s.city, s.openWeather, s.weatherAPI); err != nil {
			log.Fatalf("record %s: %v", s.city, err)
		}
	}
	ow, wa, err := history.Averages(ctx)
	if err != nil {
		log.Fatalf("averages: %v", err)
	}
	log.Printf("seed: %d comparisons recorded (OpenWeather %.1f%%, WeatherAPI %.1f%%)", len(samples), ow, wa)
}
