package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestForecastAccuracy(t *testing.T) {
	testCases := []struct {
		forecast, actual float64
		want             int
	}{
		{20, 20, 100},
		{20, 21, 100},
		{20, 21.5, 80},
		{20, 23, 60},
		{24, 20, 40},
		{20, 25, 20},
		{20, 25.1, 0},
	}
	for _, tc := range testCases {
		if got := ForecastAccuracy(tc.forecast, tc.actual); got != tc.want {
			t.Errorf("ForecastAccuracy(%v, %v) = %d, want %d", tc.forecast, tc.actual, got, tc.want)
		}
	}
}

func TestNewHistoricalComparison(t *testing.T) {
	at := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	e := NewHistoricalComparison("Rabat",
		at,
		ProviderReading{Temperature: 24, Description: "soleil"},
		ProviderReading{Temperature: 20, Description: "sunny"},
	)
	if e.Actual.Temperature != 22 || e.Actual.Description != "soleil" {
		t.Errorf("Actual = %+v, want 22 soleil", e.Actual)
	}
	if e.Accuracy.OpenWeather != 80 || e.Accuracy.WeatherAPI != 80 {
		t.Errorf("Accuracy = %+v, want 80/80", e.Accuracy)
	}
}

func TestAverageAccuracy(t *testing.T) {
	ow, wa := AverageAccuracy(nil)
	if ow != 0 || wa != 0 {
		t.Errorf("empty average = %v/%v, want 0/0", ow, wa)
	}
	entries := []HistoricalComparison{
		{Accuracy: Accuracy{OpenWeather: 100, WeatherAPI: 60}},
		{Accuracy: Accuracy{OpenWeather: 80, WeatherAPI: 20}},
	}
	ow, wa = AverageAccuracy(entries)
	if ow != 90 || wa != 40 {
		t.Errorf("average = %v/%v, want 90/40", ow, wa)
	}
}

func TestPushHistory(t *testing.T) {
	h := PushHistory(nil, "Rabat")
	h = PushHistory(h, "Agadir")
	h = PushHistory(h, "rabat")
	if len(h) != 2 || h[0] != "rabat" || h[1] != "Agadir" {
		t.Errorf("history = %v, want [rabat Agadir]", h)
	}
	if got := PushHistory(h, "  "); len(got) != 2 {
		t.Errorf("blank city changed history: %v", got)
	}
	for i := 0; i < 15; i++ {
		h = PushHistory(h, fmt.Sprintf("city-%d", i))
	}
	if len(h) != MaxComparisonHistory || h[0] != "city-14" {
		t.Errorf("history = %v, want %d entries newest first", h, MaxComparisonHistory)
	}
}

func TestPushHistorical_Caps(t *testing.T) {
	var entries []HistoricalComparison
	for i := 0; i < MaxHistoricalEntries+5; i++ {
		entries = PushHistorical(entries, HistoricalComparison{City: fmt.Sprint(i)})
	}
	if len(entries) != MaxHistoricalEntries {
		t.Fatalf("len = %d, want %d", len(entries), MaxHistoricalEntries)
	}
	if entries[0].City != fmt.Sprint(MaxHistoricalEntries+4) {
		t.Errorf("newest = %q", entries[0].City)
	}
}
