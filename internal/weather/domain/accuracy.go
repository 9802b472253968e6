package domain

import (
	"math"
	"strings"
	"time"
)

// Providers compared by the accuracy log.
const (
	ProviderOpenWeather = "openWeather"
	ProviderWeatherAPI  = "weatherApi"
)

// MaxComparisonHistory bounds the recent-city list.
const MaxComparisonHistory = 10

// MaxHistoricalEntries bounds the accuracy log.
const MaxHistoricalEntries = 100

// ProviderReading is one provider's temperature and description.
type ProviderReading struct {
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
}

// Accuracy is a 0-100 score per provider.
type Accuracy struct {
	OpenWeather int `json:"openWeather"`
	WeatherAPI  int `json:"weatherApi"`
}

// HistoricalComparison is one entry of the accuracy log.
type HistoricalComparison struct {
	City         string          `json:"city"`
	Date         time.Time       `json:"date"`
	ForecastDate time.Time       `json:"forecastDate"`
	OpenWeather  ProviderReading `json:"openWeather"`
	WeatherAPI   ProviderReading `json:"weatherApi"`
	Actual       ProviderReading `json:"actual"`
	Accuracy     Accuracy        `json:"accuracy"`
}

// NewHistoricalComparison scores both providers against their mean temperature.
func NewHistoricalComparison(city string, at time.Time, ow, wa ProviderReading) HistoricalComparison {
	actual := ProviderReading{
		Temperature: (ow.Temperature + wa.Temperature) / 2,
		Description: ow.Description,
	}
	return HistoricalComparison{
		City:         city,
		Date:         at,
		ForecastDate: at,
		OpenWeather:  ow,
		WeatherAPI:   wa,
		Actual:       actual,
		Accuracy: Accuracy{
			OpenWeather: ForecastAccuracy(ow.Temperature, actual.Temperature),
			WeatherAPI:  ForecastAccuracy(wa.Temperature, actual.Temperature),
		},
	}
}

// ForecastAccuracy scores the absolute difference between a forecast and the observed value.
func ForecastAccuracy(forecast, actual float64) int {
	diff := math.Abs(forecast - actual)
	switch {
	case diff <= 1:
		return 100
	case diff <= 2:
		return 80
	case diff <= 3:
		return 60
	case diff <= 4:
		return 40
	case diff <= 5:
		return 20
	default:
		return 0
	}
}

// AverageAccuracy averages each provider's score over entries. Empty input yields zeros.
func AverageAccuracy(entries []HistoricalComparison) (openWeather, weatherAPI float64) {
	if len(entries) == 0 {
		return 0, 0
	}
	var ow, wa int
	for _, e := range entries {
		ow += e.Accuracy.OpenWeather
		wa += e.Accuracy.WeatherAPI
	}
	n := float64(len(entries))
	return float64(ow) / n, float64(wa) / n
}

// PushHistory moves city to the front of history, dropping case-insensitive duplicates and
// keeping at most MaxComparisonHistory entries. Blank cities leave history unchanged.
func PushHistory(history []string, city string) []string {
	city = strings.TrimSpace(city)
	if city == "" {
		return history
	}
	out := make([]string, 0, len(history)+1)
	out = append(out, city)
	for _, c := range history {
		if !strings.EqualFold(c, city) {
			out = append(out, c)
		}
	}
	if len(out) > MaxComparisonHistory {
		out = out[:MaxComparisonHistory]
	}
	return out
}

// PushHistorical prepends e, keeping at most MaxHistoricalEntries.
func PushHistorical(entries []HistoricalComparison, e HistoricalComparison) []HistoricalComparison {
	out := append([]HistoricalComparison{e}, entries...)
	if len(out) > MaxHistoricalEntries {
		out = out[:MaxHistoricalEntries]
	}
	return out
}
