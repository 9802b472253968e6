// Package domain holds air-quality readings and AQI categories.
package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedReading is returned when a raw broker payload cannot be parsed.
var ErrMalformedReading = errors.New("malformed air quality reading")

// Reading is one air-quality sample. Missing numeric fields decode as zero.
type Reading struct {
	PM25        float64    `json:"pm25"`
	PM10        float64    `json:"pm10"`
	NO2         float64    `json:"no2"`
	O3          float64    `json:"o3"`
	CO          float64    `json:"co"`
	AQI         float64    `json:"aqi"`
	Temperature *float64   `json:"temperature,omitempty"`
	Humidity    *float64   `json:"humidity,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// csvFields is the field order of the raw broker payload.
const csvFields = 6

// ParseCSV decodes the raw broker payload "pm25,pm10,no2,o3,co,aqi".
func ParseCSV(payload string) (Reading, error) {
	parts := strings.Split(strings.TrimSpace(payload), ",")
	if len(parts) != csvFields {
		return Reading{}, fmt.Errorf("%w: want %d values, got %d", ErrMalformedReading, csvFields, len(parts))
	}
	var v [csvFields]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: value %d: %v", ErrMalformedReading, i+1, err)
		}
		v[i] = f
	}
	return Reading{PM25: v[0], PM10: v[1], NO2: v[2], O3: v[3], CO: v[4], AQI: v[5]}, nil
}

// Category returns the French AQI band label.
func Category(aqi float64) string {
	switch {
	case aqi <= 50:
		return "Bon"
	case aqi <= 100:
		return "Modéré"
	case aqi <= 150:
		return "Mauvais pour groupes sensibles"
	case aqi <= 200:
		return "Mauvais"
	case aqi <= 300:
		return "Très mauvais"
	default:
		return "Dangereux"
	}
}

// Trend markers against a previous value.
const (
	TrendUp   = "↑"
	TrendDown = "↓"
)

// Trend compares current with previous.
func Trend(current, previous float64) string {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return ""
	}
}
