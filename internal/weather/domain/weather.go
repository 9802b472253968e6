// Package domain holds weather reports as the backend sends them and the display shapes derived
// from them.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// ErrIncomplete is returned when a report has no current conditions.
var ErrIncomplete = errors.New("weather: report has no current conditions")

// Unknown is the condition label used when the backend sends none.
const Unknown = "Inconnu"

const (
	iconBaseURL = "https://openweathermap.org/img/wn/"
	defaultIcon = "01d"
	// DefaultVisibilityKm is reported when the backend omits visibility.
	DefaultVisibilityKm = 10
)

// Condition is a textual weather condition with its icon code.
type Condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Conditions decodes either a single condition object or an array of them.
type Conditions []Condition

// UnmarshalJSON accepts `{...}`, `[{...}]` and null.
func (c *Conditions) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*c = nil
		return nil
	case b[0] == '{':
		var one Condition
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*c = Conditions{one}
		return nil
	default:
		var many []Condition
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*c = many
		return nil
	}
}

// First returns the first condition, or an unknown one.
func (c Conditions) First() Condition {
	if len(c) == 0 {
		return Condition{Description: Unknown, Icon: defaultIcon}
	}
	out := c[0]
	if out.Description == "" {
		out.Description = Unknown
	}
	if out.Icon == "" {
		out.Icon = defaultIcon
	}
	return out
}

// Wind is speed in m/s and direction in degrees.
type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

// Coord is a geographic position.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Sys carries country and sun times (unix seconds).
type Sys struct {
	Country string `json:"country,omitempty"`
	Sunrise int64  `json:"sunrise,omitempty"`
	Sunset  int64  `json:"sunset,omitempty"`
}

// Current is the raw current-conditions block.
type Current struct {
	Temp       float64    `json:"temp"`
	FeelsLike  float64    `json:"feels_like"`
	Humidity   float64    `json:"humidity"`
	Pressure   float64    `json:"pressure"`
	Visibility *float64   `json:"visibility,omitempty"`
	Weather    Conditions `json:"weather,omitempty"`
	Wind       *Wind      `json:"wind,omitempty"`
}

// RawHour is one hourly forecast entry.
type RawHour struct {
	Dt          int64   `json:"dt"`
	Temp        float64 `json:"temp"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Pop         float64 `json:"pop"`
	Wind        *Wind   `json:"wind,omitempty"`
}

// DayTemp holds the daily temperature extremes.
type DayTemp struct {
	Day float64 `json:"day"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RawDay is one daily forecast entry.
type RawDay struct {
	Dt      int64      `json:"dt"`
	Temp    DayTemp    `json:"temp"`
	Weather Conditions `json:"weather,omitempty"`
	Pop     float64    `json:"pop"`
}

// Forecast groups hourly and daily entries.
type Forecast struct {
	Hourly []RawHour `json:"hourly"`
	Daily  []RawDay  `json:"daily"`
}

// Report is the backend weather payload for a city or a position.
type Report struct {
	Name     string    `json:"name,omitempty"`
	Current  *Current  `json:"current,omitempty"`
	Coord    *Coord    `json:"coord,omitempty"`
	Sys      *Sys      `json:"sys,omitempty"`
	Forecast *Forecast `json:"forecast,omitempty"`
}

// DecodeReport parses a raw weather payload, as pushed on the weather topic.
func DecodeReport(raw []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("weather: decode report: %w", err)
	}
	return &r, nil
}

// DetailedCurrent is the rounded current-conditions view.
type DetailedCurrent struct {
	Temp       int     `json:"temp"`
	FeelsLike  int     `json:"feelsLike"`
	Condition  string  `json:"condition"`
	Icon       string  `json:"icon"`
	Humidity   float64 `json:"humidity"`
	Pressure   float64 `json:"pressure"`
	Visibility float64 `json:"visibility"`
}

// Hour is one hourly forecast row. Precipitation is a percentage, wind speed km/h.
type Hour struct {
	Time          time.Time `json:"time"`
	Temp          int       `json:"temp"`
	Condition     string    `json:"condition"`
	Icon          string    `json:"icon"`
	Precipitation int       `json:"precipitation"`
	WindSpeed     int       `json:"windSpeed"`
}

// Day is one daily forecast row.
type Day struct {
	Date          time.Time `json:"date"`
	MaxTemp       int       `json:"maxTemp"`
	MinTemp       int       `json:"minTemp"`
	Condition     string    `json:"condition"`
	Icon          string    `json:"icon"`
	Precipitation int       `json:"precipitation"`
}

// DetailedWind is wind speed in km/h with a compass label.
type DetailedWind struct {
	Speed     int    `json:"speed"`
	Direction string `json:"direction"`
}

// Detailed is the full weather view of a city.
type Detailed struct {
	Name    string          `json:"name,omitempty"`
	Country string          `json:"country,omitempty"`
	Current DetailedCurrent `json:"current"`
	Hourly  []Hour          `json:"hourly"`
	Daily   []Day           `json:"daily"`
	Coord   Coord           `json:"coord"`
	Wind    DetailedWind    `json:"wind"`
	Sunrise int64           `json:"sunrise"`
	Sunset  int64           `json:"sunset"`
}

// Detailed converts r. Returns ErrIncomplete when r has no current block.
func (r *Report) Detailed() (*Detailed, error) {
	if r == nil || r.Current == nil {
		return nil, ErrIncomplete
	}
	cur := r.Current
	cond := cur.Weather.First()
	d := &Detailed{
		Name: r.Name,
		Current: DetailedCurrent{
			Temp:      round(cur.Temp),
			FeelsLike: round(cur.FeelsLike),
			Condition: cond.Description,
			Icon:      IconURL(cond.Icon),
			Humidity:  cur.Humidity,
			Pressure:  cur.Pressure,
		},
		Hourly: []Hour{},
		Daily:  []Day{},
	}
	if cur.Visibility != nil {
		d.Current.Visibility = *cur.Visibility
	}
	if cur.Wind != nil {
		d.Wind = DetailedWind{Speed: KmH(cur.Wind.Speed), Direction: WindDirection(cur.Wind.Deg)}
	} else {
		d.Wind = DetailedWind{Direction: WindDirection(0)}
	}
	if r.Coord != nil {
		d.Coord = *r.Coord
	}
	if r.Sys != nil {
		d.Country = r.Sys.Country
		d.Sunrise = r.Sys.Sunrise
		d.Sunset = r.Sys.Sunset
	}
	if r.Forecast != nil {
		for _, h := range r.Forecast.Hourly {
			d.Hourly = append(d.Hourly, convertHour(h))
		}
		for _, day := range r.Forecast.Daily {
			d.Daily = append(d.Daily, convertDay(day))
		}
	}
	return d, nil
}

func convertHour(h RawHour) Hour {
	out := Hour{
		Time:          time.Unix(h.Dt, 0).UTC(),
		Temp:          round(h.Temp),
		Condition:     h.Description,
		Icon:          IconURL(h.Icon),
		Precipitation: round(h.Pop * 100),
	}
	if out.Condition == "" {
		out.Condition = Unknown
	}
	if h.Wind != nil {
		out.WindSpeed = KmH(h.Wind.Speed)
	}
	return out
}

func convertDay(d RawDay) Day {
	cond := d.Weather.First()
	return Day{
		Date:          time.Unix(d.Dt, 0).UTC(),
		MaxTemp:       round(d.Temp.Max),
		MinTemp:       round(d.Temp.Min),
		Condition:     cond.Description,
		Icon:          IconURL(cond.Icon),
		Precipitation: round(d.Pop * 100),
	}
}

// Basic is the compact weather view of a position.
type Basic struct {
	Temperature   int     `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     int     `json:"windSpeed"`
	WindDirection string  `json:"windDirection"`
	Pressure      float64 `json:"pressure"`
	Visibility    float64 `json:"visibility"`
	Condition     string  `json:"condition"`
	// Fallback is set when no data could be obtained.
	Fallback bool `json:"fallback,omitempty"`
}

// FallbackBasic is the view returned when the backend has nothing to say.
func FallbackBasic() Basic {
	return Basic{
		WindDirection: WindDirection(0),
		Visibility:    DefaultVisibilityKm,
		Condition:     Unknown,
		Fallback:      true,
	}
}

// Basic converts r; a report without current conditions yields FallbackBasic.
func (r *Report) Basic() Basic {
	if r == nil || r.Current == nil {
		return FallbackBasic()
	}
	cur := r.Current
	b := Basic{
		Temperature:   round(cur.Temp),
		Humidity:      cur.Humidity,
		Pressure:      cur.Pressure,
		Visibility:    DefaultVisibilityKm,
		Condition:     Unknown,
		WindDirection: WindDirection(0),
	}
	if cur.Visibility != nil && *cur.Visibility != 0 {
		b.Visibility = *cur.Visibility / 1000
	}
	if cur.Wind != nil {
		b.WindSpeed = KmH(cur.Wind.Speed)
		b.WindDirection = WindDirection(cur.Wind.Deg)
	}
	if len(cur.Weather) > 0 && cur.Weather[0].Description != "" {
		b.Condition = cur.Weather[0].Description
	}
	return b
}

var compass = [8]string{"Nord", "Nord-Est", "Est", "Sud-Est", "Sud", "Sud-Ouest", "Ouest", "Nord-Ouest"}

// WindDirection maps degrees to one of eight French compass points.
func WindDirection(deg float64) string {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return compass[int(math.Round(d/45))%8]
}

// KmH converts m/s to rounded km/h.
func KmH(ms float64) int { return round(ms * 3.6) }

// IconURL returns the OpenWeather icon URL for code.
func IconURL(code string) string {
	if code == "" {
		code = defaultIcon
	}
	return iconBaseURL + code + "@2x.png"
}

// StatusMessage returns the French message shown for a failed weather call.
func StatusMessage(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "Localisation non trouvée. Vérifiez le nom de la ville."
	case status == http.StatusUnauthorized:
		return "Erreur d'authentification. Vérifiez votre clé API."
	case status >= http.StatusInternalServerError:
		return "Erreur serveur. Veuillez réessayer plus tard."
	default:
		return "Une erreur est survenue"
	}
}

// Location is one search result.
type Location struct {
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func round(v float64) int { return int(math.Round(v)) }
