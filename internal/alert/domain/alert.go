// Package domain holds alert types and their display tables.
package domain

import (
	"strings"
	"time"
)

// Severity is an alert level.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Type is the alert family.
type Type string

const (
	TypeAir     Type = "air"
	TypeWeather Type = "weather"
)

// Parameter is a monitored quantity.
type Parameter string

const (
	ParamPM25        Parameter = "pm25"
	ParamPM10        Parameter = "pm10"
	ParamNO2         Parameter = "no2"
	ParamO3          Parameter = "o3"
	ParamCO          Parameter = "co"
	ParamAQI         Parameter = "aqi"
	ParamTemperature Parameter = "temperature"
	ParamHumidity    Parameter = "humidity"
	ParamWind        Parameter = "wind"
)

// Parameters lists every monitored parameter in display order.
var Parameters = []Parameter{
	ParamTemperature, ParamHumidity, ParamPM25, ParamPM10, ParamNO2, ParamO3, ParamCO, ParamWind, ParamAQI,
}

var parameterLabels = map[Parameter]string{
	ParamTemperature: "Température (°C)",
	ParamHumidity:    "Humidité (%)",
	ParamPM25:        "PM2.5 (µg/m³)",
	ParamPM10:        "PM10 (µg/m³)",
	ParamNO2:         "NO₂ (ppb)",
	ParamO3:          "O₃ (ppb)",
	ParamCO:          "CO (ppm)",
	ParamWind:        "Vent (km/h)",
	ParamAQI:         "Indice Qualité Air",
}

// Valid reports whether p is a known parameter.
func (p Parameter) Valid() bool {
	_, ok := parameterLabels[p]
	return ok
}

// Label returns the display label, or the raw value when unknown.
func (p Parameter) Label() string {
	if l, ok := parameterLabels[p]; ok {
		return l
	}
	return string(p)
}

// IsWeather reports whether p is a weather parameter.
func (p Parameter) IsWeather() bool {
	return p == ParamTemperature || p == ParamHumidity || p == ParamWind
}

type severityStyle struct {
	icon  string
	badge string
}

var severityStyles = map[Severity]severityStyle{
	SeverityDanger:  {icon: "text-red-500 fas fa-exclamation-circle", badge: "bg-red-100 text-red-800"},
	SeverityWarning: {icon: "text-yellow-500 fas fa-exclamation-triangle", badge: "bg-yellow-100 text-yellow-800"},
	SeverityInfo:    {icon: "text-blue-500 fas fa-info-circle", badge: "bg-blue-100 text-blue-800"},
}

const badgeBase = "px-2 py-1 text-xs rounded-full"

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityStyles[s]
	return ok
}

// IconClass returns the icon css class; unknown severities render as info.
func (s Severity) IconClass() string {
	if st, ok := severityStyles[s]; ok {
		return st.icon
	}
	return severityStyles[SeverityInfo].icon
}

// BadgeClass returns the badge css class; unknown severities render as info.
func (s Severity) BadgeClass() string {
	st, ok := severityStyles[s]
	if !ok {
		st = severityStyles[SeverityInfo]
	}
	return st.badge + " " + badgeBase
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool { return t == TypeAir || t == TypeWeather }

// BadgeClass returns the type badge css class.
func (t Type) BadgeClass() string {
	if t == TypeWeather {
		return "bg-green-100 text-green-800 " + badgeBase
	}
	return "bg-blue-100 text-blue-800 " + badgeBase
}

// Label returns the display label.
func (t Type) Label() string {
	if t == TypeWeather {
		return "Météo"
	}
	return "Qualité de l'air"
}

// Alert is a backend alert.
type Alert struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Parameter Parameter `json:"parameter,omitempty"`
	Value     *float64  `json:"value,omitempty"`
}

var weatherKeywords = []string{"tempête", "chaleur", "vent", "humidity", "temperature", "météo", "weather"}

// DetermineType derives the family of an alert that arrived without one: weather parameters and
// weather keywords in the message mean weather, anything else is air.
func DetermineType(message string, p Parameter) Type {
	if p.IsWeather() {
		return TypeWeather
	}
	lower := strings.ToLower(message)
	for _, kw := range weatherKeywords {
		if strings.Contains(lower, kw) {
			return TypeWeather
		}
	}
	return TypeAir
}

// Normalize drops an unknown parameter and fills a missing type.
func (a *Alert) Normalize() {
	if a.Parameter != "" && !a.Parameter.Valid() {
		a.Parameter = ""
	}
	if !a.Type.Valid() {
		a.Type = DetermineType(a.Message, a.Parameter)
	}
}

// Summary counts alerts by severity.
type Summary struct {
	Total   int `json:"total"`
	Danger  int `json:"danger"`
	Warning int `json:"warning"`
	Info    int `json:"info"`
}

// Summarize counts alerts locally.
func Summarize(alerts []Alert) Summary {
	s := Summary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Severity {
		case SeverityDanger:
			s.Danger++
		case SeverityWarning:
			s.Warning++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}

// Threshold is a warning/critical boundary for one parameter.
type Threshold struct {
	ID                int64      `json:"id"`
	Parameter         Parameter  `json:"parameter"`
	WarningThreshold  float64    `json:"warningThreshold"`
	CriticalThreshold float64    `json:"criticalThreshold"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// DefaultThresholds is used when the backend cannot serve thresholds.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{ID: 1, Parameter: ParamTemperature, WarningThreshold: 30, CriticalThreshold: 35},
		{ID: 2, Parameter: ParamHumidity, WarningThreshold: 70, CriticalThreshold: 80},
		{ID: 3, Parameter: ParamPM25, WarningThreshold: 35, CriticalThreshold: 55},
		{ID: 4, Parameter: ParamPM10, WarningThreshold: 50, CriticalThreshold: 80},
		{ID: 5, Parameter: ParamNO2, WarningThreshold: 100, CriticalThreshold: 200},
		{ID: 6, Parameter: ParamO3, WarningThreshold: 100, CriticalThreshold: 180},
		{ID: 7, Parameter: ParamCO, WarningThreshold: 5, CriticalThreshold: 10},
		{ID: 8, Parameter: ParamWind, WarningThreshold: 30, CriticalThreshold: 50},
		{ID: 9, Parameter: ParamAQI, WarningThreshold: 50, CriticalThreshold: 100},
	}
}

// Classify returns the severity of value against t: danger at or above critical,
// warning at or above warning, info otherwise.
func (t Threshold) Classify(value float64) Severity {
	switch {
	case value >= t.CriticalThreshold:
		return SeverityDanger
	case value >= t.WarningThreshold:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
