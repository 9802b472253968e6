// Package domain holds sensor (capteur) types, location encoding and history entries.
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Type is the sensor kind.
type Type string

const (
	TypeTemperature Type = "temperature"
	TypeHumidity    Type = "humidity"
	TypeAirQuality  Type = "air_quality"
)

// Types lists the known sensor types in display order.
var Types = []Type{TypeTemperature, TypeHumidity, TypeAirQuality}

var typeLabels = map[Type]string{
	TypeTemperature: "Capteur de température",
	TypeHumidity:    "Capteur d'humidité",
	TypeAirQuality:  "Capteur de qualité de l'air",
}

// Label returns the display label, or the raw type when unknown.
func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// TypeFromLabel maps a display label back to its type. Unknown labels map to temperature.
func TypeFromLabel(label string) Type {
	if t, ok := LookupTypeLabel(label); ok {
		return t
	}
	return TypeTemperature
}

// LookupTypeLabel maps a display label back to its type; ok is false for unknown labels.
func LookupTypeLabel(label string) (Type, bool) {
	label = strings.TrimSpace(label)
	for t, l := range typeLabels {
		if l == label {
			return t, true
		}
	}
	return "", false
}

// Status is the sensor operating state.
type Status string

const (
	StatusActive      Status = "actif"
	StatusInactive    Status = "inactif"
	StatusMaintenance Status = "maintenance"
)

// Statuses lists the known statuses in display order.
var Statuses = []Status{StatusActive, StatusInactive, StatusMaintenance}

type statusInfo struct {
	label string
	class string
}

var statusTable = map[Status]statusInfo{
	StatusActive:      {"Actif", "bg-green-100 text-green-800"},
	StatusInactive:    {"Inactif", "bg-red-100 text-red-800"},
	StatusMaintenance: {"Maintenance", "bg-yellow-100 text-yellow-800"},
}

// Label returns the display label, or the raw status when unknown.
func (s Status) Label() string {
	if info, ok := statusTable[s]; ok {
		return info.label
	}
	return string(s)
}

// BadgeClass returns the status badge css class.
func (s Status) BadgeClass() string {
	if info, ok := statusTable[s]; ok {
		return info.class
	}
	return "bg-gray-100 text-gray-800"
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

// StatusFromLabel maps a display label back to its status. Unknown labels map to actif.
func StatusFromLabel(label string) Status {
	if s, ok := LookupStatusLabel(label); ok {
		return s
	}
	return StatusActive
}

// LookupStatusLabel maps a display label back to its status; ok is false for unknown labels.
func LookupStatusLabel(label string) (Status, bool) {
	label = strings.TrimSpace(label)
	for s, info := range statusTable {
		if info.label == label {
			return s, true
		}
	}
	return "", false
}

// Sensor is the backend capteur record.
type Sensor struct {
	ID        int64  `json:"id"`
	Name      string `json:"nom"`
	Type      Type   `json:"type"`
	Location  string `json:"localisation"`
	Status    Status `json:"statut"`
	CreatedAt string `json:"dateCreation,omitempty"`
	UpdatedAt string `json:"derniereModification,omitempty"`
	Value     string `json:"valeur,omitempty"`
	Comment   string `json:"commentaire,omitempty"`
}

// Loc decodes the stored location.
func (s Sensor) Loc() Location { return ParseLocation(s.Location) }

// Location is either map coordinates or free text.
type Location struct {
	IsMap bool
	X, Y  float64
	Text  string
}

const (
	mapPrefix  = "MAP:"
	textPrefix = "TEXT:"
)

// MapLocation returns coordinates as a location.
func MapLocation(x, y float64) Location { return Location{IsMap: true, X: x, Y: y} }

// TextLocation returns a free-text location.
func TextLocation(text string) Location { return Location{Text: text} }

// ParseLocation decodes "MAP:x,y", "TEXT:..." or bare text. Malformed coordinates fall back to text.
func ParseLocation(s string) Location {
	if rest, ok := strings.CutPrefix(s, mapPrefix); ok {
		parts := strings.Split(rest, ",")
		if len(parts) == 2 {
			x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errX == nil && errY == nil {
				return MapLocation(x, y)
			}
		}
		return TextLocation(s)
	}
	return TextLocation(strings.TrimPrefix(s, textPrefix))
}

// String encodes the location for display and export: "MAP:x,y" or the bare text.
func (l Location) String() string {
	if l.IsMap {
		return mapPrefix + formatCoord(l.X) + "," + formatCoord(l.Y)
	}
	return l.Text
}

// ForCreate encodes the location as the create endpoint expects: free text gets a TEXT: prefix.
func (l Location) ForCreate() string {
	if l.IsMap {
		return l.String()
	}
	if strings.HasPrefix(l.Text, mapPrefix) || strings.HasPrefix(l.Text, textPrefix) {
		return l.Text
	}
	return textPrefix + l.Text
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// HistoryEntry is one maintenance log line.
type HistoryEntry struct {
	Date    time.Time `json:"date"`
	Status  Status    `json:"status"`
	Comment string    `json:"comment"`
}

// ParseHistory decodes the text JSON array served by the history endpoint.
// Empty or invalid input yields an empty history.
func ParseHistory(text string) []HistoryEntry {
	text = strings.TrimSpace(text)
	if text == "" {
		return []HistoryEntry{}
	}
	// some backends serve the array JSON-encoded a second time
	if strings.HasPrefix(text, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(text), &inner); err == nil {
			text = inner
		}
	}
	var out []HistoryEntry
	if err := json.Unmarshal([]byte(text), &out); err != nil || out == nil {
		return []HistoryEntry{}
	}
	return out
}

// EncodeHistory encodes entries as the JSON text stored by the backend.
func EncodeHistory(entries []HistoryEntry) (string, error) {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FlexID accepts a JSON string or number.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Update is a live sensor update pushed on /topic/sensors/+.
type Update struct {
	ID         FlexID     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Location   string     `json:"location"`
	Status     Status     `json:"status"`
	Value      string     `json:"value,omitempty"`
	LastUpdate *time.Time `json:"lastUpdate,omitempty"`
}
