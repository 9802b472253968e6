// Package dashboard holds the user and admin dashboard view-models. Both load their sources in
// parallel and keep whatever succeeded; live updates arrive through the bus.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	airdomain "envmonitor/console/internal/airquality/domain"
	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
	sensordomain "envmonitor/console/internal/sensor/domain"
	weatherdomain "envmonitor/console/internal/weather/domain"
)

// DefaultCity is shown when the dashboard is activated without one.
const DefaultCity = "El Jadida"

// RecentAlertLimit caps the recent-alert list.
const RecentAlertLimit = 10

// AirQualitySource returns the latest air-quality reading.
type AirQualitySource interface {
	Current(ctx context.Context) (airdomain.Reading, error)
}

// SensorSource returns the sensors with their current values.
type SensorSource interface {
	Current(ctx context.Context) ([]sensordomain.Sensor, error)
}

// AlertSource returns the alert list.
type AlertSource interface {
	List(ctx context.Context) ([]alertdomain.Alert, error)
}

// WeatherSource returns the detailed weather of a city.
type WeatherSource interface {
	City(ctx context.Context, city string) (*weatherdomain.Detailed, error)
}

// Reading is one headline value with its trend against the previous one.
type Reading struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Trend string  `json:"trend"`
}

// Headline reading names.
const (
	ReadingAQI         = "Qualité de l'air"
	ReadingPM25        = "PM2.5"
	ReadingPM10        = "PM10"
	ReadingTemperature = "Température"
	ReadingHumidity    = "Humidité"
)

var readingUnits = map[string]string{
	ReadingAQI:         "",
	ReadingPM25:        "µg/m³",
	ReadingPM10:        "µg/m³",
	ReadingTemperature: "°C",
	ReadingHumidity:    "%",
}

var readingOrder = []string{ReadingAQI, ReadingPM25, ReadingPM10, ReadingTemperature, ReadingHumidity}

// RecentAlert is an alert shown on the dashboard with its local read flag.
type RecentAlert struct {
	alertdomain.Alert
	Read bool `json:"read"`
}

// User is the user dashboard view-model. Safe for concurrent use.
type User struct {
	air     AirQualitySource
	sensors SensorSource
	alerts  AlertSource
	weather WeatherSource
	now     func() time.Time

	mu         sync.Mutex
	city       string
	reading    *airdomain.Reading
	category   string
	readings   map[string]Reading
	sensorList []sensordomain.Sensor
	forecast   *weatherdomain.Detailed
	recent     []RecentAlert
	lastUpdate time.Time
	err        error
}

// NewUser returns a user dashboard over the given sources.
func NewUser(air AirQualitySource, sensors SensorSource, alerts AlertSource, weather WeatherSource) *User {
	return &User{
		air:      air,
		sensors:  sensors,
		alerts:   alerts,
		weather:  weather,
		now:      time.Now,
		city:     DefaultCity,
		readings: make(map[string]Reading),
	}
}

// Activate loads air quality, sensors, alerts and the weather of city in parallel. Each source
// that fails leaves its previous data in place; the joined failures are returned and kept as
// the error flag.
func (u *User) Activate(ctx context.Context, city string) error {
	if city == "" {
		city = DefaultCity
	}
	err := loadSources(ctx, "dashboard: ",
		source{"air quality", func(ctx context.Context) error {
			r, err := u.air.Current(ctx)
			if err != nil {
				return err
			}
			u.ApplyAirQuality(r)
			return nil
		}},
		source{"sensors", func(ctx context.Context) error {
			list, err := u.sensors.Current(ctx)
			if err != nil {
				return err
			}
			u.mu.Lock()
			u.sensorList = list
			u.mu.Unlock()
			return nil
		}},
		source{"alerts", func(ctx context.Context) error {
			list, err := u.alerts.List(ctx)
			if err != nil {
				return err
			}
			u.setAlerts(list)
			return nil
		}},
		source{"weather", func(ctx context.Context) error {
			d, err := u.weather.City(ctx, city)
			if err != nil {
				return err
			}
			u.applyWeather(d)
			return nil
		}},
	)

	u.mu.Lock()
	u.city = city
	u.err = err
	u.lastUpdate = u.now()
	u.mu.Unlock()
	return err
}

// caller holds mu
func (u *User) setReading(name string, value float64) {
	prev, seen := u.readings[name]
	r := Reading{Name: name, Value: value, Unit: readingUnits[name]}
	if seen {
		r.Trend = airdomain.Trend(value, prev.Value)
	}
	u.readings[name] = r
}

// ApplyAirQuality records a new reading and updates the headline trends.
func (u *User) ApplyAirQuality(r airdomain.Reading) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reading = &r
	u.category = airdomain.Category(r.AQI)
	u.setReading(ReadingAQI, r.AQI)
	u.setReading(ReadingPM25, r.PM25)
	u.setReading(ReadingPM10, r.PM10)
	if r.Temperature != nil {
		u.setReading(ReadingTemperature, *r.Temperature)
	}
	if r.Humidity != nil {
		u.setReading(ReadingHumidity, *r.Humidity)
	}
	u.lastUpdate = u.now()
}

func (u *User) applyWeather(d *weatherdomain.Detailed) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.forecast = d
	u.setReading(ReadingTemperature, float64(d.Current.Temp))
	u.setReading(ReadingHumidity, d.Current.Humidity)
}

// ApplyWeatherPayload decodes a pushed weather payload and applies it.
func (u *User) ApplyWeatherPayload(raw []byte) error {
	rep, err := weatherdomain.DecodeReport(raw)
	if err != nil {
		return err
	}
	d, err := rep.Detailed()
	if err != nil {
		return err
	}
	u.applyWeather(d)
	return nil
}

func (u *User) setAlerts(list []alertdomain.Alert) {
	sorted := append([]alertdomain.Alert(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
	if len(sorted) > RecentAlertLimit {
		sorted = sorted[:RecentAlertLimit]
	}
	recent := make([]RecentAlert, len(sorted))
	for i, a := range sorted {
		recent[i] = RecentAlert{Alert: a}
	}
	u.mu.Lock()
	u.recent = recent
	u.mu.Unlock()
}

// PushAlert prepends a live alert as unread.
func (u *User) PushAlert(a alertdomain.Alert) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.recent = append([]RecentAlert{{Alert: a}}, u.recent...)
	if len(u.recent) > RecentAlertLimit {
		u.recent = u.recent[:RecentAlertLimit]
	}
}

// MarkAlertRead flags one recent alert as read. It reports whether an unread alert was found.
func (u *User) MarkAlertRead(id int64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.recent {
		if u.recent[i].ID == id && !u.recent[i].Read {
			u.recent[i].Read = true
			return true
		}
	}
	return false
}

// ApplySensorUpdate patches a cached sensor from a live update.
func (u *User) ApplySensorUpdate(up sensordomain.Update) {
	id, err := strconv.ParseInt(string(up.ID), 10, 64)
	if err != nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.sensorList {
		if u.sensorList[i].ID != id {
			continue
		}
		if up.Status != "" {
			u.sensorList[i].Status = up.Status
		}
		if up.Value != "" {
			u.sensorList[i].Value = up.Value
		}
	}
}

// Watch applies live air quality, weather, alerts and sensor updates until release is called.
func (u *User) Watch(b *bus.Bus) (release func()) {
	releases := []func(){
		bus.Watch(b.AirQuality, 1, u.ApplyAirQuality),
		bus.Watch(b.Alerts, bus.DefaultBuffer, u.PushAlert),
		bus.Watch(b.SensorUpdates, bus.DefaultBuffer, u.ApplySensorUpdate),
		bus.Watch(b.Weather, 1, func(raw json.RawMessage) {
			if err := u.ApplyWeatherPayload(raw); err != nil {
				log.Printf("dashboard: weather push: %v", err)
			}
		}),
	}
	return func() {
		for _, r := range releases {
			r()
		}
	}
}

// Readings returns the headline readings in display order.
func (u *User) Readings() []Reading {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Reading, 0, len(u.readings))
	for _, name := range readingOrder {
		if r, ok := u.readings[name]; ok {
			out = append(out, r)
		}
	}
	return out
}

// AirQuality returns the last reading and its AQI category, or nil.
func (u *User) AirQuality() (*airdomain.Reading, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.reading == nil {
		return nil, ""
	}
	r := *u.reading
	return &r, u.category
}

// Weather returns the last detailed weather, or nil.
func (u *User) Weather() *weatherdomain.Detailed {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.forecast
}

// City returns the city of the last activation.
func (u *User) City() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.city
}

// Sensors returns the cached sensors.
func (u *User) Sensors() []sensordomain.Sensor {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]sensordomain.Sensor(nil), u.sensorList...)
}

// ActiveSensors counts sensors in the actif state.
func (u *User) ActiveSensors() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, s := range u.sensorList {
		if s.Status == sensordomain.StatusActive {
			n++
		}
	}
	return n
}

// RecentAlerts returns up to RecentAlertLimit alerts, newest first.
func (u *User) RecentAlerts() []RecentAlert {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]RecentAlert(nil), u.recent...)
}

// UnreadAlerts counts recent alerts not yet marked read.
func (u *User) UnreadAlerts() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, a := range u.recent {
		if !a.Read {
			n++
		}
	}
	return n
}

// LastUpdate returns when data last changed.
func (u *User) LastUpdate() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastUpdate
}

// Err returns the failures of the last activation, or nil.
func (u *User) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}
