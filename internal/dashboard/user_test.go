package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	airdomain "envmonitor/console/internal/airquality/domain"
	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
	sensordomain "envmonitor/console/internal/sensor/domain"
	weatherdomain "envmonitor/console/internal/weather/domain"
)

type mockAir struct {
	mu      sync.Mutex
	reading airdomain.Reading
	err     error
}

func (m *mockAir) Current(ctx context.Context) (airdomain.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reading, m.err
}

type mockSensors struct {
	mu   sync.Mutex
	list []sensordomain.Sensor
	err  error
}

func (m *mockSensors) Current(ctx context.Context) ([]sensordomain.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list, m.err
}

func (m *mockSensors) List(ctx context.Context) ([]sensordomain.Sensor, error) {
	return m.Current(ctx)
}

type mockAlerts struct {
	mu   sync.Mutex
	list []alertdomain.Alert
	err  error
}

func (m *mockAlerts) List(ctx context.Context) ([]alertdomain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list, m.err
}

type mockWeather struct {
	mu       sync.Mutex
	detailed *weatherdomain.Detailed
	err      error
	cities   []string
}

func (m *mockWeather) City(ctx context.Context, city string) (*weatherdomain.Detailed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cities = append(m.cities, city)
	return m.detailed, m.err
}

func ptr(f float64) *float64 { return &f }

func newTestUser() (*User, *mockAir, *mockSensors, *mockAlerts, *mockWeather) {
	air := &mockAir{reading: airdomain.Reading{AQI: 40, PM25: 12, PM10: 20}}
	sensors := &mockSensors{list: []sensordomain.Sensor{
		{ID: 1, Name: "S1", Status: sensordomain.StatusActive},
		{ID: 2, Name: "S2", Status: sensordomain.StatusInactive},
		{ID: 3, Name: "S3", Status: sensordomain.StatusActive},
	}}
	alerts := &mockAlerts{}
	weather := &mockWeather{detailed: &weatherdomain.Detailed{
		Name:    "Rabat",
		Current: weatherdomain.DetailedCurrent{Temp: 21, Humidity: 60},
	}}
	return NewUser(air, sensors, alerts, weather), air, sensors, alerts, weather
}

func TestUser_ActivateLoadsEverything(t *testing.T) {
	u, _, _, _, weather := newTestUser()
	if err := u.Activate(context.Background(), "Rabat"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if u.Err() != nil {
		t.Errorf("Err = %v, want nil", u.Err())
	}
	if u.City() != "Rabat" {
		t.Errorf("City = %q, want %q", u.City(), "Rabat")
	}
	if len(weather.cities) != 1 || weather.cities[0] != "Rabat" {
		t.Errorf("weather cities = %v, want [Rabat]", weather.cities)
	}
	r, cat := u.AirQuality()
	if r == nil || r.AQI != 40 {
		t.Fatalf("AirQuality = %+v, want AQI 40", r)
	}
	if cat != "Bon" {
		t.Errorf("category = %q, want %q", cat, "Bon")
	}
	if u.ActiveSensors() != 2 {
		t.Errorf("ActiveSensors = %d, want 2", u.ActiveSensors())
	}
	if u.Weather() == nil || u.Weather().Name != "Rabat" {
		t.Errorf("Weather = %+v, want Rabat", u.Weather())
	}
	readings := u.Readings()
	if len(readings) != 5 {
		t.Fatalf("Readings = %d, want 5", len(readings))
	}
	if readings[0].Name != ReadingAQI || readings[3].Name != ReadingTemperature {
		t.Errorf("reading order = %q, %q", readings[0].Name, readings[3].Name)
	}
	for _, r := range readings {
		if r.Trend != "" {
			t.Errorf("%s trend = %q, want empty on first reading", r.Name, r.Trend)
		}
	}
	if u.LastUpdate().IsZero() {
		t.Error("LastUpdate should be set")
	}
}

func TestUser_ActivateDefaultsCity(t *testing.T) {
	u, _, _, _, weather := newTestUser()
	_ = u.Activate(context.Background(), "")
	if len(weather.cities) != 1 || weather.cities[0] != DefaultCity {
		t.Errorf("weather cities = %v, want [%s]", weather.cities, DefaultCity)
	}
}

func TestUser_ActivatePartialFailureKeepsOtherData(t *testing.T) {
	u, air, _, _, weather := newTestUser()
	air.err = errors.New("boom")
	weather.err = errors.New("down")

	err := u.Activate(context.Background(), "Rabat")
	if err == nil {
		t.Fatal("Activate should report the failed sources")
	}
	if !strings.Contains(err.Error(), "air quality") || !strings.Contains(err.Error(), "weather") {
		t.Errorf("error = %q, want both sources named", err.Error())
	}
	if u.Err() == nil {
		t.Error("Err should be set")
	}
	if r, _ := u.AirQuality(); r != nil {
		t.Errorf("AirQuality = %+v, want nil", r)
	}
	if u.ActiveSensors() != 2 {
		t.Errorf("ActiveSensors = %d, want 2", u.ActiveSensors())
	}

	air.err = nil
	weather.err = nil
	if err := u.Activate(context.Background(), "Rabat"); err != nil {
		t.Fatalf("second Activate: %v", err)
	}
	if u.Err() != nil {
		t.Errorf("Err = %v, want cleared", u.Err())
	}
}

func TestUser_Trends(t *testing.T) {
	u, _, _, _, _ := newTestUser()
	u.ApplyAirQuality(airdomain.Reading{AQI: 50, PM25: 10, PM10: 30, Temperature: ptr(20)})
	u.ApplyAirQuality(airdomain.Reading{AQI: 60, PM25: 8, PM10: 30, Temperature: ptr(19)})

	want := map[string]string{
		ReadingAQI:         airdomain.TrendUp,
		ReadingPM25:        airdomain.TrendDown,
		ReadingPM10:        "",
		ReadingTemperature: airdomain.TrendDown,
	}
	got := map[string]string{}
	for _, r := range u.Readings() {
		got[r.Name] = r.Trend
	}
	for name, trend := range want {
		if got[name] != trend {
			t.Errorf("%s trend = %q, want %q", name, got[name], trend)
		}
	}
	if _, ok := got[ReadingHumidity]; ok {
		t.Error("humidity should be absent when never reported")
	}
}

func TestUser_RecentAlerts(t *testing.T) {
	u, _, _, alerts, _ := newTestUser()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		alerts.list = append(alerts.list, alertdomain.Alert{ID: int64(i + 1), Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	if err := u.Activate(context.Background(), "Rabat"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	recent := u.RecentAlerts()
	if len(recent) != RecentAlertLimit {
		t.Fatalf("RecentAlerts = %d, want %d", len(recent), RecentAlertLimit)
	}
	if recent[0].ID != 12 || recent[9].ID != 3 {
		t.Errorf("recent ids = %d..%d, want 12..3", recent[0].ID, recent[9].ID)
	}
	if u.UnreadAlerts() != 10 {
		t.Errorf("UnreadAlerts = %d, want 10", u.UnreadAlerts())
	}
	if !u.MarkAlertRead(12) {
		t.Error("MarkAlertRead(12) = false, want true")
	}
	if u.MarkAlertRead(12) {
		t.Error("second MarkAlertRead(12) = true, want false")
	}
	if u.MarkAlertRead(1) {
		t.Error("MarkAlertRead on a trimmed alert = true, want false")
	}
	if u.UnreadAlerts() != 9 {
		t.Errorf("UnreadAlerts = %d, want 9", u.UnreadAlerts())
	}

	u.PushAlert(alertdomain.Alert{ID: 99, Timestamp: base.Add(24 * time.Hour)})
	recent = u.RecentAlerts()
	if len(recent) != RecentAlertLimit || recent[0].ID != 99 || recent[0].Read {
		t.Errorf("after push first = %+v, len %d", recent[0], len(recent))
	}
}

func TestUser_ApplySensorUpdate(t *testing.T) {
	u, _, _, _, _ := newTestUser()
	_ = u.Activate(context.Background(), "Rabat")

	u.ApplySensorUpdate(sensordomain.Update{ID: "2", Status: sensordomain.StatusActive, Value: "21.5"})
	u.ApplySensorUpdate(sensordomain.Update{ID: "abc", Status: sensordomain.StatusInactive})

	if u.ActiveSensors() != 3 {
		t.Errorf("ActiveSensors = %d, want 3", u.ActiveSensors())
	}
	for _, s := range u.Sensors() {
		if s.ID == 2 && s.Value != "21.5" {
			t.Errorf("sensor 2 value = %q, want %q", s.Value, "21.5")
		}
	}
}

func TestUser_ApplyWeatherPayload(t *testing.T) {
	u, _, _, _, _ := newTestUser()
	if err := u.ApplyWeatherPayload([]byte(`{"name":"Fès"}`)); !errors.Is(err, weatherdomain.ErrIncomplete) {
		t.Errorf("err = %v, want ErrIncomplete", err)
	}
	if err := u.ApplyWeatherPayload([]byte(`not json`)); err == nil {
		t.Error("malformed payload should fail")
	}
	payload := `{"name":"Fès","current":{"temp":30.4,"humidity":20,"weather":[{"description":"ciel dégagé","icon":"01d"}]}}`
	if err := u.ApplyWeatherPayload([]byte(payload)); err != nil {
		t.Fatalf("ApplyWeatherPayload: %v", err)
	}
	if w := u.Weather(); w == nil || w.Name != "Fès" || w.Current.Temp != 30 {
		t.Errorf("Weather = %+v, want Fès at 30", w)
	}
}

func TestUser_Watch(t *testing.T) {
	u, _, _, _, _ := newTestUser()
	b := bus.New()
	defer b.Close()

	release := u.Watch(b)
	b.AirQuality.Publish(airdomain.Reading{AQI: 120})
	b.Alerts.Publish(alertdomain.Alert{ID: 7, Message: "PM2.5 élevé"})
	b.Weather.Publish(json.RawMessage(`{"name":"Agadir","current":{"temp":25,"humidity":50}}`))
	release()

	if r, cat := u.AirQuality(); r == nil || r.AQI != 120 || cat != "Mauvais pour groupes sensibles" {
		t.Errorf("AirQuality = %+v, %q", r, cat)
	}
	if got := u.RecentAlerts(); len(got) != 1 || got[0].ID != 7 {
		t.Errorf("RecentAlerts = %+v, want alert 7", got)
	}
	if w := u.Weather(); w == nil || w.Name != "Agadir" {
		t.Errorf("Weather = %+v, want Agadir", w)
	}
	if b.AirQuality.Len() != 0 {
		t.Errorf("AirQuality subscribers = %d after release, want 0", b.AirQuality.Len())
	}
}
