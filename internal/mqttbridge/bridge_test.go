package mqttbridge

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	airdomain "envmonitor/console/internal/airquality/domain"
	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/config"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

// mockClient overrides the calls the bridge makes; anything else panics through the nil embed.
type mockClient struct {
	mqtt.Client

	mu           sync.Mutex
	connectErr   error
	subscribeErr error
	handlers     map[string]mqtt.MessageHandler
	disconnected bool
}

func (m *mockClient) Connect() mqtt.Token { return doneToken{err: m.connectErr} }

func (m *mockClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return doneToken{err: m.subscribeErr}
	}
	if m.handlers == nil {
		m.handlers = make(map[string]mqtt.MessageHandler)
	}
	m.handlers[topic] = cb
	return doneToken{}
}

func (m *mockClient) Disconnect(uint) {
	m.mu.Lock()
	m.disconnected = true
	m.mu.Unlock()
}

func (m *mockClient) handler(topic string) mqtt.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[topic]
}

type mockMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m mockMessage) Topic() string   { return m.topic }
func (m mockMessage) Payload() []byte { return m.payload }

func testConfig() Config {
	return Config{Broker: "tcp://localhost:1883", ClientID: "t", AirQualityTopic: "airquality", SensorsTopic: "sensors/+"}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{MQTTBrokerURL: "tcp://b:1883", MQTTClientID: "id", MQTTTopicAirQuality: "aq", MQTTTopicSensors: "s/+"}
	got := FromConfig(cfg)
	if got.Broker != "tcp://b:1883" || got.ClientID != "id" || got.AirQualityTopic != "aq" || got.SensorsTopic != "s/+" {
		t.Errorf("FromConfig = %+v", got)
	}
}

func TestBridge_StartSubscribesAndForwards(t *testing.T) {
	b := bus.New()
	defer b.Close()
	client := &mockClient{}
	br := NewWithClient(client, testConfig(), b)

	if err := br.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	air := b.AirQuality.Subscribe(1)
	sensors := b.SensorUpdates.Subscribe(1)

	client.handler("airquality")(client, mockMessage{topic: "airquality", payload: []byte("12.5,30,40,50,0.4,55")})
	select {
	case r := <-air.C():
		if r.PM25 != 12.5 || r.AQI != 55 {
			t.Errorf("reading = %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("no air quality reading published")
	}

	client.handler("sensors/+")(client, mockMessage{topic: "sensors/7", payload: []byte(`{"status":"actif","value":"21.3"}`)})
	select {
	case u := <-sensors.C():
		if u.ID != "7" || u.Value != "21.3" {
			t.Errorf("update = %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("no sensor update published")
	}

	br.Close()
	if !client.disconnected {
		t.Error("Close should disconnect the client")
	}
}

func TestBridge_StartErrors(t *testing.T) {
	b := bus.New()
	defer b.Close()

	br := NewWithClient(&mockClient{connectErr: errors.New("refused")}, testConfig(), b)
	if err := br.Start(); err == nil {
		t.Error("Start should fail when connect fails")
	}

	br = NewWithClient(&mockClient{subscribeErr: errors.New("not authorized")}, testConfig(), b)
	if err := br.Start(); err == nil {
		t.Error("Start should fail when subscribe fails")
	}
}

func TestDecodeAirQuality(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		wantAQI float64
		wantErr bool
	}{
		{"csv", "1,2,3,4,5,60", 60, false},
		{"csv with spaces", " 1, 2, 3, 4, 5, 61 \n", 61, false},
		{"json", `{"aqi":70,"pm25":3}`, 70, false},
		{"json defaults", `{}`, 0, false},
		{"short csv", "1,2,3", 0, true},
		{"bad json", `{"aqi":`, 0, true},
		{"empty", "", 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := DecodeAirQuality([]byte(tc.payload))
			if tc.wantErr {
				if !errors.Is(err, airdomain.ErrMalformedReading) {
					t.Errorf("err = %v, want ErrMalformedReading", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAirQuality: %v", err)
			}
			if r.AQI != tc.wantAQI {
				t.Errorf("AQI = %v, want %v", r.AQI, tc.wantAQI)
			}
		})
	}
}

func TestDecodeSensor(t *testing.T) {
	testCases := []struct {
		name      string
		topic     string
		payload   string
		wantID    string
		wantValue string
		wantErr   bool
	}{
		{"json with id", "sensors/9", `{"id":3,"value":"1"}`, "3", "1", false},
		{"id from topic", "sensors/9", `{"status":"inactif"}`, "9", "", false},
		{"bare value", "sensors/12", "23.4", "12", "23.4", false},
		{"no id", "sensors/", "23.4", "", "", true},
		{"wildcard only", "sensors/+", "1", "", "", true},
		{"bad json", "sensors/1", `{"id":`, "", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := DecodeSensor(tc.topic, []byte(tc.payload))
			if tc.wantErr {
				if err == nil {
					t.Error("want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeSensor: %v", err)
			}
			if string(u.ID) != tc.wantID {
				t.Errorf("ID = %q, want %q", u.ID, tc.wantID)
			}
			if u.Value != tc.wantValue {
				t.Errorf("Value = %q, want %q", u.Value, tc.wantValue)
			}
			if u.LastUpdate == nil {
				t.Error("LastUpdate should be stamped")
			}
		})
	}
}
