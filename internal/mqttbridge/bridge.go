// Package mqttbridge subscribes directly to the sensor broker and feeds readings into the bus, for
// deployments where the relay sits next to the broker instead of behind the STOMP gateway.
package mqttbridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	airdomain "envmonitor/console/internal/airquality/domain"
	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/config"
	sensordomain "envmonitor/console/internal/sensor/domain"
)

// ErrNoSensorID is returned for a sensor message whose id is neither in the payload nor the topic.
var ErrNoSensorID = errors.New("mqttbridge: sensor message without id")

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	quiesceMillis  = 250
)

// Config holds broker connection settings and topics.
type Config struct {
	Broker          string
	ClientID        string
	Username        string
	Password        string
	AirQualityTopic string // e.g. "airquality"
	SensorsTopic    string // e.g. "sensors/+"
}

// FromConfig extracts the bridge settings from the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Broker:          cfg.MQTTBrokerURL,
		ClientID:        cfg.MQTTClientID,
		Username:        cfg.MQTTUsername,
		Password:        cfg.MQTTPassword,
		AirQualityTopic: cfg.MQTTTopicAirQuality,
		SensorsTopic:    cfg.MQTTTopicSensors,
	}
}

// Bridge forwards broker messages to the bus.
type Bridge struct {
	client mqtt.Client
	cfg    Config
	bus    *bus.Bus
}

// New builds a bridge with a paho client. It does not connect; call Start.
func New(cfg Config, b *bus.Bus) *Bridge {
	br := &Bridge{cfg: cfg, bus: b}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	// paho drops subscriptions on a clean-session reconnect, so subscribe on every connect.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Printf("mqttbridge: connected to %s", cfg.Broker)
		if err := br.subscribeAll(); err != nil {
			log.Printf("mqttbridge: subscribe: %v", err)
		}
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.Printf("mqttbridge: connection lost: %v", err)
	})
	br.client = mqtt.NewClient(opts)
	return br
}

// NewWithClient wraps an existing paho client. Subscriptions happen in Start.
func NewWithClient(client mqtt.Client, cfg Config, b *bus.Bus) *Bridge {
	return &Bridge{client: client, cfg: cfg, bus: b}
}

// Start connects and subscribes to the configured topics.
func (br *Bridge) Start() error {
	token := br.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqttbridge: connect to %s: timed out", br.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttbridge: connect to %s: %w", br.cfg.Broker, err)
	}
	return br.subscribeAll()
}

func (br *Bridge) subscribeAll() error {
	if br.cfg.AirQualityTopic != "" {
		if err := br.subscribe(br.cfg.AirQualityTopic, func(_ mqtt.Client, msg mqtt.Message) {
			if err := br.HandleAirQuality(msg.Payload()); err != nil {
				log.Printf("mqttbridge: %s: %v", msg.Topic(), err)
			}
		}); err != nil {
			return err
		}
	}
	if br.cfg.SensorsTopic != "" {
		if err := br.subscribe(br.cfg.SensorsTopic, func(_ mqtt.Client, msg mqtt.Message) {
			if err := br.HandleSensor(msg.Topic(), msg.Payload()); err != nil {
				log.Printf("mqttbridge: %s: %v", msg.Topic(), err)
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

func (br *Bridge) subscribe(topic string, handler mqtt.MessageHandler) error {
	token := br.client.Subscribe(topic, qos, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttbridge: subscribe %s: %w", topic, token.Error())
	}
	log.Printf("mqttbridge: subscribed to %s", topic)
	return nil
}

// Close disconnects from the broker.
func (br *Bridge) Close() {
	br.client.Disconnect(quiesceMillis)
	log.Printf("mqttbridge: disconnected")
}

// HandleAirQuality decodes a JSON reading or the raw "pm25,pm10,no2,o3,co,aqi" payload.
func (br *Bridge) HandleAirQuality(payload []byte) error {
	r, err := DecodeAirQuality(payload)
	if err != nil {
		return err
	}
	br.bus.AirQuality.Publish(r)
	return nil
}

// HandleSensor decodes a sensor update published on topic.
func (br *Bridge) HandleSensor(topic string, payload []byte) error {
	u, err := DecodeSensor(topic, payload)
	if err != nil {
		return err
	}
	br.bus.SensorUpdates.Publish(u)
	return nil
}

// DecodeAirQuality accepts JSON or CSV payloads. Missing JSON fields decode as zero.
func DecodeAirQuality(payload []byte) (airdomain.Reading, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var r airdomain.Reading
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return airdomain.Reading{}, fmt.Errorf("%w: %v", airdomain.ErrMalformedReading, err)
		}
		return r, nil
	}
	return airdomain.ParseCSV(string(trimmed))
}

// DecodeSensor accepts a JSON update or a bare value. A missing id is taken from the last topic
// segment (sensors/<id>).
func DecodeSensor(topic string, payload []byte) (sensordomain.Update, error) {
	var u sensordomain.Update
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &u); err != nil {
			return sensordomain.Update{}, fmt.Errorf("mqttbridge: decode sensor update: %w", err)
		}
	} else {
		u.Value = string(trimmed)
	}
	if u.ID == "" {
		if i := strings.LastIndex(topic, "/"); i >= 0 && i < len(topic)-1 {
			u.ID = sensordomain.FlexID(topic[i+1:])
		}
	}
	if u.ID == "" || u.ID == "+" {
		return sensordomain.Update{}, ErrNoSensorID
	}
	if u.LastUpdate == nil {
		now := time.Now().UTC()
		u.LastUpdate = &now
	}
	return u, nil
}
