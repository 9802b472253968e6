// Package config loads and validates client config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds client configuration loaded from the environment.
type Config struct {
	// APIBaseURL is the backend REST base (e.g. http://localhost:8082/api).
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// RealtimeURL is the websocket URL of the STOMP data channel (SockJS raw endpoint).
	RealtimeURL string `mapstructure:"REALTIME_URL"`
	// NotificationsURL is the websocket URL of the STOMP notification channel.
	NotificationsURL string `mapstructure:"NOTIFICATIONS_URL"`
	// RealtimeReconnectDelay is the fixed delay between reconnect attempts (e.g. "5s").
	RealtimeReconnectDelay string `mapstructure:"REALTIME_RECONNECT_DELAY"`
	// RealtimeMaxReconnects caps consecutive reconnect attempts before giving up; default 5.
	RealtimeMaxReconnects int `mapstructure:"REALTIME_MAX_RECONNECTS"`
	// RealtimeHeartbeat is the STOMP heart-beat interval in both directions (e.g. "10s").
	RealtimeHeartbeat string `mapstructure:"REALTIME_HEARTBEAT"`
	// HTTPTimeout bounds a single REST call (e.g. "30s").
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
	// StoreDSN selects the durable local store: sqlite3://<file> or postgres://...
	StoreDSN string `mapstructure:"STORE_DSN"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint enables OTel export when set (host:port or URL).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported as service.name on telemetry.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Relay (optional). When Kafka brokers are set, the relay forwards live events to Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// RelayKafkaTopic is the Kafka topic for relayed events (default envmonitor-events).
	RelayKafkaTopic string `mapstructure:"RELAY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// Worker-only: Loki URL the worker pushes events to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// MQTTBrokerURL enables the direct broker bridge when set (e.g. tcp://localhost:1883).
	MQTTBrokerURL string `mapstructure:"MQTT_BROKER_URL"`
	MQTTClientID  string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTUsername  string `mapstructure:"MQTT_USERNAME"`
	MQTTPassword  string `mapstructure:"MQTT_PASSWORD"`
	// MQTTTopicAirQuality carries raw "pm25,pm10,no2,o3,co,aqi" or JSON readings.
	MQTTTopicAirQuality string `mapstructure:"MQTT_TOPIC_AIRQUALITY"`
	// MQTTTopicSensors is a wildcard topic of per-sensor updates (sensors/+).
	MQTTTopicSensors string `mapstructure:"MQTT_TOPIC_SENSORS"`

	// ClickHouse archive (optional); enabled when ClickHouseAddr is set.
	ClickHouseAddr     string `mapstructure:"CLICKHOUSE_ADDR"`
	ClickHouseDatabase string `mapstructure:"CLICKHOUSE_DATABASE"`
	ClickHouseUsername string `mapstructure:"CLICKHOUSE_USERNAME"`
	ClickHousePassword string `mapstructure:"CLICKHOUSE_PASSWORD"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8082/api")
	v.SetDefault("REALTIME_URL", "ws://localhost:8082/ws-mqtt/websocket")
	v.SetDefault("NOTIFICATIONS_URL", "ws://localhost:8082/api/ws-notifications/websocket")
	v.SetDefault("REALTIME_RECONNECT_DELAY", "5s")
	v.SetDefault("REALTIME_MAX_RECONNECTS", 5)
	v.SetDefault("REALTIME_HEARTBEAT", "10s")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("STORE_DSN", "sqlite3://envmonitor.db")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "envmonitor-console")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("RELAY_KAFKA_TOPIC", "envmonitor-events")
	v.SetDefault("KAFKA_GROUP_ID", "envmonitor-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("MQTT_BROKER_URL", "")
	v.SetDefault("MQTT_CLIENT_ID", "envmonitor-relay")
	v.SetDefault("MQTT_USERNAME", "")
	v.SetDefault("MQTT_PASSWORD", "")
	v.SetDefault("MQTT_TOPIC_AIRQUALITY", "airquality")
	v.SetDefault("MQTT_TOPIC_SENSORS", "sensors/+")
	v.SetDefault("CLICKHOUSE_ADDR", "")
	v.SetDefault("CLICKHOUSE_DATABASE", "default")
	v.SetDefault("CLICKHOUSE_USERNAME", "default")
	v.SetDefault("CLICKHOUSE_PASSWORD", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}
	cfg.APIBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")

	if cfg.RealtimeURL == "" {
		return nil, errors.New("config: REALTIME_URL must be set")
	}

	if cfg.RealtimeMaxReconnects < 0 {
		return nil, errors.New("config: REALTIME_MAX_RECONNECTS must not be negative")
	}

	if cfg.StoreDSN == "" {
		return nil, errors.New("config: STORE_DSN must be set")
	}

	return &cfg, nil
}

// ReconnectDelay parses RealtimeReconnectDelay. Returns 5s if unset or invalid.
func (c *Config) ReconnectDelay() time.Duration {
	return parseDuration(c.RealtimeReconnectDelay, 5*time.Second)
}

// HeartbeatInterval parses RealtimeHeartbeat. Returns 10s if unset or invalid.
func (c *Config) HeartbeatInterval() time.Duration {
	return parseDuration(c.RealtimeHeartbeat, 10*time.Second)
}

// RequestTimeout parses HTTPTimeout. Returns 30s if unset or invalid.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.HTTPTimeout, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if relaying is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
