// Package archive stores live air-quality readings and alerts in ClickHouse.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	airdomain "envmonitor/console/internal/airquality/domain"
	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/config"
)

// ErrDisabled is returned by Open when no ClickHouse address is configured.
var ErrDisabled = errors.New("archive: clickhouse address not set")

// Conn is the subset of the ClickHouse driver connection the archive uses.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Close() error
}

// Options selects the ClickHouse server.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// FromConfig maps the CLICKHOUSE_* settings.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	}
}

// Archive writes readings and alerts. Safe for concurrent use.
type Archive struct {
	conn Conn
	now  func() time.Time
}

// Open connects, pings and creates the tables.
func Open(ctx context.Context, opts Options) (*Archive, error) {
	if opts.Addr == "" {
		return nil, ErrDisabled
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("archive: connect to clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("archive: ping clickhouse: %w", err)
	}
	log.Printf("archive: connected to clickhouse at %s", opts.Addr)

	a := New(conn)
	if err := a.InitSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

// New wraps an open connection.
func New(conn Conn) *Archive {
	return &Archive{conn: conn, now: time.Now}
}

// InitSchema creates the archive tables if they don't exist.
func (a *Archive) InitSchema(ctx context.Context) error {
	for _, ddl := range AllTables() {
		if err := a.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("archive: create table: %w", err)
		}
	}
	return nil
}

// SaveAirQuality inserts one reading. A reading without a timestamp is stamped now.
func (a *Archive) SaveAirQuality(ctx context.Context, r airdomain.Reading) error {
	ts := a.now()
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	err := a.conn.Exec(ctx, `
		INSERT INTO air_quality_readings (timestamp, pm25, pm10, no2, o3, co, aqi, temperature, humidity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ts.UTC(), r.PM25, r.PM10, r.NO2, r.O3, r.CO, r.AQI, r.Temperature, r.Humidity,
	)
	if err != nil {
		return fmt.Errorf("archive: insert air quality reading: %w", err)
	}
	return nil
}

// SaveAlert inserts one alert. critical marks alerts that arrived on the critical topic.
func (a *Archive) SaveAlert(ctx context.Context, al alertdomain.Alert, critical bool) error {
	ts := al.Timestamp
	if ts.IsZero() {
		ts = a.now()
	}
	err := a.conn.Exec(ctx, `
		INSERT INTO alerts (timestamp, alert_id, severity, type, parameter, value, message, critical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ts.UTC(), al.ID, string(al.Severity), string(al.Type), string(al.Parameter), al.Value, al.Message, critical,
	)
	if err != nil {
		return fmt.Errorf("archive: insert alert: %w", err)
	}
	return nil
}

// Watch archives every reading and alert published on b until release is called.
// Insert failures are logged and the value dropped.
func (a *Archive) Watch(ctx context.Context, b *bus.Bus) (release func()) {
	stopAir := bus.Watch(b.AirQuality, bus.DefaultBuffer, func(r airdomain.Reading) {
		if err := a.SaveAirQuality(ctx, r); err != nil {
			log.Printf("archive: %v", err)
		}
	})
	stopAlerts := bus.Watch(b.Alerts, bus.DefaultBuffer, func(al alertdomain.Alert) {
		if err := a.SaveAlert(ctx, al, false); err != nil {
			log.Printf("archive: %v", err)
		}
	})
	stopCritical := bus.Watch(b.CriticalAlerts, bus.DefaultBuffer, func(al alertdomain.Alert) {
		if err := a.SaveAlert(ctx, al, true); err != nil {
			log.Printf("archive: %v", err)
		}
	})
	return func() {
		stopAir()
		stopAlerts()
		stopCritical()
	}
}

// Close closes the ClickHouse connection.
func (a *Archive) Close() error {
	if a.conn == nil {
		return nil
	}
	if err := a.conn.Close(); err != nil {
		return fmt.Errorf("archive: close clickhouse connection: %w", err)
	}
	return nil
}
