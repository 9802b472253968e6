// Relay keeps the realtime channels of a signed-in session open and fans live traffic out:
// to Kafka (KAFKA_BROKERS, RELAY_KAFKA_TOPIC), to the ClickHouse archive (CLICKHOUSE_ADDR) and,
// with MQTT_BROKER_URL set, straight from the broker onto the same bus.
// Sign in once with the console first; the relay reuses the stored session.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"envmonitor/console/internal/archive"
	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/config"
	"envmonitor/console/internal/db"
	"envmonitor/console/internal/db/migrate"
	"envmonitor/console/internal/mqttbridge"
	"envmonitor/console/internal/realtime"
	"envmonitor/console/internal/relay"
	"envmonitor/console/internal/session"
	"envmonitor/console/internal/storage"
	"envmonitor/console/internal/telemetry"
	telemetryotel "envmonitor/console/internal/telemetry/otel"
	"envmonitor/console/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := providers.EventEmitter()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("relay: telemetry shutdown: %v", err)
		}
	}()

	if err := migrate.Run(cfg.StoreDSN, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate local store: %v", err)
	}
	gdb, err := db.OpenGorm(cfg.StoreDSN, false)
	if err != nil {
		log.Fatalf("open local store: %v", err)
	}

	b := bus.New()
	defer b.Close()

	holder := session.NewHolder(storage.NewGormStore(gdb), b.AuthState, emitter)
	if err := holder.Hydrate(ctx); err != nil {
		log.Printf("relay: restore session: %v", err)
	}
	if !holder.IsAuthenticated() {
		log.Fatal("relay: no stored session; run `console login` first")
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.RelayKafkaTopic)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		defer relay.Forward(ctx, b, kafkaProducer)()
		log.Printf("relay: forwarding to kafka topic %s", kafkaProducer.Topic())
	}

	arch, err := archive.Open(ctx, archive.FromConfig(cfg))
	switch {
	case errors.Is(err, archive.ErrDisabled):
	case err != nil:
		log.Fatalf("archive: %v", err)
	default:
		defer arch.Close()
		defer arch.Watch(ctx, b)()
		log.Printf("relay: archiving to clickhouse at %s", cfg.ClickHouseAddr)
	}

	if cfg.MQTTBrokerURL != "" {
		bridge := mqttbridge.New(mqttbridge.FromConfig(cfg), b)
		if err := bridge.Start(); err != nil {
			log.Fatalf("mqtt bridge: %v", err)
		}
		defer bridge.Close()
	}

	live := realtime.NewManager(cfg, b, holder, realtime.WithEmitter(emitter))
	holder.OnClear(live)
	live.Connect(ctx)
	defer live.Disconnect()

	if kafkaProducer == nil && arch == nil {
		log.Println("relay: no kafka brokers or clickhouse address configured; events are only logged")
		defer bus.Watch(b.Connection, bus.DefaultBuffer, func(ev bus.ConnectionEvent) {
			log.Printf("relay: %s %s", ev.Channel, ev.State)
		})()
	}

	log.Println("relay: running")
	<-ctx.Done()
	log.Println("relay: shutting down...")
}
