package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	airrepo "envmonitor/console/internal/airquality/repository"
	alertrepo "envmonitor/console/internal/alert/repository"
	alertsvc "envmonitor/console/internal/alert/service"
	"envmonitor/console/internal/audit"
	auditrepo "envmonitor/console/internal/audit/repository"
	authrepo "envmonitor/console/internal/auth/repository"
	authsvc "envmonitor/console/internal/auth/service"
	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/config"
	"envmonitor/console/internal/db"
	"envmonitor/console/internal/db/migrate"
	loginlogrepo "envmonitor/console/internal/loginlog/repository"
	loginlogsvc "envmonitor/console/internal/loginlog/service"
	notifrepo "envmonitor/console/internal/notification/repository"
	notifsvc "envmonitor/console/internal/notification/service"
	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/policy/engine"
	"envmonitor/console/internal/realtime"
	sensorrepo "envmonitor/console/internal/sensor/repository"
	sensorsvc "envmonitor/console/internal/sensor/service"
	"envmonitor/console/internal/session"
	"envmonitor/console/internal/storage"
	"envmonitor/console/internal/telemetry"
	telemetryotel "envmonitor/console/internal/telemetry/otel"
	userrepo "envmonitor/console/internal/user/repository"
	usersvc "envmonitor/console/internal/user/service"
	weatherrepo "envmonitor/console/internal/weather/repository"
	weathersvc "envmonitor/console/internal/weather/service"
)

// loginLogPageSize is the login-log viewer page size.
const loginLogPageSize = 20

// App is the wired console: one session, one REST client and the view-models of every screen.
type App struct {
	cfg     *config.Config
	out     io.Writer
	bus     *bus.Bus
	emitter telemetry.EventEmitter
	guard   engine.Evaluator

	store   storage.Store
	holder  *session.Holder
	audit   *audit.Logger
	client  *api.Client
	live    *realtime.Manager
	closers []func(context.Context) error

	auth     *authsvc.AuthService
	users    *usersvc.Manager
	sensors  *sensorsvc.Manager
	alerts   *alertsvc.Manager
	notifs   *notifsvc.Center
	logs     *loginlogsvc.Viewer
	weather  *weathersvc.Lookup
	compare  *weathersvc.ComparisonLog
	userRepo userrepo.Repository

	airRepo     airrepo.Repository
	sensorRepo  sensorrepo.Repository
	alertRepo   alertrepo.Repository
	loginRepo   loginlogrepo.Repository
	notifRepo   notifrepo.Repository
	weatherRepo weatherrepo.Repository
}

// NewApp opens the local store, restores the session and builds every view-model.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	a := &App{cfg: cfg, out: out, bus: bus.New(), guard: engine.NewOPAEvaluator()}

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	a.emitter = providers.EventEmitter()
	a.closers = append(a.closers, providers.Shutdown)

	if err := migrate.Run(cfg.StoreDSN, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	gdb, err := db.OpenGorm(cfg.StoreDSN, false)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	a.store = storage.NewGormStore(gdb)

	a.holder = session.NewHolder(a.store, a.bus.AuthState, a.emitter)
	if err := a.holder.Hydrate(ctx); err != nil {
		log.Printf("console: restore session: %v", err)
	}
	a.audit = audit.NewLogger(auditrepo.NewGormRepository(gdb), func() string {
		if u, ok := a.holder.User(); ok {
			return u.DisplayName()
		}
		return ""
	})

	a.client, err = api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout(), a.holder,
		api.WithOnUnauthorized(func(ctx context.Context) {
			if err := a.holder.Clear(ctx); err != nil {
				log.Printf("console: clear session after 401: %v", err)
			}
		}),
		api.WithAfterMutation(a.audit.ObserveMutation),
	)
	if err != nil {
		return nil, err
	}

	a.live = realtime.NewManager(cfg, a.bus, a.holder, realtime.WithEmitter(a.emitter))
	a.holder.OnClear(a.live)

	a.notifRepo = notifrepo.NewRESTRepository(a.client)
	a.notifs = notifsvc.NewCenter(a.notifRepo)
	a.auth = authsvc.NewAuthService(authrepo.NewRESTRepository(a.client), a.holder, a.notifs)

	a.userRepo = userrepo.NewRESTRepository(a.client)
	a.users = usersvc.NewManager(a.userRepo, a.emitter)
	a.sensorRepo = sensorrepo.NewRESTRepository(a.client)
	a.sensors = sensorsvc.NewManager(a.sensorRepo, a.emitter)
	a.alertRepo = alertrepo.NewRESTRepository(a.client)
	a.alerts = alertsvc.NewManager(a.alertRepo, a.emitter)
	a.loginRepo = loginlogrepo.NewRESTRepository(a.client)
	a.logs = loginlogsvc.NewViewer(a.loginRepo, loginLogPageSize, a.emitter)
	a.weatherRepo = weatherrepo.NewRESTRepository(a.client)
	a.weather = weathersvc.NewLookup(a.weatherRepo)
	a.compare = weathersvc.NewComparisonLog(a.store)
	a.airRepo = airrepo.NewRESTRepository(a.client)
	return a, nil
}

// Authorize runs the route guard for path against the current session.
func (a *App) Authorize(ctx context.Context, path string) error {
	return engine.Authorize(ctx, a.guard, path, a.holder)
}

// Close stops the realtime channels, flushes telemetry and closes the local store.
func (a *App) Close(ctx context.Context) {
	a.live.Disconnect()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Printf("console: shutdown: %v", err)
		}
	}
	a.bus.Close()
}

// actor names the signed-in user for telemetry.
func (a *App) actor() string {
	if u, ok := a.holder.User(); ok {
		return u.DisplayName()
	}
	return ""
}
