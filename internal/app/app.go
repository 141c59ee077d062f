package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tabwave/payvault/internal/domain"
	httpapi "github.com/tabwave/payvault/internal/http"
	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/internal/store"
	redisstore "github.com/tabwave/payvault/internal/store/drivers/redis"
	"github.com/tabwave/payvault/internal/store/drivers/sqlite"
	"github.com/tabwave/payvault/pkg/jwtx"
	"github.com/tabwave/payvault/pkg/slogx"
	"github.com/tabwave/payvault/pkg/urlguard"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires every component together and owns their lifecycles.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	sessions store.Sessions
	rdb      *goredis.Client // nil unless SessionBackend=redis

	authService         *service.AuthService
	userService         *service.UserService
	balanceService      *service.BalanceService
	merchantService     *service.MerchantService
	auditService        *service.AuditService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "payvault",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.AccessTokenSecret == cfg.StepUpTokenSecret {
		// Disjoint keys per token class is the whole point.
		return nil, errors.New("access and step-up token secrets must differ")
	}

	access, err := jwtx.NewHS256([]byte(cfg.AccessTokenSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("access token key: %w", err)
	}
	stepUp, err := jwtx.NewHS256([]byte(cfg.StepUpTokenSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("step-up token key: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(access, stepUp); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.bootstrapAdmin(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP(access)

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("payvault starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"session_backend", app.cfg.SessionBackend,
		"refresh_rotation", app.cfg.RefreshRotation,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server, the background sweeper, and the
// stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down payvault...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("payvault stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initSessions() error {
	switch app.cfg.SessionBackend {
	case "", "sqlite":
		app.sessions = app.db.Sessions()
	case "redis":
		if app.cfg.RedisAddr == "" {
			return errors.New("SESSION_BACKEND=redis requires REDIS_ADDR")
		}
		app.rdb = goredis.NewClient(&goredis.Options{Addr: app.cfg.RedisAddr})
		if err := app.rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		app.sessions = redisstore.New(app.rdb)
	default:
		return fmt.Errorf("unknown session backend %q", app.cfg.SessionBackend)
	}
	return nil
}

func (app *Application) initServices(access, stepUp *jwtx.HS256) error {
	app.auditService = &service.AuditService{
		Store:  app.db,
		Logger: app.logger,
	}

	auth, err := service.NewAuthService(service.AuthService{
		Store:         app.db,
		Sessions:      app.sessions,
		Access:        access,
		StepUp:        stepUp,
		Rand:          rand.Reader,
		AccessTTL:     app.cfg.AccessTokenTTL,
		RefreshTTL:    app.cfg.RefreshTokenTTL,
		StepUpTTL:     app.cfg.StepUpTokenTTL,
		RotateRefresh: app.cfg.RefreshRotation,
		Audit:         app.auditService,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	app.authService = auth

	app.userService = &service.UserService{Store: app.db, Audit: app.auditService}
	app.balanceService = &service.BalanceService{Store: app.db, Audit: app.auditService}
	app.merchantService = &service.MerchantService{
		Store:     app.db,
		Validator: urlguard.New(app.cfg.CallbackAllowedHosts),
		Audit:     app.auditService,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.sessions, app.logger, app.cfg.HousekeepingInterval)

	return nil
}

// bootstrapAdmin seeds the first admin account from config when the
// database is empty, so a fresh deployment is usable without manual SQL.
func (app *Application) bootstrapAdmin() error {
	if app.cfg.BootstrapAdminEmail == "" || app.cfg.BootstrapAdminPassword == "" {
		return nil
	}

	ctx := context.Background()
	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap check failed: %w", err)
	}
	if !empty {
		return nil
	}

	user, err := app.userService.Create(ctx,
		app.cfg.BootstrapAdminEmail, app.cfg.BootstrapAdminPassword, domain.RoleAdmin, "")
	if err != nil {
		return fmt.Errorf("bootstrap admin creation failed: %w", err)
	}

	app.logger.Info("bootstrap admin created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (app *Application) initHTTP(access *jwtx.HS256) {
	router := httpapi.NewRouter(access, BuildVersion, app.db, app.sessions, app.logger)
	router.AuthService = app.authService
	router.UserService = app.userService
	router.BalanceService = app.balanceService
	router.MerchantService = app.merchantService
	router.AuditService = app.auditService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
