package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/gatekeep/internal/gatekeep/http"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/aussiebroadwan/gatekeep/pkg/ratelimit"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/aussiebroadwan/gatekeep/pkg/tokenx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...BuildVersion=".
var BuildVersion = "v0.1.0"

// Application encapsulates the gatekeep service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	redis       *redis.Client // nil with the memory limiter
	limitStore  ratelimit.Store
	memoryLimit *ratelimit.MemoryStore // nil with the redis limiter

	// Services
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService // nil with the redis limiter

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeep",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.TokenSecret == InsecureTokenSecret {
		app.logger.Warn("using the default TOKEN_SECRET, set a real secret before deploying")
	}
	if cfg.MFAVaultMode == cryptox.VaultModeXOR {
		app.logger.Warn("MFA secrets are stored with reversible XOR obfuscation, set MFA_VAULT_MODE=aead for authenticated encryption")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initLimiter(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.closeResources()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("gatekeep starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"rate_limit_backend", app.cfg.RateLimitBackend,
		"allow_registration", app.cfg.AllowRegistration,
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
			app.stopBackground()
			app.closeResources()
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatekeep...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.stopBackground()

	if err := app.closeResources(); err != nil {
		return err
	}

	app.logger.Info("gatekeep stopped")
	return nil
}

func (app *Application) stopBackground() {
	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
		app.housekeepingService = nil
	}
}

func (app *Application) closeResources() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the user database and applies migrations.
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initLimiter selects the sliding-window store. The memory store is per
// process; with several replicas behind a balancer each admits the full
// limit, so shared deployments use redis.
func (app *Application) initLimiter() error {
	switch app.cfg.RateLimitBackend {
	case LimiterBackendRedis:
		opts, err := redis.ParseURL(app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		app.redis = client
		app.limitStore = ratelimit.NewRedisStore(client, "gatekeep:rl")
		app.logger.Info("rate limiter using redis", "addr", opts.Addr, "db", opts.DB)
	default:
		app.memoryLimit = ratelimit.NewMemoryStore()
		app.limitStore = app.memoryLimit
		app.logger.Info("rate limiter using process memory")
	}
	return nil
}

// initServices initializes the business logic services.
func (app *Application) initServices() error {
	limiter, err := ratelimit.NewLimiter(app.limitStore)
	if err != nil {
		return err
	}

	vault, err := cryptox.NewVault(app.cfg.MFAVaultMode, app.cfg.MFASecretKey, cryptox.DefaultProvider)
	if err != nil {
		return fmt.Errorf("failed to initialize MFA vault: %w", err)
	}

	app.authService = &service.AuthService{
		Store:             app.db,
		Hasher:            cryptox.NewHasher(cryptox.DefaultProvider),
		Tokens:            tokenx.NewCodec(cryptox.DefaultProvider),
		TOTP:              otpx.NewEngine(cryptox.DefaultProvider),
		Vault:             vault,
		Limiter:           limiter,
		TokenSecret:       []byte(app.cfg.TokenSecret),
		TokenTTL:          app.cfg.TokenTTL,
		AllowRegistration: app.cfg.AllowRegistration,
		MFAIssuer:         app.cfg.MFAIssuer,
		RateLimitRequests: app.cfg.RateLimitRequests,
		RateLimitWindow:   app.cfg.RateLimitWindow,
	}

	if app.memoryLimit != nil {
		app.housekeepingService = service.NewHousekeepingService(
			app.memoryLimit,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.AuthService = app.authService
	if rs, ok := app.limitStore.(*ratelimit.RedisStore); ok {
		router.LimiterStore = rs
	}
	router.Use(httpx.CORS(app.cfg.CORSAllowOrigins))
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
