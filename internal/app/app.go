package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"themekeys/internal/config"
	"themekeys/internal/infrastructure"
	"themekeys/internal/license"
	customMiddleware "themekeys/internal/middleware"
	"themekeys/internal/registry"
	"themekeys/internal/services"
	transport "themekeys/internal/transport/http"
)

const (
	AppName = "themekeys-licensed"
	Version = "v1.2.0"
)

// closableStore is satisfied by stores owning a connection pool.
type closableStore interface {
	Close() error
}

// Application is the composed licensing server.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        *chi.Mux
	Server        *http.Server
	Store         license.RegistryStore
	Engine        *license.Engine
	OTelProviders *infrastructure.OTelProviders

	LicenseService services.LicenseService
	HealthService  *services.HealthService
}

// NewApplication builds the full dependency graph from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the application from an explicit config.
// Tests use it to swap in the in-memory store.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
	}

	if err := app.initializeStore(); err != nil {
		return nil, err
	}
	if err := app.initializeServices(); err != nil {
		return nil, err
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeStore opens the registry store named by the Driver setting and
// runs migrations for durable backends.
func (a *Application) initializeStore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch a.Config.Database.Driver {
	case "postgres":
		store, err := registry.Connect(ctx,
			a.Config.Database.DSN,
			a.Config.Database.MaxOpenConns,
			a.Config.Database.MaxIdleConns,
			a.Config.Database.ConnMaxLifetime,
			a.Logger,
		)
		if err != nil {
			return fmt.Errorf("connect registry: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate registry: %w", err)
		}
		a.Store = store
	case "memory":
		a.Logger.Warn("using in-memory registry store, data will not survive restarts")
		a.Store = registry.NewMemoryStore()
	default:
		return fmt.Errorf("unknown database driver %q", a.Config.Database.Driver)
	}
	return nil
}

func (a *Application) initializeServices() error {
	metrics, err := license.InitMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("initialize license metrics: %w", err)
	}

	a.Engine = license.NewEngine(a.Store, a.Logger, metrics, license.EngineConfig{
		KeyPrefix:    a.Config.License.KeyPrefix,
		DomainSuffix: a.Config.License.DomainSuffix,
		MaxGenerate:  a.Config.License.MaxGenerate,
	})

	a.LicenseService = services.NewLicenseService(a.Engine, a.Store, a.Logger)
	a.HealthService = services.NewHealthService(Version, a.Store, a.Logger)
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		limiter := customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		r.Use(limiter.Handler)
	}

	licenseHandler := transport.NewLicenseHandler(a.LicenseService, a.Logger)
	adminHandler := transport.NewAdminHandler(a.LicenseService, a.Logger)
	healthHandler := transport.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(api chi.Router) {
		api.Use(customMiddleware.Timeout(30*time.Second, a.Logger))

		api.Mount("/license", licenseHandler.Routes())
		api.Mount("/health", healthHandler.Routes())
		api.Get("/version", healthHandler.Version)

		api.Group(func(admin chi.Router) {
			admin.Use(customMiddleware.AdminAuth(a.Config.Security.AdminToken, a.Logger))
			admin.Mount("/admin", adminHandler.Routes())
		})
	})

	// Scrape endpoint stays outside the middleware chain so Prometheus is
	// never rate limited or logged per request.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Method(http.MethodGet, "/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start begins serving. On listener failure the error is logged and the
// provided cancel is invoked so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("driver", a.Config.Database.Driver),
		slog.String("level", a.Config.Logging.Level),
	)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
	)
	return nil
}

// Stop gracefully shuts the server, store and telemetry down.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if closer, ok := a.Store.(closableStore); ok {
		if err := closer.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "error closing registry store", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down telemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run serves until interrupted, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
