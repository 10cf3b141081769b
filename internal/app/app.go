package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"seopilot/internal/auth"
	"seopilot/internal/config"
	"seopilot/internal/content"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	"seopilot/internal/license"
	"seopilot/internal/operations"
	"seopilot/internal/optimizer"
	"seopilot/internal/store"
	handlers "seopilot/internal/transport/http"
	"seopilot/internal/validation"
	ws "seopilot/internal/websocket"
	"seopilot/pkg/contracts"
)

// Application holds every wired component. It replaces a global plugin
// singleton: each dependency is built once here and passed down explicitly.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	OTel    *infrastructure.OTelProviders
	Metrics *infrastructure.BusinessMetrics

	Store    store.Store
	Content  *content.Service
	Items    *content.ItemRepository
	Licenses *license.Repository

	LicenseClient *license.Client
	LicenseCache  *license.Cache
	LicenseGate   *license.Gate
	Scheduler     *license.Scheduler

	Optimizer *optimizer.Service
	Runner    *operations.Runner
	Jobs      *operations.MemoryJobStore
	Hub       *ws.Hub
	Auth      *auth.Service
	Gateway   *handlers.Gateway

	Router http.Handler
	Server *http.Server
}

// Option overrides a component built by New
type Option func(*options)

type options struct {
	store     store.Store
	generator optimizer.Generator
	otel      *infrastructure.OTelProviders
}

// WithStore injects an already opened store
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithGenerator replaces the configured text generator
func WithGenerator(g optimizer.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithTelemetry replaces the OpenTelemetry providers
func WithTelemetry(p *infrastructure.OTelProviders) Option {
	return func(o *options) { o.otel = p }
}

// New wires the application from cfg. Nothing is started; call Run.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &Application{Config: cfg, Logger: logger}

	if err := a.initializeTelemetry(o.otel); err != nil {
		return nil, err
	}
	if err := a.initializeStore(ctx, o.store); err != nil {
		return nil, err
	}
	if err := a.initializeServices(ctx, o.generator); err != nil {
		a.Store.Close()
		return nil, err
	}
	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeTelemetry sets up tracing and the business metrics
func (a *Application) initializeTelemetry(providers *infrastructure.OTelProviders) error {
	if providers == nil {
		var err error
		providers, err = infrastructure.InitializeOTel(a.Config.Telemetry, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}
	a.OTel = providers

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics
	return nil
}

// initializeStore opens the configured option store
func (a *Application) initializeStore(ctx context.Context, s store.Store) error {
	if s == nil {
		var err error
		s, err = store.Open(ctx, a.Config.Store, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
	}
	a.Store = s
	return nil
}

// initializeServices builds the domain services in dependency order
func (a *Application) initializeServices(ctx context.Context, generator optimizer.Generator) error {
	cfg := a.Config
	tracer := a.OTel.Tracer
	v := validation.New()

	a.Content = content.NewService(a.Store, v, cfg.Content.CustomPostTypes, a.Logger)
	if err := a.Content.Install(ctx); err != nil {
		return fmt.Errorf("failed to install content defaults: %w", err)
	}
	a.Items = content.NewItemRepository(a.Store)

	a.Licenses = license.NewRepository(a.Store)
	a.LicenseClient = license.NewClient(cfg.License, a.Licenses, a.Logger, tracer, a.Metrics)
	a.LicenseCache = license.NewCache(a.Licenses, a.LicenseClient, cfg.License.CacheTTL, a.Logger, a.Metrics)
	a.LicenseGate = license.NewGate(a.Licenses)

	scheduler, err := license.NewScheduler(a.LicenseCache, cfg.License.Schedule, cfg.License.CheckTimeout+5*time.Second, a.Logger)
	if err != nil {
		return err
	}
	a.Scheduler = scheduler

	if generator == nil {
		llm, err := optimizer.NewLLMGenerator(cfg.AI)
		if err != nil {
			a.Logger.WarnContext(ctx, "Text generation unavailable, optimizations will fail until configured",
				slog.String("provider", cfg.AI.Provider),
				slog.String("error", err.Error()))
			generator = optimizer.Unavailable()
		} else {
			generator = llm
		}
	}
	a.Optimizer = optimizer.NewService(a.LicenseGate, a.Items, a.Content, generator, a.Logger, tracer, a.Metrics)

	a.Hub = ws.NewHub(a.Logger)
	broadcaster := operations.NewStatusBroadcaster(a.Hub, a.Logger)
	a.Hub.WithReplay(broadcaster.Snapshot)
	a.Jobs = operations.NewMemoryJobStore()
	a.Runner = operations.NewRunner(a.LicenseGate, a.Optimizer, a.Jobs, broadcaster,
		a.Logger, tracer, a.Metrics)

	a.Auth = auth.NewService(cfg.Auth, cfg.AllUsers(), a.Store, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	errs := apierrors.NewErrorHandler(a.Logger, false)
	v := validation.New()

	a.Gateway = handlers.NewGateway(a.Auth, v, errs, a.Logger, a.OTel.Tracer)
	handlers.RegisterActions(a.Gateway, handlers.ActionDeps{
		Content:   a.Content,
		Optimizer: a.Optimizer,
		Runner:    a.Runner,
		Licenses:  a.Licenses,
		Client:    a.LicenseClient,
		Cache:     a.LicenseCache,
	})

	a.Router = handlers.NewRouter(handlers.RouterDeps{
		Security:       a.Config.Security,
		Logger:         a.Logger,
		Tracer:         a.OTel.Tracer,
		Metrics:        a.Metrics,
		Errors:         errs,
		Sessions:       a.Auth,
		Gateway:        a.Gateway,
		Session:        handlers.NewSessionHandler(a.Auth, v, errs, a.Logger),
		Items:          handlers.NewItemHandler(a.Items, a.Content, v, errs, a.Logger),
		Health:         handlers.NewHealthHandler(a.Store, a.Licenses, a.Logger).WithJobStats(a.Jobs).WithHubStats(a.Hub),
		WebSocket:      ws.NewHandler(a.Hub, a.Config.Security.AllowedOrigins, a.Logger),
		PrometheusHTTP: a.OTel.PrometheusHTTP,
	})

	a.Logger.Info("Router configured", slog.Int("actions", len(a.Gateway.Actions())))
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP and runs the hub and the license scheduler until ctx is
// done or one of them fails, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("store", a.Config.Store.Driver),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Hub.Run(gctx) })
	g.Go(func() error { return a.Scheduler.Run(gctx) })
	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the HTTP server and releases resources
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.OTel.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close error: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}
