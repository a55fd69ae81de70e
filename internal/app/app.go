package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"exitsurvey/internal/config"
	"exitsurvey/internal/errors"
	"exitsurvey/internal/infrastructure"
	customMiddleware "exitsurvey/internal/middleware"
	"exitsurvey/internal/services"
	"exitsurvey/internal/session"
	"exitsurvey/internal/survey"
	handlers "exitsurvey/internal/transport/http"
)

const AppName = "Exit Survey Analytics"

var (
	// Version and BuildTime are set at link time.
	Version   = "dev"
	BuildTime = ""
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Instrument    *survey.Instrument
	Sessions      *session.Store
	SurveyService *services.SurveyService
	HealthService *services.HealthService
	ErrorHandler  *errors.ErrorHandler
	Metrics       *infrastructure.SurveyMetrics
	OTelProviders *infrastructure.OTelProviders
	Logger        *slog.Logger
}

// NewApplication loads configuration from the environment and builds the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg, infrastructure.InitializeLogger(cfg.Logging))
}

// New wires an application from cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.ServiceName = cfg.Telemetry.ServiceName
	otelCfg.ServiceVersion = Version
	otelCfg.EnableMetrics = cfg.Telemetry.MetricsEnabled
	otelCfg.EnableTracing = cfg.Telemetry.TracingEnabled
	if cfg.Telemetry.TracingEnabled {
		otelCfg.TraceExporter = "stdout"
	}
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewSurveyMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create survey metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		Metrics:       metrics,
		OTelProviders: otelProviders,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	inst := survey.DefaultInstrument()
	if path := a.Config.Survey.InstrumentFile; path != "" {
		loaded, err := survey.LoadInstrument(path)
		if err != nil {
			return fmt.Errorf("failed to load instrument %s: %w", path, err)
		}
		inst = loaded
		a.Logger.Info("Instrument loaded from file",
			slog.String("path", path),
			slog.String("instrument", inst.Version))
	}
	a.Instrument = inst

	a.Sessions = session.NewStore(a.Config.Survey.SessionTTL, a.Config.Survey.MaxSessions,
		session.WithSizeObserver(func(delta int) {
			a.Metrics.ActiveSessions.Add(context.Background(), int64(delta))
		}))

	a.SurveyService = services.NewSurveyService(inst, a.Sessions, a.Logger,
		services.WithMetrics(a.Metrics),
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithMaxUploadBytes(a.Config.Survey.MaxUploadBytes),
	)
	a.HealthService = services.NewHealthService(Version, BuildTime, inst, a.Sessions, a.Logger)
	return nil
}

// setupRouter builds the chi router. Order: RequestID, RealIP, OTel,
// StructuredLogger, Recoverer, SecurityHeaders, CORS, rate limit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	// Must precede Route so mounted subrouters inherit them.
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler, a.Config.Survey.MaxUploadBytes)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	surveyHandler := handlers.NewSurveyHandler(a.SurveyService, validation, a.ErrorHandler, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/surveys", surveyHandler.Routes())
	})
}

// getCORSConfig returns the CORS settings for the configured origins
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			"Content-Disposition",
			"Location",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the session sweeper and the HTTP server. A listener failure
// calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("address", a.Server.Addr),
		slog.String("instrument", a.Instrument.Version),
		slog.String("level", a.Config.Logging.Level))

	a.Sessions.Start(a.Config.Survey.SweepInterval, func(removed int) {
		a.Logger.InfoContext(ctx, "Expired survey sessions removed", slog.Int("removed", removed))
	})

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://%s", a.Server.Addr)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Sessions.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be canceled; shutdown still gets its full timeout.
	return a.Stop(context.WithoutCancel(ctx))
}
