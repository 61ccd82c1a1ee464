// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/hotel-admin/internal/account"
	accountpostgres "github.com/bissquit/hotel-admin/internal/account/postgres"
	"github.com/bissquit/hotel-admin/internal/admin"
	adminpostgres "github.com/bissquit/hotel-admin/internal/admin/postgres"
	"github.com/bissquit/hotel-admin/internal/auth"
	"github.com/bissquit/hotel-admin/internal/auth/jwt"
	"github.com/bissquit/hotel-admin/internal/config"
	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/ctxlog"
	"github.com/bissquit/hotel-admin/internal/pkg/httputil"
	"github.com/bissquit/hotel-admin/internal/pkg/metrics"
	"github.com/bissquit/hotel-admin/internal/pkg/password"
	"github.com/bissquit/hotel-admin/internal/pkg/postgres"
	"github.com/bissquit/hotel-admin/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config           *config.Config
	logger           *slog.Logger
	db               *pgxpool.Pool
	server           *http.Server
	metricsServer    *http.Server
	backgroundCancel context.CancelFunc
}

// New creates a new application instance: it connects to the database,
// applies migrations when enabled, creates the bootstrap admin and builds
// the router.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.MigrationsPath, cfg.Database.URL); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())

	app := &App{
		config:           cfg,
		logger:           logger,
		db:               db,
		backgroundCancel: backgroundCancel,
	}

	go app.collectDBMetrics(backgroundCtx)

	router, err := app.setupRouter(backgroundCtx, connectCtx)
	if err != nil {
		db.Close()
		backgroundCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.backgroundCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	shutdown := func(name string, srv *http.Server) {
		defer wg.Done()
		if err := srv.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
			mu.Unlock()
		}
	}

	wg.Add(2)
	go shutdown("server", a.server)
	go shutdown("metrics server", a.metricsServer)
	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// sweepVisitors drops idle rate limiter entries every ttl.
func (a *App) sweepVisitors(ctx context.Context, limiter *httputil.RateLimiter, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// throttle returns the middleware guarding login and registration.
func (a *App) throttle(ctx context.Context) func(http.Handler) http.Handler {
	cfg := a.config.RateLimit
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := httputil.NewRateLimiter(cfg.RPS, cfg.Burst, cfg.TTL)
	go a.sweepVisitors(ctx, limiter, cfg.TTL)
	return limiter.Middleware
}

func (a *App) setupRouter(backgroundCtx, startupCtx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	location, err := a.config.Reporting.Location()
	if err != nil {
		return nil, err
	}

	hasher := password.NewBcrypt(a.config.Password.BcryptCost)

	accountService := account.NewService(accountpostgres.NewRepository(a.db), hasher, account.Config{
		DefaultRoleID: domain.DefaultAccountRoleID,
		Location:      location,
	})
	accountHandler := account.NewHandler(accountService)

	adminService := admin.NewService(adminpostgres.NewRepository(a.db), hasher, admin.Config{
		ResetPassword:           a.config.Admin.ResetPassword,
		GeneratedPasswordLength: a.config.Admin.GeneratedPasswordLength,
	})
	adminHandler := admin.NewHandler(adminService)

	if login := a.config.Admin.BootstrapLogin; login != "" {
		ctx := ctxlog.WithLogger(startupCtx, a.logger)
		if _, err := adminService.EnsureBootstrapAdmin(ctx, login, a.config.Admin.BootstrapPassword); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	tokens := jwt.NewAuthenticator(jwt.Config{
		SecretKey:     a.config.JWT.SecretKey,
		Issuer:        a.config.JWT.Issuer,
		TokenDuration: a.config.JWT.TokenDuration,
	})
	authHandler := auth.NewHandler(auth.NewService(hasher, tokens), accountService, adminService)

	throttle := a.throttle(backgroundCtx)

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-yaml")
			http.ServeFile(w, r, "api/openapi/openapi.yaml")
		})

		accountHandler.RegisterRoutes(r, throttle)

		r.Group(func(r chi.Router) {
			r.Use(throttle)
			authHandler.RegisterAccountRoutes(r)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(throttle)
			authHandler.RegisterStaffRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(tokens))
			r.Use(authHandler.CurrentPrincipal)
			r.Use(httputil.RequireAuthority(domain.RoleCodeAdmin))

			adminHandler.RegisterRoutes(r)
			accountHandler.RegisterAdminRoutes(r)
		})
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
