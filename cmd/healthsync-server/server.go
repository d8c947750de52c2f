package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/healthsync/healthsync/internal/config"
	"github.com/healthsync/healthsync/internal/domain/identity"
	"github.com/healthsync/healthsync/internal/domain/medication"
	"github.com/healthsync/healthsync/internal/domain/pharmacy"
	"github.com/healthsync/healthsync/internal/domain/scheduling"
	"github.com/healthsync/healthsync/internal/domain/visit"
	"github.com/healthsync/healthsync/internal/platform/auth"
	"github.com/healthsync/healthsync/internal/platform/cache"
	"github.com/healthsync/healthsync/internal/platform/db"
	"github.com/healthsync/healthsync/internal/platform/middleware"
	"github.com/healthsync/healthsync/internal/platform/telemetry"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	cachePrefix     = "healthsync:"
)

// deps are the long-lived resources the router is built from. Tracing and
// the Redis client are optional.
type deps struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	cache   cache.Cache
	redis   *cache.Redis
	tracing *telemetry.Provider
	started time.Time
}

// newLogger writes human-readable lines in development and JSON elsewhere.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger.Warn().Msg("running in development mode: internal error details are included in 500 responses")
	}
	return logger
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	d := &deps{cfg: cfg, logger: logger, pool: pool, cache: cache.Noop{}, started: time.Now()}

	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cachePrefix)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		} else {
			defer r.Close()
			d.cache, d.redis = r, r
			logger.Info().Msg("connected to redis")
		}
	}

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "healthsync-server",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	} else {
		d.tracing = tp
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(sctx); err != nil {
				logger.Error().Err(err).Msg("tracer shutdown failed")
			}
		}()
	}

	e := newRouter(d)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newRouter wires middleware, repositories, services and handlers.
func newRouter(d *deps) *echo.Echo {
	cfg := d.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(d.logger, cfg.IsDev())

	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	if d.tracing != nil {
		e.Use(d.tracing.Middleware())
	}
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.Sanitize(d.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(d.cfg.IsProduction()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.Gzip())
	e.Use(middleware.RequestTimeout(requestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(d.started).Seconds(),
		})
	})
	optional := map[string]db.Pinger{"cache": nil}
	if d.redis != nil {
		optional["cache"] = d.redis
	}
	e.GET("/health/db", db.HealthHandler(d.pool, optional))

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.JWTExpiration,
		RefreshTTL:    cfg.JWTRefreshExpiration,
	})
	requireAuth := auth.BearerMiddleware(tokens)
	tx := db.NewTransactor(d.pool)

	// Identity
	userRepo := identity.NewUserRepo(d.pool)
	identitySvc := identity.NewService(userRepo, tokens, cfg.BcryptCost)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1, requireAuth)

	// Visits and prescriptions
	visitRepo := visit.NewVisitRepo(d.pool)
	prescriptionRepo := medication.NewPrescriptionRepo(d.pool)
	visitSvc := visit.NewService(visitRepo, prescriptionRepo, tx)
	visit.NewHandler(visitSvc).RegisterRoutes(apiV1, requireAuth)
	medicationSvc := medication.NewService(prescriptionRepo, visitRepo)
	medication.NewHandler(medicationSvc).RegisterRoutes(apiV1, requireAuth)

	// Appointments
	appointmentSvc := scheduling.NewService(scheduling.NewAppointmentRepo(d.pool), visitRepo)
	scheduling.NewHandler(appointmentSvc).RegisterRoutes(apiV1, requireAuth)

	// Pharmacies and medicines
	pharmacySvc := pharmacy.NewService(
		pharmacy.NewPharmacyRepo(d.pool),
		pharmacy.NewMedicineRepo(d.pool),
		pharmacy.NewInventoryRepo(d.pool),
		d.cache,
		cfg.CacheTTL,
	)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(apiV1)

	return e
}
