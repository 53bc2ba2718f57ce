package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carenest/patient-portal/cmd/mainconfig"
	"github.com/carenest/patient-portal/internal/api/router"
	"github.com/carenest/patient-portal/internal/app/bootstrap"
	"github.com/carenest/patient-portal/internal/appointments"
	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/internal/booking"
	"github.com/carenest/patient-portal/internal/bookings"
	"github.com/carenest/patient-portal/internal/careapi"
	appconfig "github.com/carenest/patient-portal/internal/config"
	"github.com/carenest/patient-portal/internal/doctors"
	"github.com/carenest/patient-portal/internal/http/handlers"
	httpmiddleware "github.com/carenest/patient-portal/internal/http/middleware"
	"github.com/carenest/patient-portal/internal/i18n"
	"github.com/carenest/patient-portal/internal/notify"
	"github.com/carenest/patient-portal/internal/observability/metrics"
	"github.com/carenest/patient-portal/pkg/logging"
)

const rateLimiterIdle = 10 * time.Minute

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting patient-portal API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create HTTP server. WriteTimeout stays zero so notification streams
	// are not cut.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns the /metrics handler and the booking metrics
// registered on a dedicated registry.
func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// buildApp wires every collaborator and returns the root handler. cleanup
// releases the Redis and Postgres connections.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	catalog, err := i18n.Load(cfg.DefaultLanguage)
	if err != nil {
		return nil, cleanup, err
	}
	metricsHandler, bookingMetrics := setupMetrics()

	var rdb redis.UniversalClient
	if client := bootstrap.BuildRedisClient(ctx, cfg, logger, true); client != nil {
		rdb = client
		closers = append(closers, func() { _ = client.Close() })
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("redis disabled; drafts and caches are kept in memory")
	}

	pool, sqlDB, err := bootstrap.BuildPostgres(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if pool != nil {
		closers = append(closers, pool.Close, func() { _ = sqlDB.Close() })
	}

	careClient := careapi.NewClient(cfg.CareAPIBaseURL, cfg.CareAPITimeout, logger)

	// Caches and draft storage
	var drafts booking.DraftStore = booking.NewMemoryStore(cfg.DraftTTL)
	if rdb != nil {
		drafts = booking.NewRedisStore(rdb, cfg.DraftTTL)
	}
	sharedCache := bootstrap.BuildCache(rdb, "portal")

	directory := doctors.NewDirectory(careClient, sharedCache, cfg.DoctorCacheTTL, logger)
	appointmentsSvc := appointments.NewService(careClient, sharedCache, cfg.AppointmentsCacheTTL, logger)
	center := notify.NewCenter(bookingMetrics, logger)

	sesClient, err := mainconfig.NewSESClient(ctx, cfg)
	if err != nil {
		logger.Warn("failed to load AWS config; SES disabled", "error", err)
	}
	mailer := notify.NewConfirmationMailer(bootstrap.BuildEmailSender(cfg, sesClient, logger), catalog, logger)

	opts := []booking.Option{
		booking.WithRefresher(appointmentsSvc),
		booking.WithMailer(mailer),
		booking.WithMetrics(bookingMetrics),
	}
	var bookingsHandler *bookings.Handler
	if pool != nil {
		ledger := bookings.NewLedger(bookings.NewRepository(pool), logger)
		opts = append(opts, booking.WithRecorder(ledger))
		bookingsHandler = bookings.NewHandler(ledger, logger)
	}

	loc := cfg.Location()
	bookingSvc := booking.NewService(
		drafts,
		directory,
		booking.NewSlotFetcher(careClient, cfg.SlotFetchTimeout, bookingMetrics, logger),
		booking.NewSubmitter(careClient, loc, bookingMetrics, logger),
		center,
		catalog,
		booking.Config{
			Rules: booking.Rules{
				ReasonMinLength: cfg.ReasonMinLength,
				ReasonMaxLength: cfg.ReasonMaxLength,
			},
			Location:          loc,
			ConfirmationDelay: cfg.ConfirmationDelay,
		},
		logger,
		opts...,
	)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go sweepRateLimiter(ctx, limiter, logger)

	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET is empty; patient routes will reject every request")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		AuthJWTSecret:      cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		MetricsHandler:     metricsHandler,
		Health:             handlers.NewHealthHandler(sqlDB, rdb, logger),
		Catalog:            catalog,
		Auth:               auth.NewHandler(careClient, catalog, logger, bookingSvc.Discard, appointmentsSvc.Forget),
		Doctors:            doctors.NewHandler(directory, logger),
		Booking:            booking.NewHandler(bookingSvc, catalog, logger),
		Appointments:       appointments.NewHandler(appointmentsSvc, logger),
		Notifications:      notify.NewHandler(center, logger),
		Bookings:           bookingsHandler,
	})
	return r, cleanup, nil
}

func sweepRateLimiter(ctx context.Context, limiter *httpmiddleware.RateLimiter, logger *logging.Logger) {
	ticker := time.NewTicker(rateLimiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(rateLimiterIdle); n > 0 {
				logger.Debug("rate limiter sweep", "evicted", n)
			}
		}
	}
}
