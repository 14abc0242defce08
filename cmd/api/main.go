package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/api/router"
	appbootstrap "github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/app/bootstrap"
	appconfig "github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/config"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/observability/metrics"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/schedule"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/pkg/logging"
)

func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic scheduling API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := appbootstrap.BuildPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	backends := appbootstrap.BuildScheduleBackends(pool, logger)
	defer backends.Close()

	redisClient := appbootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	slotCache := appbootstrap.BuildSlotCache(redisClient, cfg.SlotCacheTTL)

	metricsHandler, schedulingMetrics := setupSchedulingMetrics()
	service := schedule.NewService(backends.Repository, backends.Appointments, logger,
		schedule.WithSlotCache(slotCache),
		schedule.WithMetrics(schedulingMetrics),
	)

	if deliverer := appbootstrap.BuildOutboxDeliverer(cfg, pool, slotCache, logger.Component("outbox")); deliverer != nil {
		go deliverer.Start(ctx)
		logger.Info("outbox deliverer started", "interval", cfg.OutboxPollInterval)
	}

	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		ScheduleHandler:    schedule.NewHandler(service, cfg.DefaultSlotMinutes, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       checks,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, srv, logger)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func setupSchedulingMetrics() (http.Handler, *metrics.SchedulingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewSchedulingMetrics(reg)
}
