package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicops/admissions/internal/admission"
	"github.com/clinicops/admissions/internal/clock"
	"github.com/clinicops/admissions/internal/config"
	v1 "github.com/clinicops/admissions/internal/handler/v1"
	"github.com/clinicops/admissions/internal/repository"
	"github.com/clinicops/admissions/pkg/auth"
	"github.com/clinicops/admissions/pkg/database"
	"github.com/clinicops/admissions/pkg/logger"
	"github.com/clinicops/admissions/pkg/metrics"
	"github.com/clinicops/admissions/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	clk, err := clock.New(cfg.Clinic)
	if err != nil {
		return err
	}

	var locker admission.Locker
	switch cfg.Lock.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		locker = admission.NewRedisLocker(rdb, cfg.Lock.TTL)
	default:
		locker = admission.NewKeyedLocker(cfg.Lock.AcquireTimeout)
	}

	collector := metrics.NewCollector("admissions")
	store := repository.NewStore(db)
	svc := admission.NewService(store, locker, clk, admission.PolicyFromConfig(cfg.Clinic), log, collector)

	verifier := auth.NewVerifier(cfg.JWT)
	handler := v1.NewAdmissionHandler(svc, log)
	router := v1.NewRouter(cfg, log, collector, verifier, handler)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("admissions api listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("clinic_timezone", cfg.Clinic.Timezone),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	return nil
}
