package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Anabol1ks/hotel-booking/internal/app"
	"github.com/Anabol1ks/hotel-booking/internal/auth"
	"github.com/Anabol1ks/hotel-booking/internal/availability"
	"github.com/Anabol1ks/hotel-booking/internal/clock"
	"github.com/Anabol1ks/hotel-booking/internal/config"
	"github.com/Anabol1ks/hotel-booking/internal/logging"
	"github.com/Anabol1ks/hotel-booking/internal/storage/postgres"
	transporthttp "github.com/Anabol1ks/hotel-booking/internal/transport/http"
	"github.com/Anabol1ks/hotel-booking/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET must be set")
	}

	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	reservations := postgres.NewReservationRepository(pool)
	rooms := postgres.NewRoomRepository(pool)
	users := postgres.NewUserRepository(pool)

	// Rebuild the in-memory interval index from rows that still claim
	// their date ranges. The index and the rows must agree before the
	// first request is served.
	index := availability.NewIndex()
	entries, err := reservations.ActiveEntries(startupCtx)
	if err != nil {
		logger.Fatal("hydrate availability index", zap.Error(err))
	}
	index.Hydrate(entries)
	logger.Info("availability index hydrated", zap.Int("entries", len(entries)))

	clk := clock.NewSystem()
	svc := app.NewBookingService(
		reservations, rooms, users, users, index, clk, logger,
		app.WithHoldWindow(cfg.HoldWindow()),
		app.WithOpTimeout(cfg.OpTimeout()),
	)

	sweeper := app.NewExpirySweeper(reservations, index, clk, logger, cfg.SweepInterval())

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	router := transporthttp.NewRouter(svc, tokens, logger, cfg.CORSOrigins)

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(stopCtx)

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("port", cfg.AppPort))
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
