package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/slotmarket/quota-api/internal/app"
	"github.com/slotmarket/quota-api/internal/cache"
	"github.com/slotmarket/quota-api/internal/clock"
	"github.com/slotmarket/quota-api/internal/config"
	"github.com/slotmarket/quota-api/internal/storage/postgres"
	transporthttp "github.com/slotmarket/quota-api/internal/transport/http"
	"github.com/slotmarket/quota-api/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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

	clk := clock.NewSystem()
	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(reservationRepo, clk,
		app.WithCartTTL(cfg.CartTTL),
		app.WithPaymentTerm(cfg.PaymentTerm),
	)
	availabilitySvc := app.NewAvailabilityService(reservationRepo, clk)
	adminRepo := postgres.NewAdminRepository(pool)
	adminSvc := app.NewAdminService(adminRepo, clk)

	var (
		availability transporthttp.AvailabilityChecker = availabilitySvc
		admin        transporthttp.AdminAPI            = adminSvc
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(startupCtx).Err(); err != nil {
			logger.Warn("redis unreachable, availability reads are uncached", zap.Error(err))
		} else {
			ac := cache.NewAvailabilityCache(availabilitySvc, rdb)
			availability = ac
			admin = cache.NewInvalidatingAdmin(adminSvc, ac)
			logger.Info("availability cache enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/health", transporthttp.HandleHealth(pool))
	mux.Handle("/availability", transporthttp.HandleCheckAvailability(availability))
	mux.Handle("/holds", transporthttp.HandleCreateHold(reservationSvc))
	mux.Handle("/holds/", transporthttp.HandleHoldActions(reservationSvc))
	mux.Handle("/orders/", transporthttp.HandleOrderActions(reservationSvc))
	mux.Handle("/admin/quotas", transporthttp.HandleAdminQuotas(admin))
	mux.Handle("/admin/quotas/", transporthttp.HandleAdminQuotaVariants(admin))
	mux.Handle("/admin/variants", transporthttp.HandleAdminVariants(admin))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(
		transporthttp.RateLimit(cfg.RateLimit, cfg.RateBurst,
			transporthttp.CORS(cfg.CORSOrigins, mux),
		),
		logger,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SweepEnabled {
		sweeper := app.NewSweeper(reservationRepo, clk, logger,
			app.WithSweepInterval(cfg.SweepInterval),
			app.WithSweepRetention(cfg.SweepRetention),
		)
		go sweeper.Run(stopCtx)
	}

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
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

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
