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

	"github.com/angelmondragon/campuspoints-backend/api/routes"
	"github.com/angelmondragon/campuspoints-backend/internal/auth"
	"github.com/angelmondragon/campuspoints-backend/internal/events"
	"github.com/angelmondragon/campuspoints-backend/internal/ledger"
	"github.com/angelmondragon/campuspoints-backend/internal/promotions"
	"github.com/angelmondragon/campuspoints-backend/internal/transactions"
	"github.com/angelmondragon/campuspoints-backend/internal/users"
	"github.com/angelmondragon/campuspoints-backend/pkg/auth/session"
	"github.com/angelmondragon/campuspoints-backend/pkg/config"
	"github.com/angelmondragon/campuspoints-backend/pkg/db"
	"github.com/angelmondragon/campuspoints-backend/pkg/instance"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/metrics"
	"github.com/angelmondragon/campuspoints-backend/pkg/migrate"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox"
	"github.com/angelmondragon/campuspoints-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	var ledgerMetrics *metrics.LedgerMetrics
	if cfg.Metrics.Enabled {
		ledgerMetrics = metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn), logg, ledgerMetrics)
	if err != nil {
		exitOnInit(logg, "ledger", err)
	}
	promotionService, err := promotions.NewService(promotions.NewRepository(conn), logg)
	if err != nil {
		exitOnInit(logg, "promotions", err)
	}
	eventService, err := events.NewService(events.NewRepository(conn), dbClient, logg)
	if err != nil {
		exitOnInit(logg, "events", err)
	}
	transactionService, err := transactions.NewService(transactions.ServiceParams{
		Repo:          transactions.NewRepository(conn),
		Tx:            dbClient,
		Ledger:        ledgerService,
		Promotions:    promotionService,
		Events:        eventService,
		Outbox:        outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:        logg,
		CentsPerPoint: cfg.Loyalty.CentsPerPoint,
	})
	if err != nil {
		exitOnInit(logg, "transactions", err)
	}
	userService, err := users.NewService(users.ServiceParams{
		Repo:        userRepo,
		Promotions:  promotionService,
		ResetTokens: redisClient,
		Password:    cfg.Password,
		Logger:      logg,
	})
	if err != nil {
		exitOnInit(logg, "users", err)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		ResetTokens:    redisClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetTokenTTL:  cfg.Loyalty.ResetTokenTTL,
		Logger:         logg,
	})
	if err != nil {
		exitOnInit(logg, "auth", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			userService,
			transactionService,
			eventService,
			promotionService,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func exitOnInit(logg *logger.Logger, component string, err error) {
	logg.Error(logg.WithField(context.Background(), "component", component), "failed to create service", err)
	os.Exit(1)
}
