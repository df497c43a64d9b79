package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tablesidehq/tableside-backend/api/routes"
	"github.com/tablesidehq/tableside-backend/internal/auth"
	"github.com/tablesidehq/tableside-backend/internal/cart"
	checkoutsvc "github.com/tablesidehq/tableside-backend/internal/checkout"
	"github.com/tablesidehq/tableside-backend/internal/orderapi"
	"github.com/tablesidehq/tableside-backend/internal/payment"
	"github.com/tablesidehq/tableside-backend/internal/session"
	"github.com/tablesidehq/tableside-backend/internal/tables"
	"github.com/tablesidehq/tableside-backend/pkg/config"
	"github.com/tablesidehq/tableside-backend/pkg/db"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
	"github.com/tablesidehq/tableside-backend/pkg/metrics"
	"github.com/tablesidehq/tableside-backend/pkg/migrate"
	"github.com/tablesidehq/tableside-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	carts, err := cart.NewService(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	sessions, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	backend, err := orderapi.NewClient(cfg.OrderAPI, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order api client", err)
		os.Exit(1)
	}

	converter, err := payment.NewConverter(cfg.Payment)
	if err != nil {
		logg.Error(context.Background(), "failed to create currency converter", err)
		os.Exit(1)
	}
	starter, err := payment.NewStarter(backend, converter)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment starter", err)
		os.Exit(1)
	}
	returnHandler, err := payment.NewReturnHandler(backend, sessions, logg, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment return handler", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(carts, sessions, backend, starter, redisClient, logg, checkoutMetrics, cfg.Session.SummaryTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	tableService, err := tables.NewService(tables.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tables service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(cfg.Admin, cfg.JWT, sessions, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DBPinger: dbClient,
			RedisP:   redisClient,
			Gatherer: registry,
			Sessions: sessions,
			Carts:    carts,
			Checkout: checkoutService,
			Payments: returnHandler,
			Tables:   tableService,
			Auth:     authService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
