package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sklepio/storefront-backend/api/routes"
	"github.com/sklepio/storefront-backend/internal/cart"
	checkoutsvc "github.com/sklepio/storefront-backend/internal/checkout"
	"github.com/sklepio/storefront-backend/pkg/addressbook"
	"github.com/sklepio/storefront-backend/pkg/config"
	"github.com/sklepio/storefront-backend/pkg/coupons"
	"github.com/sklepio/storefront-backend/pkg/db"
	"github.com/sklepio/storefront-backend/pkg/logger"
	"github.com/sklepio/storefront-backend/pkg/metrics"
	"github.com/sklepio/storefront-backend/pkg/orderapi"
	"github.com/sklepio/storefront-backend/pkg/pricing"
	"github.com/sklepio/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
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

	pricingClient, err := pricing.NewClient(cfg.Pricing.BaseURL, cfg.Pricing.Timeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing client", err)
		os.Exit(1)
	}
	addressClient, err := addressbook.NewClient(cfg.AddressBook.BaseURL, cfg.AddressBook.Timeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create address book client", err)
		os.Exit(1)
	}
	orderClient, err := orderapi.NewClient(cfg.Orders.BaseURL, cfg.Orders.Timeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create order client", err)
		os.Exit(1)
	}
	couponClient, err := coupons.NewClient(cfg.Coupons.BaseURL, cfg.Coupons.Timeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon client", err)
		os.Exit(1)
	}

	store, err := checkoutsvc.NewRedisStore(redisClient, cfg.Checkout.DraftTTL, cfg.Checkout.SubmitLockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout store", err)
		os.Exit(1)
	}

	freeShipping, err := cfg.Checkout.FreeShippingAmount()
	if err != nil {
		logg.Error(context.Background(), "invalid free shipping threshold", err)
		os.Exit(1)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	checkoutService, err := checkoutsvc.NewService(
		cart.NewRepository(dbClient.DB()),
		store, store, store,
		pricingClient,
		couponClient,
		addressClient,
		orderClient,
		checkoutMetrics,
		logg,
		freeShipping,
		cfg.Checkout.LockerCollectWindow,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
	logg.Info(ctx, "starting storefront api")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, checkoutService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
