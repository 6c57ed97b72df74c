package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/superkart/kart-backend/api/routes"
	"github.com/superkart/kart-backend/internal/address"
	"github.com/superkart/kart-backend/internal/auth"
	"github.com/superkart/kart-backend/internal/cart"
	categorysvc "github.com/superkart/kart-backend/internal/categories"
	imagesvc "github.com/superkart/kart-backend/internal/images"
	"github.com/superkart/kart-backend/internal/orders"
	productsvc "github.com/superkart/kart-backend/internal/products"
	"github.com/superkart/kart-backend/internal/users"
	"github.com/superkart/kart-backend/pkg/auth/session"
	"github.com/superkart/kart-backend/pkg/config"
	"github.com/superkart/kart-backend/pkg/db"
	"github.com/superkart/kart-backend/pkg/logger"
	"github.com/superkart/kart-backend/pkg/metrics"
	"github.com/superkart/kart-backend/pkg/migrate"
	"github.com/superkart/kart-backend/pkg/redis"
	pkgstripe "github.com/superkart/kart-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

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

	var gateway interface {
		CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, orderNumber string) (*pkgstripe.PaymentIntent, error)
	}
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		stripeClient, err := pkgstripe.NewClient(cfg.Stripe)
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe client", err)
			os.Exit(1)
		}
		gateway = stripeClient
		logg.Info(context.Background(), fmt.Sprintf("stripe client initialized (%s)", stripeClient.Environment()))
	} else {
		logg.Warn(context.Background(), "stripe api key not set, payment intents disabled")
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := productsvc.NewRepository(dbClient.DB())
	categoryRepo := categorysvc.NewRepository(dbClient.DB())
	imageRepo := imagesvc.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	addressRepo := address.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	productService, err := productsvc.NewService(productRepo, dbClient, categoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	categoryService, err := categorysvc.NewService(categoryRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}

	imageService, err := imagesvc.NewService(imageRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create image service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orderRepo, cartRepo, productRepo, dbClient, gateway, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(addressRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Sessions: sessionManager,
		Registry: registry,

		AuthService:     authService,
		RegisterService: registerService,
		UsersRepo:       userRepo,
		ProductService:  productService,
		CategoryService: categoryService,
		ImageService:    imageService,
		CartService:     cartService,
		OrderService:    orderService,
		AddressService:  addressService,
	})

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
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
