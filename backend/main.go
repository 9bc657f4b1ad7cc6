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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weatherapi/m/internal/api"
	"weatherapi/m/internal/auth"
	"weatherapi/m/internal/cache"
	"weatherapi/m/internal/config"
	"weatherapi/m/internal/database"
	"weatherapi/m/internal/logging"
	"weatherapi/m/internal/metrics"
	"weatherapi/m/internal/migrations"
	"weatherapi/m/internal/repositories/queries"
	usersrepo "weatherapi/m/internal/repositories/users"
	"weatherapi/m/internal/seed"
	"weatherapi/m/internal/users"
	"weatherapi/m/internal/weather"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, cfg.DatabaseDriver); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	store, err := cache.Connect(ctx, cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	issuer := auth.NewIssuer([]byte(cfg.Secret), cfg.TokenTTL)
	userSvc := users.NewService(usersrepo.NewSQLRepository(db), issuer, logger.With("component", "users"))
	provider := weather.NewOpenWeatherClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	weatherSvc := weather.NewService(store, provider, queries.NewSQLRepository(db), m, logger.With("component", "weather"),
		weather.Options{CacheTTL: cfg.CacheTTL, CacheTimeout: cfg.CacheTimeout})

	if err := seed.EnsureAdmin(ctx, userSvc, users.Credentials{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}, logger); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	handler := api.New(api.Options{
		Users:          userSvc,
		Weather:        weatherSvc,
		Issuer:         issuer,
		Logger:         logger.With("component", "api"),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info(ctx, "weather API starting", "port", cfg.HTTPPort, "driver", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "graceful shutdown failed", "error", err)
	}
}
