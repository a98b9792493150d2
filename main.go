package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"sitestats/api/cache"
	"sitestats/api/config"
	"sitestats/api/database"
	"sitestats/api/handlers"
	"sitestats/api/ingest"
	"sitestats/api/logging"
	"sitestats/api/metrics"
	"sitestats/api/middleware"
	"sitestats/api/store"
	"sitestats/api/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if envErr != nil {
		logger.WithError(envErr).Debug("no .env file loaded")
	}

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL (operators, and events when EVENT_STORE=postgres) ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize PostgreSQL database")
	}
	defer dbClient.Close()

	if err := dbClient.Migrate(); err != nil {
		logger.WithError(err).Fatal("failed to migrate PostgreSQL database")
	}

	// --- Event store ---
	var events store.EventStore
	switch cfg.EventStore {
	case config.StoreClickHouse:
		chClient, err := database.NewClickHouseDB(database.ClickHouseOptions{
			Addr:     cfg.ClickHouseAddr(),
			Database: cfg.ClickHouseDBName,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize ClickHouse database")
		}
		defer chClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = chClient.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("failed to create ClickHouse schema")
		}
		events = store.NewAnalyticsStore(chClient, logger)
	case config.StorePostgres:
		events = store.NewPostgresEventStore(dbClient.DB)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// --- Handlers ---
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenLifetime)
	authHandlers := handlers.NewAuthHandlers(store.NewOperatorStore(dbClient.DB), tokens, cfg.SecureCookies, logger)
	analyticsHandlers := handlers.NewAnalyticsHandlers(
		ingest.NewService(events, m, logger),
		events,
		cache.NewReportCache(cfg.MetricsCacheTTL),
		m,
		cfg.QueryLimit,
		logger,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(m.Middleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowOrigins))

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	{
		api.POST("/track", analyticsHandlers.TrackEvent)

		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandlers.Signup)
			auth.POST("/login", authHandlers.Login)
			auth.POST("/logout", authHandlers.Logout)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(tokens, cfg.StaticAPIKey, logger))
		{
			protected.GET("/metrics", analyticsHandlers.GetMetrics)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("sitestats API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server exiting")
}
