package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shakti-shield/internal/config"
	handlers "shakti-shield/internal/handlers/shared"
	"shakti-shield/internal/middleware"
	"shakti-shield/internal/repositories/mongodb"
	"shakti-shield/internal/services"
	"shakti-shield/pkg/database"
	"shakti-shield/pkg/logger"
	"shakti-shield/routes"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Caller:  cfg.Log.Caller,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.WithError(err).Warn("Failed to close MongoDB connection")
		}
	}()

	if err := database.NewMigrator(db.Database, appLogger).Up(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to run migrations")
	}

	locker, redisCache := newLocker(cfg, appLogger)
	if redisCache != nil {
		defer redisCache.Close()
	}

	// Delivery providers
	smsProvider, err := newSMSProvider(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize SMS provider")
	}
	emailProvider := newEmailProvider(cfg, appLogger)
	pushProvider, err := newPushProvider(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize push provider")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)
	httpMetrics := middleware.NewHTTPMetrics(registry)

	// Repositories
	userRepo := mongodb.NewUserRepository(db.Database)
	sosRepo := mongodb.NewSOSRepository(db.Database)

	// Channels and fan-out
	link := strings.TrimRight(cfg.App.BaseURL, "/")
	timeout := cfg.SOS.ChannelTimeout
	smsChannel := services.NewSMSChannel(smsProvider, cfg.SMS.DefaultFrom, timeout, appLogger)
	emailChannel := services.NewEmailChannel(emailProvider, timeout, appLogger)
	pushChannel := services.NewPushChannel(pushProvider, link, timeout, appLogger)

	notifier := services.NewContactNotifier(smsChannel, emailChannel, pushChannel, userRepo, metrics, appLogger)
	broadcaster := services.NewBroadcastService(
		services.NewPushBroadcaster(userRepo, pushProvider, cfg.SOS.PushBatchSize, link, metrics, appLogger),
		services.NewSMSFallback(userRepo, smsChannel, cfg.SOS.SMSFallbackConcurrency, metrics, appLogger),
		appLogger,
	)
	dispatcher := services.NewDispatcher(cfg.SOS.DispatcherWorkers, cfg.SOS.DispatcherQueueSize, appLogger)

	// Services
	sosService := services.NewSOSService(
		services.SOSServiceConfigFrom(cfg.SOS),
		sosRepo, userRepo, notifier, broadcaster, dispatcher, locker, metrics, appLogger,
	)
	contactService := services.NewContactService(userRepo, locker, appLogger)
	notificationService := services.NewNotificationService(userRepo, pushChannel, notifier, appLogger)

	// Initialize handlers
	sosHandler := handlers.NewSOSHandler(sosService, appLogger)
	contactHandler := handlers.NewContactHandler(contactService, appLogger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, appLogger)

	checks := map[string]handlers.Pinger{"mongodb": db}
	if redisCache != nil {
		checks["redis"] = redisCache
	}
	healthHandler := handlers.NewHealthHandler(cfg.App.Version, checks)

	// Initialize Gin router
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Fatal("Invalid trusted proxies")
	}

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(appLogger))
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(httpMetrics.Handler())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))

	auth := middleware.AuthRequired(middleware.AuthConfig{
		Secret: cfg.Security.JWTSecret,
		Issuer: cfg.Security.JWTIssuer,
	}, userRepo, appLogger)
	triggerLimit := middleware.NewPerMinuteRateLimiter(cfg.Security.TriggerRatePerMin, middleware.KeyByUserOrIP).Handler()
	apiLimit := middleware.NewPerMinuteRateLimiter(cfg.Security.RateLimitPerMinute, middleware.KeyByUserOrIP).Handler()

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(apiLimit)
	{
		routes.SetupSOSRoutes(v1, sosHandler, auth, triggerLimit)
		routes.SetupContactRoutes(v1, contactHandler, auth)
		routes.SetupNotificationRoutes(v1, notificationHandler, auth)
	}

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	// Queued broadcasts get the rest of the shutdown window.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Broadcast dispatcher did not drain")
	}
}
