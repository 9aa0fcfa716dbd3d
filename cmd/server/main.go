package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "review-portal-backend/internal/api/http"
	"review-portal-backend/internal/cache"
	"review-portal-backend/internal/config"
	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/repository/postgres"
	"review-portal-backend/internal/security"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Review Portal Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db, cfg.Realtime.Channel); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Change feed
	broker := realtime.NewBroker(cfg.Realtime.SubscriptionBuffer)
	defer broker.Close()
	source := realtime.NewPostgresSource(
		cfg.GetDatabaseConnectionString(),
		cfg.Realtime.Channel,
		time.Duration(cfg.Realtime.MinReconnectSeconds)*time.Second,
		time.Duration(cfg.Realtime.MaxReconnectSeconds)*time.Second,
		broker,
	)
	go func() {
		if err := source.Run(ctx); err != nil {
			logger.Error("Change listener stopped", "error", err)
		}
	}()

	deps := service.Dependencies{
		Profiles:     store.ProfileRepository,
		Applications: store.ApplicationRepository,
		Comments:     store.CommentRepository,
		Feed:         broker,
		Email:        newEmailService(ctx, cfg),
	}

	// Profile cache (optional)
	resolver := session.NewResolver(store.ProfileRepository, nil)
	if cfg.Redis.Addr != "" {
		profileCache := cache.NewProfileCache(cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), cfg.ProfileTTL())
		defer profileCache.Close()
		if err := profileCache.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable, profile cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			logger.Info("Profile cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.ProfileTTL())
			resolver = session.NewResolver(store.ProfileRepository, profileCache)
			deps.Cache = profileCache
			go invalidateOnProfileChange(ctx, broker, profileCache)
		}
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Audience)

	server := httpapi.NewServer(tokenManager, resolver, deps, httpapi.Options{
		AnonKey: cfg.Backend.AnonKey,
		Health:  store.Ping,
	})

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	// Streams stay open until their clients leave, so end them first.
	broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

func newEmailService(ctx context.Context, cfg *config.Config) service.EmailService {
	switch cfg.EmailProvider() {
	case "sendgrid":
		return service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	case "ses":
		svc, err := service.NewSESEmailService(ctx, cfg.SES.Region, cfg.SES.FromEmail, cfg.SES.FromName)
		if err == nil {
			return svc
		}
		logger.Error("Failed to initialize SES, email notifications disabled", "error", err)
	default:
		logger.Info("No email provider configured, email notifications disabled")
	}
	return service.NewNoopEmailService()
}

// invalidateOnProfileChange drops every cached profile when any profile row
// changes, including changes made outside this process.
func invalidateOnProfileChange(ctx context.Context, broker *realtime.Broker, c *cache.ProfileCache) {
	sub := broker.Subscribe(realtime.Filter{Table: domain.TableProfiles})
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := c.InvalidateAll(ctx); err != nil {
				logger.Warn("Failed to invalidate profile cache", "error", err)
			}
		}
	}
}
