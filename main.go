package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"capital-returns-engine/config"
	"capital-returns-engine/internal/api"
	"capital-returns-engine/internal/auth"
	"capital-returns-engine/internal/database"
	"capital-returns-engine/internal/events"
	"capital-returns-engine/internal/logging"
	"capital-returns-engine/internal/returns"
	"capital-returns-engine/internal/vault"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger.Info().Msg("starting capital returns engine")

	// Vault-sourced secrets override file/env values when enabled
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vault client")
	}
	if vaultClient.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		secrets, err := vaultClient.FetchAppSecrets(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to fetch secrets from vault")
		}
		if secrets.DBPassword != "" {
			cfg.DatabaseConfig.Password = secrets.DBPassword
		}
		if secrets.JWTSecret != "" {
			cfg.AuthConfig.JWTSecret = secrets.JWTSecret
		}
		logger.Info().Msg("loaded secrets from vault")
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.RunMigrations(migrateCtx); err != nil {
		cancelMigrate()
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	cancelMigrate()

	repo := database.NewRepository(db)

	// Redis-backed snapshot cache, memory-only when Redis is disabled
	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
	}
	cache := database.NewSnapshotCache(redisClient, time.Duration(cfg.ReturnsConfig.CacheTTLSeconds)*time.Second)

	eventBus := events.NewEventBus()

	engine := returns.NewService(repo, repo, repo, repo, eventBus, logger)

	var authService *auth.Service
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.JWTSecret == "" || cfg.AuthConfig.AdminEmail == "" || cfg.AuthConfig.AdminPasswordHash == "" {
			logger.Fatal().Msg("auth enabled but JWT_SECRET, ADMIN_EMAIL or ADMIN_PASSWORD_HASH is missing")
		}
		authService = auth.NewService(
			cfg.AuthConfig.JWTSecret,
			cfg.AuthConfig.AdminEmail,
			cfg.AuthConfig.AdminPasswordHash,
			cfg.AuthConfig.AccessTokenDuration,
			logger,
		)
		logger.Info().Msg("admin authentication enabled")
	} else {
		logger.Warn().Msg("authentication disabled, API is unprotected")
	}

	server := api.NewServer(
		api.ServerConfig{
			Port:           cfg.ServerConfig.Port,
			Host:           cfg.ServerConfig.Host,
			AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
			ProductionMode: cfg.ServerConfig.ProductionMode,
			ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		},
		repo,
		engine,
		cache,
		eventBus,
		authService,
		logger,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info().Msg("capital returns engine stopped")
}
