package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/FabienDubin/storypillow/internal/config"
	"github.com/FabienDubin/storypillow/internal/ratelimit"
	"github.com/FabienDubin/storypillow/internal/repository"
	"github.com/FabienDubin/storypillow/internal/server"
	"github.com/FabienDubin/storypillow/internal/service"
	"github.com/FabienDubin/storypillow/internal/token"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfgPath := "configs/config.yml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := seedInitialAdmin(ctx, db, cfg, logger); err != nil {
		logger.Fatal("failed to seed initial admin", zap.Error(err))
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
	go limiter.Run(ctx, logger)

	srv := server.NewServer(db, cfg, limiter, logger)

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// seedInitialAdmin creates the bootstrap admin account when the users table
// is empty and the config provides credentials. Without at least one admin
// the user-management API is unreachable.
func seedInitialAdmin(ctx context.Context, db *sqlx.DB, cfg *config.Config, logger *zap.Logger) error {
	userRepo := repository.NewUserRepository(db, logger)
	codec := token.NewCodec(cfg.Auth.Secret, cfg.Auth.SessionTTL)
	authService := service.NewAuthService(userRepo, codec, logger)

	count, err := authService.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if cfg.Bootstrap.AdminEmail == "" || cfg.Bootstrap.AdminPassword == "" {
		logger.Warn("no users exist and no bootstrap admin configured")
		return nil
	}

	name := cfg.Bootstrap.AdminName
	if name == "" {
		name = "Admin"
	}

	user, err := authService.CreateUser(ctx, cfg.Bootstrap.AdminEmail, name, cfg.Bootstrap.AdminPassword, "admin")
	if err != nil {
		return err
	}

	logger.Info("bootstrap admin created", zap.String("user_id", user.ID))
	return nil
}
