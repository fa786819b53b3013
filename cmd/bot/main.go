package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/deskbot-io/deskbot/internal/app"
	"github.com/deskbot-io/deskbot/internal/bookmydesk"
	"github.com/deskbot-io/deskbot/internal/config"
	"github.com/deskbot-io/deskbot/internal/controller"
	"github.com/deskbot-io/deskbot/internal/repository"
	"github.com/deskbot-io/deskbot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.App.Env)
	defer logger.Sync()

	logger.Info("Starting deskbot", zap.String("environment", cfg.App.Env))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, repository.Migrations)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	users := repository.NewUserRepository(pool)

	client := bookmydesk.New(bookmydesk.Options{
		BaseURL:      cfg.BookMyDesk.APIURL,
		ClientID:     cfg.BookMyDesk.ClientID,
		ClientSecret: cfg.BookMyDesk.ClientSecret,
		UserAgent:    cfg.BookMyDesk.UserAgent,
		Timeout:      cfg.BookMyDesk.Timeout,
	}, logger)

	sessions := service.NewSessionService(users, client, cfg.BookMyDesk.AccessTokenTTL, logger)
	actions := service.NewActionService(sessions, client, cfg.BookMyDesk.ExternalLocationName, logger)

	b, err := bot.New(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("Failed to create Telegram bot", zap.Error(err))
	}

	ctrl := controller.NewBotController(b, users, sessions, actions, cfg.App, logger)
	ctrl.RegisterHandlers()

	notifier := service.NewNotifier(users, sessions, actions, ctrl, logger)

	scheduler := app.NewScheduler(notifier, cfg.Scheduler.NotifyInterval, cfg.Scheduler.RefreshInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Blocks until the context is cancelled.
	ctrl.Start(ctx)

	logger.Info("Shutting down")
}
