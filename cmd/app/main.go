package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "becard/docs"
	"becard/internal/account"
	"becard/internal/card"
	"becard/internal/catalog"
	"becard/internal/config"
	"becard/internal/db"
	"becard/internal/dispense"
	"becard/internal/logger"
	"becard/internal/loyalty"
	"becard/internal/notify"
	"becard/internal/pricing"
	"becard/internal/sale"
	"becard/internal/server"
	"becard/internal/wallet"

	"github.com/redis/go-redis/v9"
)

// @title BeCard API
// @version 1.0
// @description Self-service beverage dispensing: pricing, cards, wallets, pours and loyalty.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting BeCard application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	receipts := notify.New(rdb, notify.NewSMTPSender(
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
	))
	defer receipts.Close()
	logger.Info("Receipt queue initialized")

	tx := db.NewTransactor(database)
	catalogRepo := catalog.NewRepository(database)
	accountService := account.NewService(account.NewRepository(database))
	walletService := wallet.NewService(wallet.NewRepository(database), tx)
	loyaltyService := loyalty.NewService(loyalty.NewRepository(database))
	pricingService := pricing.NewService(pricing.NewRepository(database), catalogRepo)
	cardService := card.NewService(
		card.NewRepository(database),
		accountService,
		walletService,
		tx,
		card.NewHasher(cfg.CardHMACSecret),
	)
	dispenseService := dispense.NewService(
		dispense.NewRepository(database),
		sale.NewRepository(database),
		catalogRepo,
		pricingService,
		cardService,
		accountService,
		walletService,
		loyaltyService,
		tx,
		receipts,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go receipts.Start(ctx)
	go dispense.RunExpirySweeper(ctx, dispenseService, cfg.SessionTTL, cfg.SessionSweepInterval)

	srv := server.New(cfg, server.Handlers{
		Accounts: account.NewHandler(accountService),
		Loyalty:  loyalty.NewHandler(loyaltyService),
		Wallets:  wallet.NewHandler(walletService),
		Pricing:  pricing.NewHandler(pricingService),
		Cards:    card.NewHandler(cardService),
		Dispense: dispense.NewHandler(dispenseService),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
