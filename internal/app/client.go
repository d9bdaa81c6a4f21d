package app

import (
	"context"
	"fmt"
	"time"

	"siwb/config"
	"siwb/internal/client/tcp"
	"siwb/internal/logger"
	"siwb/internal/usecases"
)

// RunClient signs in once with the configured wallet key.
func RunClient(ctx context.Context) error {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	base, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer base.Sync()
	log := base.With("Service", cfg.Client.Name)

	wallet, err := usecases.NewWalletUsecase(cfg.Client.Name, cfg.Wallet.PrivateKeyHex, cfg.Wallet.Strategy)
	if err != nil {
		return fmt.Errorf("failed to initialize wallet: %w", err)
	}
	log.Info("wallet loaded", "pubkey", wallet.PublicKeyHex(), "strategy", cfg.Wallet.Strategy)

	client := tcp.NewClient(
		&tcp.Config{
			ServerAddr:     cfg.Client.ServerAddr,
			ConnectTimeout: 5 * time.Second,
			RequestTimeout: 5 * time.Second,
			RetryAttempts:  3,
			RetryDelay:     time.Second,
			MaxMessageSize: 1024,
		},
		wallet,
		log,
	)
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}

	return nil
}
