package app

import (
	"context"
	"fmt"

	"siwb/config"
	"siwb/internal/logger"
	"siwb/internal/metrics"
	"siwb/internal/replay"
	"siwb/internal/server/tcp"
	"siwb/internal/usecases"
)

// RunServer starts the sign-in provider and blocks until ctx is done.
func RunServer(ctx context.Context) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	base, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer base.Sync()
	log := base.With("Service", cfg.Server.Name)

	store, err := replay.New(cfg.Store, cfg.Auth.ChallengeTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize challenge store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("challenge store close failed", "error", err)
		}
	}()

	m := metrics.New()
	if cfg.Server.MetricsAddr != "" {
		go func() {
			log.Info("metrics endpoint started", "address", cfg.Server.MetricsAddr)
			if err := m.Serve(ctx, cfg.Server.MetricsAddr); err != nil {
				log.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	authUsecase, err := usecases.NewAuthUsecase(usecases.AuthConfig{
		Strategy:     cfg.Auth.Strategy,
		ChallengeTTL: cfg.Auth.ChallengeTTL,
		EntropySize:  cfg.Auth.EntropySize,
	}, store, m, log)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	server := tcp.NewServer(
		&tcp.Config{
			Address:        cfg.Server.Addr,
			KeepAlive:      cfg.Server.KeepAlive,
			Deadline:       cfg.Server.Deadline,
			MaxMessageSize: cfg.Server.MaxMessageSize,
		},
		authUsecase,
		log,
	)

	log.Info("starting sign-in provider",
		"strategy", cfg.Auth.Strategy,
		"store", cfg.Store.Backend,
		"challenge_ttl", cfg.Auth.ChallengeTTL.String())

	if err = server.Run(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
