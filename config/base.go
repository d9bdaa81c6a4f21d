package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/kelseyhightower/envconfig"

	"siwb/pkg/siwb/signature"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

type ServerConfig struct {
	Server `yaml:"server"`
	Auth   `yaml:"auth"`
	Store  `yaml:"store"`
	Log    `yaml:"log"`
}

type ClientConfig struct {
	Client
	Wallet
	Log
}

// LoadServerConfig reads the YAML file named by CONFIG_PATH, if any, and
// overlays environment variables.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if _, err := signature.ParseStrategy(cfg.Wallet.Strategy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c *ServerConfig) Validate() error {
	if _, err := signature.ParseStrategy(c.Auth.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Auth.ChallengeTTL <= 0 {
		return fmt.Errorf("%w: challenge ttl must be positive", ErrInvalidConfig)
	}
	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max message size must be positive", ErrInvalidConfig)
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: redis backend requires REDIS_ADDR", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	return nil
}
