// Package replay remembers issued challenges so each one can be redeemed at
// most once, and only before it expires.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"siwb/config"
)

var (
	ErrDuplicateChallenge = errors.New("challenge already issued")
	ErrInvalidTTL         = errors.New("ttl must be positive")
	ErrStoreClosed        = errors.New("store is closed")
)

// Store tracks outstanding challenges.
type Store interface {
	// Put records challenge as issued until ttl elapses.
	Put(ctx context.Context, challenge string, ttl time.Duration) error
	// Consume removes challenge and reports whether it was outstanding.
	Consume(ctx context.Context, challenge string) (bool, error)
	Close() error
}

// New builds the backend selected in cfg. ttl bounds how long any challenge
// may stay outstanding.
func New(cfg config.Store, ttl time.Duration) (Store, error) {
	switch cfg.Backend {
	case config.StoreMemory, "":
		return NewMemoryStore(ttl)
	case config.StoreRedis:
		return NewRedisStore(&RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
