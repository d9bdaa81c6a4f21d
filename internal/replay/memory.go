package replay

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

const expiryLength = 8

// MemoryStore keeps challenges in a BigCache instance. Each entry stores its
// own deadline; the cache life window only bounds how long expired entries
// linger before eviction.
type MemoryStore struct {
	cache  *bigcache.BigCache
	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

// NewMemoryStore creates a store whose entries are evicted no later than
// maxTTL after insertion.
func NewMemoryStore(maxTTL time.Duration) (*MemoryStore, error) {
	if maxTTL <= 0 {
		return nil, ErrInvalidTTL
	}

	cfg := bigcache.DefaultConfig(maxTTL)
	cfg.Shards = 64
	cfg.CleanWindow = maxTTL
	cfg.MaxEntrySize = 64
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge cache: %w", err)
	}

	return &MemoryStore{
		cache: cache,
		now:   time.Now,
	}, nil
}

func (s *MemoryStore) Put(ctx context.Context, challenge string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if entry, err := s.cache.Get(challenge); err == nil && !s.expired(entry) {
		return ErrDuplicateChallenge
	}

	entry := make([]byte, expiryLength)
	binary.BigEndian.PutUint64(entry, uint64(s.now().Add(ttl).UnixNano()))
	return s.cache.Set(challenge, entry)
}

func (s *MemoryStore) Consume(ctx context.Context, challenge string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	entry, err := s.cache.Get(challenge)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read challenge: %w", err)
	}

	if err := s.cache.Delete(challenge); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, fmt.Errorf("failed to delete challenge: %w", err)
	}

	return !s.expired(entry), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.cache.Close()
}

func (s *MemoryStore) expired(entry []byte) bool {
	if len(entry) != expiryLength {
		return true
	}
	deadline := int64(binary.BigEndian.Uint64(entry))
	return s.now().UnixNano() >= deadline
}
