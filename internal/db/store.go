package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"mergington/signup/internal/config"
)

// TokenKey is the fixed storage key of the persisted session token.
const TokenKey = "authToken"

var ErrNoToken = errors.New("no_token")

// TokenStore persists at most one opaque session token across restarts.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Close() error
}

// Open builds the backend named by cfg.TokenStore. The redis client is only
// used by the redis backend and may be nil otherwise.
func Open(cfg config.Config, redisClient *redis.Client) (TokenStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.TokenStore)) {
	case "", "file":
		return NewFileStore(cfg.TokenFile), nil
	case "bolt":
		return NewBoltStore(cfg.BoltPath)
	case "redis":
		return NewRedisStore(redisClient, cfg.RedisKeyPrefix)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}

type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
