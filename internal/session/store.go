package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// StorageKey names the persisted transport session id.
const StorageKey = "llm_debate_socketio_id"

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeFile   StoreType = "file"
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// Store persists the transport session id across restarts.
type Store interface {
	// Load returns the persisted id, or "" when nothing was stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
	Close() error
}

type storeConfig struct {
	filePath    string
	redisClient *redis.Client
	redisKey    string
}

// StoreOption configures NewStore.
type StoreOption func(*storeConfig)

func WithFilePath(path string) StoreOption {
	return func(c *storeConfig) { c.filePath = path }
}

func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithRedisKey overrides the redis key; it defaults to StorageKey.
func WithRedisKey(key string) StoreOption {
	return func(c *storeConfig) { c.redisKey = key }
}

// ParseStoreType maps a config value to a StoreType.
func ParseStoreType(raw string) (StoreType, error) {
	switch StoreType(strings.ToLower(strings.TrimSpace(raw))) {
	case StoreTypeFile, "":
		return StoreTypeFile, nil
	case StoreTypeMemory:
		return StoreTypeMemory, nil
	case StoreTypeRedis:
		return StoreTypeRedis, nil
	default:
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidStoreType)
	}
}

// NewStore creates a Store of the given type.
// File stores require WithFilePath and redis stores require WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeFile:
		if strings.TrimSpace(config.filePath) == "" {
			return nil, ErrInvalidConfig
		}
		return &fileStore{path: config.filePath}, nil

	case StoreTypeMemory:
		return &memoryStore{}, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		key := config.redisKey
		if key == "" {
			key = StorageKey
		}
		return &redisStore{client: config.redisClient, key: key}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}

// fileStore keeps the id in a single file.
type fileStore struct {
	mu   sync.Mutex
	path string
}

func (s *fileStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *fileStore) Save(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *fileStore) Close() error { return nil }

type memoryStore struct {
	mu sync.RWMutex
	id string
}

func (s *memoryStore) Load(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, nil
}

func (s *memoryStore) Save(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

func (s *memoryStore) Close() error { return nil }

// redisStore keeps the id under a single key without expiry.
type redisStore struct {
	client *redis.Client
	key    string
}

func (s *redisStore) Load(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *redisStore) Save(ctx context.Context, id string) error {
	return s.client.Set(ctx, s.key, id, 0).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
