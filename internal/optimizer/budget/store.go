package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rocodehq/rocode-gateway/internal/shared/redis"
)

// Store is the persistence port for budget state: a single serialized
// snapshot of all users. Implementations return (nil, nil) from Load when no
// snapshot exists yet.
type Store interface {
	Load(ctx context.Context) (map[string]*UserBudget, error)
	Save(ctx context.Context, users map[string]*UserBudget) error
}

// snapshot is the on-disk / on-wire layout.
type snapshot struct {
	UserUsage map[string]*UserBudget `json:"userUsage"`
	SavedAt   time.Time              `json:"savedAt"`
}

const redisSnapshotKey = "budget:snapshot"

// RedisStore keeps the snapshot under a single Redis key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context) (map[string]*UserBudget, error) {
	val, err := s.client.Get(ctx, redisSnapshotKey)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize budget snapshot: %w", err)
	}
	return snap.UserUsage, nil
}

func (s *RedisStore) Save(ctx context.Context, users map[string]*UserBudget) error {
	data, err := json.Marshal(snapshot{UserUsage: users, SavedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to serialize budget snapshot: %w", err)
	}
	return s.client.Set(ctx, redisSnapshotKey, string(data), 0)
}

// FileStore keeps the snapshot in a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (map[string]*UserBudget, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize budget snapshot: %w", err)
	}
	return snap.UserUsage, nil
}

func (s *FileStore) Save(ctx context.Context, users map[string]*UserBudget) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot{UserUsage: users, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize budget snapshot: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

// MemoryStore holds the snapshot in process memory, for tests.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*UserBudget
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (map[string]*UserBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		return nil, nil
	}
	out := make(map[string]*UserBudget, len(s.users))
	for id, b := range s.users {
		out[id] = b.clone()
	}
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, users map[string]*UserBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*UserBudget, len(users))
	for id, b := range users {
		s.users[id] = b.clone()
	}
	return nil
}
