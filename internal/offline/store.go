package offline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Load when a key has never been saved.
var ErrNotFound = errors.New("offline: key not found")

// Store is the flat key-value area backing device-local state.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// FileStore keeps each key in its own file under a directory. This is the
// on-device case: one directory owned by one device, no sharing.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// keys may contain separators like "photo:abc"
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(s.dir, name+".json")
}

// Load reads a key's contents.
func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save writes a key's contents.
func (s *FileStore) Save(_ context.Context, key string, data []byte) error {
	return os.WriteFile(s.path(key), data, 0o644)
}

// Delete removes a key; deleting a missing key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RedisStore keeps device state in redis under a key prefix, for kiosk
// devices that share a hub instead of owning local disk.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a store; prefix defaults to "offline:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "offline:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Load reads a key's contents.
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save writes a key's contents.
func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.prefix+key, data, 0).Err()
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	m map[string][]byte
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore { return &MemStore{m: make(map[string][]byte)} }

// Load reads a key's contents.
func (s *MemStore) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := s.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// Save writes a key's contents.
func (s *MemStore) Save(_ context.Context, key string, data []byte) error {
	s.m[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes a key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	delete(s.m, key)
	return nil
}
