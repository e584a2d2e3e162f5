// Package cursor persists the last-processed mailbox marker so a restarted
// poller resumes after the last handled message instead of replaying the
// whole mailbox.
package cursor

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store reads and writes the mailbox cursor. Read never fails the caller: a
// missing or unreadable value yields zero, which only costs a replay that the
// downstream message-id dedup absorbs. Write is best-effort for the same
// reason; failures are logged, not returned.
type Store interface {
	Read(ctx context.Context) uint32
	Write(ctx context.Context, marker uint32)
}

// FileStore keeps the marker as plain integer text in a single file.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore builds a file-backed cursor store.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Read(_ context.Context) uint32 {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0
	}
	return parseMarker(string(data))
}

func (s *FileStore) Write(_ context.Context, marker uint32) {
	if err := os.WriteFile(s.path, []byte(strconv.FormatUint(uint64(marker), 10)), 0o644); err != nil {
		s.logger.Error("persist cursor", zap.String("path", s.path), zap.Error(err))
	}
}

// RedisStore keeps the marker under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore builds a Redis-backed cursor store.
func NewRedisStore(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, key: key, logger: logger}
}

func (s *RedisStore) Read(ctx context.Context) uint32 {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		return 0
	}
	return parseMarker(val)
}

func (s *RedisStore) Write(ctx context.Context, marker uint32) {
	if err := s.client.Set(ctx, s.key, strconv.FormatUint(uint64(marker), 10), 0).Err(); err != nil {
		s.logger.Error("persist cursor", zap.String("key", s.key), zap.Error(err))
	}
}

func parseMarker(raw string) uint32 {
	parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(parsed)
}
