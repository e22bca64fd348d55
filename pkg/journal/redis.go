package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisSink appends transcript entries to a per-session Redis list,
// JSON-encoded, so transcripts from many collectors land in one place and
// can be tailed with LRANGE.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink connects to addr (e.g. "127.0.0.1:6379") and writes to
// "wireline:journal:<session>" in database db.
func NewRedisSink(addr string, db int, session string) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		key:    "wireline:journal:" + session,
	}
}

// NewRedisSinkFromClient reuses an existing client (tests, pooling).
func NewRedisSinkFromClient(client *redis.Client, session string) *RedisSink {
	return &RedisSink{
		client: client,
		key:    "wireline:journal:" + session,
	}
}

// Key returns the Redis list key this sink appends to.
func (s *RedisSink) Key() string { return s.key }

func (s *RedisSink) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	ctx := context.Background()
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("appending to %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
