package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lovink/backend/internal/community"
)

// RedisOptions configures RedisLog
type RedisOptions struct {
	// Prefix of the list keys, "lovink" by default
	Prefix string
	// TTL refreshed on every append; zero keeps lists forever
	TTL time.Duration
}

// RedisLog keeps a room log as a Redis list of JSON messages. RPUSH is
// atomic, so concurrent appenders get a single total order.
type RedisLog struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisLog opens the log of roomID
func NewRedisLog(rdb *redis.Client, roomID string, opts RedisOptions) *RedisLog {
	return &RedisLog{rdb: rdb, key: logKey(opts.Prefix, roomID), ttl: opts.TTL}
}

func logKey(prefix, roomID string) string {
	if prefix == "" {
		prefix = "lovink"
	}
	return prefix + ":room:" + roomID + ":log"
}

func (l *RedisLog) Append(ctx context.Context, msg community.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	_, err = l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, l.key, raw)
		if l.ttl > 0 {
			pipe.Expire(ctx, l.key, l.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rpush %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLog) Tail(ctx context.Context) (community.Message, bool, error) {
	raw, err := l.rdb.LIndex(ctx, l.key, -1).Bytes()
	if errors.Is(err, redis.Nil) {
		return community.Message{}, false, nil
	}
	if err != nil {
		return community.Message{}, false, fmt.Errorf("lindex %s: %w", l.key, err)
	}
	var msg community.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return community.Message{}, false, fmt.Errorf("decode tail: %w", err)
	}
	return msg, true, nil
}

func (l *RedisLog) Snapshot(ctx context.Context) ([]community.Message, error) {
	items, err := l.rdb.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", l.key, err)
	}
	out := make([]community.Message, 0, len(items))
	for _, item := range items {
		var msg community.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
