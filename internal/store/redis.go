package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"plc-copilot/internal/types"
)

const redisPrefix = "plccopilot:"

// RedisStore keeps each transcript in a list and the theme in a plain key.
type RedisStore struct {
	client      *redis.Client
	maxMessages int
}

// NewRedisStore connects to redisURL (redis://host:port/db) and pings it.
func NewRedisStore(ctx context.Context, redisURL string, maxMessages int) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, maxMessages: maxMessages}, nil
}

func transcriptKey(sessionID string) string { return redisPrefix + "transcript:" + sessionID }
func themeKey(sessionID string) string      { return redisPrefix + "theme:" + sessionID }

func (r *RedisStore) Append(ctx context.Context, sessionID string, msg types.Message) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := transcriptKey(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, b)
	if r.maxMessages > 0 {
		pipe.LTrim(ctx, key, int64(-r.maxMessages), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (r *RedisStore) History(ctx context.Context, sessionID string) ([]types.Message, error) {
	items, err := r.client.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	out := make([]types.Message, 0, len(items))
	for _, item := range items {
		var m types.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, transcriptKey(sessionID)).Err()
}

func (r *RedisStore) Theme(ctx context.Context, sessionID string) (string, error) {
	t, err := r.client.Get(ctx, themeKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return DefaultTheme, nil
	}
	if err != nil {
		return "", fmt.Errorf("get theme: %w", err)
	}
	return t, nil
}

func (r *RedisStore) SetTheme(ctx context.Context, sessionID, theme string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	t, err := NormalizeTheme(theme)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, themeKey(sessionID), t, 0).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
