package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	if o.Addr == "" {
		o.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repo: ping redis %s: %w", o.Addr, err)
	}
	return client, nil
}

// RedisStore is a KeyValueStore backed by Redis strings.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store over client namespaced by prefix. An empty
// prefix selects DefaultPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements KeyValueStore.
func (s *RedisStore) Get(ctx context.Context, key string, dst any) error {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Set implements KeyValueStore.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	if value == nil {
		return errors.New("repo: nil value; use Delete")
	}
	return s.SetMany(ctx, []Write{Put(key, value)})
}

// SetMany implements KeyValueStore using MULTI/EXEC.
func (s *RedisStore) SetMany(ctx context.Context, writes []Write) error {
	batch, err := encodeBatch(s.prefix, writes)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, e := range batch {
			if e.value == nil {
				p.Del(ctx, e.key)
				continue
			}
			p.Set(ctx, e.key, e.value, 0)
		}
		return nil
	})
	if err != nil {
		return writeFailed(err)
	}
	return nil
}

// Delete implements KeyValueStore.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.SetMany(ctx, []Write{Del(key)})
}

// Clear implements KeyValueStore. Keys are collected with SCAN so large
// namespaces do not block the server.
func (s *RedisStore) Clear(ctx context.Context) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.match(), 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return writeFailed(err)
	}
	return nil
}

// match is the SCAN pattern covering exactly this namespace.
func (s *RedisStore) match() string {
	return escapeGlob(s.prefix) + "*"
}

// escapeGlob escapes Redis glob metacharacters so prefix matches literally.
func escapeGlob(prefix string) string {
	out := make([]byte, 0, len(prefix))
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, prefix[i])
	}
	return string(out)
}
