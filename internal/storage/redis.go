package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/upstream"
	"go.uber.org/zap"
)

const (
	defaultRedisPrefix = "resume-agent"
	pingTimeout        = 5 * time.Second
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	URL    string
	Prefix string
	// TTL of every artifact; zero keeps them forever.
	TTL time.Duration
}

// RedisStore keeps artifacts as JSON strings under <prefix>:<category>:<key>.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	codec  *extract.Codec
	logger *zap.Logger
}

// NewRedisStore connects to the server and verifies it answers PING.
func NewRedisStore(ctx context.Context, opts RedisOptions, codec *extract.Codec, log *zap.Logger) (*RedisStore, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("redis url is required")
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, upstream.Wrap("ping", redisOpts.Addr, err)
	}

	return newRedisStore(client, opts, codec, log), nil
}

func newRedisStore(client *redis.Client, opts RedisOptions, codec *extract.Codec, log *zap.Logger) *RedisStore {
	prefix := strings.TrimSuffix(strings.TrimSpace(opts.Prefix), ":")
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if codec == nil {
		codec = extract.NewCodec()
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
		codec:  codec,
		logger: logger.WithFields(log, zap.String("storage", "redis")),
	}
}

func (s *RedisStore) Key(category, key string) string {
	return s.prefix + ":" + category + ":" + key
}

func (s *RedisStore) Save(ctx context.Context, category, key string, v any) error {
	redisKey := s.Key(category, key)
	if err := validate(category, key); err != nil {
		return upstream.Wrap("save", redisKey, err)
	}

	data, err := s.codec.Encode(v)
	if err != nil {
		return upstream.Wrap("save", redisKey, err)
	}

	if err := s.client.Set(ctx, redisKey, data, s.ttl).Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return upstream.Wrap("save", redisKey, err)
	}

	s.logger.Debug("artifact saved", zap.String("key", redisKey), zap.Int("bytes", len(data)))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, category, key string, out any) error {
	redisKey := s.Key(category, key)
	if err := validate(category, key); err != nil {
		return upstream.Wrap("load", redisKey, err)
	}

	data, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return upstream.Wrap("load", redisKey, ErrNotFound)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return upstream.Wrap("load", redisKey, err)
	}

	if err := s.codec.Unmarshal(data, out); err != nil {
		return upstream.Wrap("load", redisKey, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
