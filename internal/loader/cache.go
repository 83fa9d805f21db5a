package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss é devolvido por Cache.Get quando a chave não existe.
var ErrCacheMiss = errors.New("cache miss")

// Cache guarda o corpo bruto do dataset entre execuções.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheKey deriva a chave do cache a partir da URL de origem.
func CacheKey(source string) string {
	sum := sha1.Sum([]byte(source))
	return "covid:dataset:" + hex.EncodeToString(sum[:])
}

// RedisCache armazena o CSV comprimido com snappy.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache aceita tanto "host:porta" quanto uma URL redis://.
func NewRedisCache(addr string) (*RedisCache, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL inválida: %w", err)
		}
		opts = parsed
	}
	return &RedisCache{Client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	body, err := snappy.Decode(nil, val)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cached dataset: %w", err)
	}
	return body, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.Client.Set(ctx, key, snappy.Encode(nil, value), ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}
