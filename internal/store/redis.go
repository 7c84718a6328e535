package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore 快照存放在 Redis 字符串键中
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// RedisOptions Redis 连接参数
type RedisOptions struct {
	Addresses []string
	Password  string
	DB        int
	PoolSize  int
	KeyPrefix string
}

// NewRedisStore 连接 Redis 并检查连通性
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    opts.Addresses,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	s := NewRedisStoreWithClient(client, opts.KeyPrefix)
	s.owned = true
	return s, nil
}

// NewRedisStoreWithClient 使用已有客户端，Close 不会关闭该客户端
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Read 读取快照
func (s *RedisStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

// Write 写入快照，不设过期时间
func (s *RedisStore) Write(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.prefix+key, data, 0).Err()
}

// Close 关闭自己创建的客户端
func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
