package datastores

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// KVRedis implements [KV] with one Redis hash per document.
type KVRedis struct {
	rdb       redis.UniversalClient
	prefix    string
	scanCount int64
}

var (
	_ KV     = (*KVRedis)(nil)
	_ Pinger = (*KVRedis)(nil)
)

type RedisOption func(*KVRedis)

// WithRedisPrefix namespaces every key, "contacts:" by default.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *KVRedis) { s.prefix = strings.TrimSuffix(prefix, ":") + ":" }
}

// WithRedisScanCount sets the COUNT hint of SCAN iterations.
func WithRedisScanCount(n int64) RedisOption {
	return func(s *KVRedis) { s.scanCount = n }
}

func NewKVRedis(rdb redis.UniversalClient, opts ...RedisOption) *KVRedis {
	s := &KVRedis{rdb: rdb, prefix: "contacts:", scanCount: 100}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KVRedis) Put(ctx context.Context, key string, item Item) error {
	k := s.prefix + key
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, k)
	if len(item) > 0 {
		values := make([]any, 0, 2*len(item))
		for field, value := range item {
			values = append(values, field, value)
		}
		pipe.HSet(ctx, k, values...)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return unavailable("redis: put", err)
	}
	return nil
}

func (s *KVRedis) Get(ctx context.Context, key string) (Item, error) {
	item, err := s.rdb.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return nil, unavailable("redis: get", err)
	}
	if len(item) == 0 {
		return nil, ErrObjectNotFound
	}
	return item, nil
}

func (s *KVRedis) Delete(ctx context.Context, key string) error {
	err := s.rdb.Del(ctx, s.prefix+key).Err()
	if err != nil {
		return unavailable("redis: delete", err)
	}
	return nil
}

func (s *KVRedis) Scan(ctx context.Context, skip string) ([]Item, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		if iter.Val() != s.prefix+skip {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable("redis: scan", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, k)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return nil, unavailable("redis: scan", err)
	}

	items := make([]Item, 0, len(cmds))
	for _, cmd := range cmds {
		// keys deleted between SCAN and HGETALL come back empty
		if item := cmd.Val(); len(item) > 0 {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *KVRedis) Add(ctx context.Context, key, attr string, delta int64) (int64, error) {
	n, err := s.rdb.HIncrBy(ctx, s.prefix+key, attr, delta).Result()
	if err != nil {
		return 0, unavailable("redis: add", err)
	}
	return n, nil
}

func (s *KVRedis) Ping(ctx context.Context) error {
	err := s.rdb.Ping(ctx).Err()
	if err != nil {
		return unavailable("redis: ping", err)
	}
	return nil
}
