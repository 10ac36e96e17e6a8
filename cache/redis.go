package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis is a Store shared between instances. Keys are written under namespace
// so EvictAll never touches unrelated data in the same database.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	logger    *logrus.Logger
}

func NewRedis(client redis.UniversalClient, namespace string, logger *logrus.Logger) *Redis {
	if logger == nil {
		logger = logrus.New()
	}
	return &Redis{client: client, namespace: namespace, logger: logger}
}

func (r *Redis) warn(op, key string, err error) {
	r.logger.WithFields(logrus.Fields{
		"module": "cache",
		"op":     op,
		"key":    key,
	}).Warn("redis cache fault: " + err.Error())
}

func (r *Redis) Get(ctx context.Context, key string, dest any) bool {
	if r.client == nil {
		return false
	}
	b, err := r.client.Get(ctx, r.namespace+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.warn("get", key, err)
		}
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		r.warn("get", key, err)
		return false
	}
	return true
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	// go-redis treats 0 as "no expiry"
	if r.client == nil || ttl <= 0 {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		r.warn("set", key, err)
		return
	}
	if err := r.client.Set(ctx, r.namespace+key, b, ttl).Err(); err != nil {
		r.warn("set", key, err)
	}
}

func (r *Redis) EvictByPrefix(ctx context.Context, prefix string) int {
	return r.evictMatching(ctx, r.namespace+escapeGlob(prefix)+"*")
}

func (r *Redis) EvictAll(ctx context.Context) int {
	return r.evictMatching(ctx, escapeGlob(r.namespace)+"*")
}

func (r *Redis) evictMatching(ctx context.Context, pattern string) int {
	if r.client == nil {
		return 0
	}
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.warn("scan", pattern, err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.warn("del", pattern, err)
		return 0
	}
	return int(n)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
