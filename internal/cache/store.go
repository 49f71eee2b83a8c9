// Package cache is the read-through TTL layer in front of the public lot API.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New returns a RedisStore when backend is "redis" and a client is available,
// otherwise an in-process MemoryStore.
func New(backend string, client redis.UniversalClient) Store {
	if strings.EqualFold(strings.TrimSpace(backend), "redis") && client != nil {
		return &RedisStore{Client: client, Prefix: "auctionhub:cache:"}
	}
	return NewMemoryStore()
}

// GetJSON decodes a cached value into out. A value that no longer decodes is
// reported as a miss.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	if s == nil {
		return false, nil
	}
	b, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}

// QueryKey builds a stable key from a namespace and a set of query parameters:
// parameters are sorted and hashed so equivalent queries share an entry.
func QueryKey(namespace string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(params[k]))
		b.WriteByte('&')
	}
	sum := md5.Sum([]byte(b.String()))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
