// Package lock provides short-lived named locks used to keep scrape runs and
// cron ticks from overlapping.
package lock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out a lock for key when nobody else holds it. ok is false when
// the key is already held; unlock is nil in that case.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

type memEntry struct {
	token   string
	expires time.Time
}

type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]memEntry
	Now  func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]memEntry{}, Now: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	now := l.Now()
	token := uuid.NewString()

	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return nil, false, nil
	}
	entry := memEntry{token: token}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}
	l.held[key] = entry

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.token == token {
				delete(l.held, key)
			}
		})
	}
	return unlock, true, nil
}

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	Client redis.UniversalClient
	Prefix string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{Client: client, Prefix: prefix}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	full := l.Prefix + key
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	unlock := func() {
		once.Do(func() {
			// Release must survive a cancelled run context.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.Client, []string{full}, token).Err()
		})
	}
	return unlock, true, nil
}

// New picks the backend named by cfg; anything but "redis" gives the in-process locker.
func New(backend string, client redis.UniversalClient) Locker {
	if strings.EqualFold(strings.TrimSpace(backend), "redis") && client != nil {
		return NewRedisLocker(client, "auctionhub:lock:")
	}
	return NewMemoryLocker()
}
