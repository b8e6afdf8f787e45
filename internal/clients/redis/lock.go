package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

// ErrLockTimeout is returned when a lock could not be taken within the wait budget.
var ErrLockTimeout = errors.New("observation lock wait exceeded")

// ReleaseFunc releases every lock taken by one Acquire call.
type ReleaseFunc func(ctx context.Context) error

// Locker serializes work on the same email/phone across service instances.
type Locker interface {
	Acquire(ctx context.Context, keys []string) (ReleaseFunc, error)
}

type LockConfig struct {
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
	Poll   time.Duration
}

func (c LockConfig) withDefaults() LockConfig {
	if strings.TrimSpace(c.Prefix) == "" {
		c.Prefix = "identity:lock:"
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Second
	}
	if c.Wait <= 0 {
		c.Wait = 2 * time.Second
	}
	if c.Poll <= 0 {
		c.Poll = 20 * time.Millisecond
	}
	return c
}

// Deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb goredis.UniversalClient
	cfg LockConfig
	log *logger.Logger
}

func NewLocker(rdb goredis.UniversalClient, log *logger.Logger, cfg LockConfig) Locker {
	if rdb == nil {
		return NoopLocker{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &redisLocker{rdb: rdb, cfg: cfg.withDefaults(), log: log.With("service", "ObservationLocker")}
}

// Acquire takes every key in sorted order so two callers sharing keys can
// never hold one each and wait on the other.
func (l *redisLocker) Acquire(ctx context.Context, keys []string) (ReleaseFunc, error) {
	keys = normalizeKeys(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	release := func(ctx context.Context) error {
		var errs []error
		for i := len(held) - 1; i >= 0; i-- {
			if err := releaseScript.Run(ctx, l.rdb, []string{held[i]}, token).Err(); err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", held[i], err))
			}
		}
		return errors.Join(errs...)
	}

	deadline := time.Now().Add(l.cfg.Wait)
	for _, key := range keys {
		full := l.cfg.Prefix + key
		for {
			ok, err := l.rdb.SetNX(ctx, full, token, l.cfg.TTL).Result()
			if err != nil {
				_ = release(context.WithoutCancel(ctx))
				return nil, fmt.Errorf("acquire %s: %w", full, err)
			}
			if ok {
				held = append(held, full)
				break
			}
			if time.Now().After(deadline) {
				_ = release(context.WithoutCancel(ctx))
				return nil, ErrLockTimeout
			}
			select {
			case <-ctx.Done():
				_ = release(context.WithoutCancel(ctx))
				return nil, ctx.Err()
			case <-time.After(l.cfg.Poll):
			}
		}
	}
	return release, nil
}

// NoopLocker is used when Redis is not configured; the store's own
// transaction isolation is then the only guard.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, []string) (ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}

// ObservationKeys derives lock keys for an observation. Values are hashed so
// raw contact data never lands in Redis.
func ObservationKeys(email, phone string) []string {
	var keys []string
	if email != "" {
		keys = append(keys, "email:"+hashValue(email))
	}
	if phone != "" {
		keys = append(keys, "phone:"+hashValue(phone))
	}
	return normalizeKeys(keys)
}

func hashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:16])
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := map[string]struct{}{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
