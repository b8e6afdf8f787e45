package redis

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

func TestObservationKeys(t *testing.T) {
	keys := ObservationKeys("doc@hillvalley.edu", "555")
	require.Len(t, keys, 2)
	assert.True(t, strings.HasPrefix(keys[0], "email:"))
	assert.True(t, strings.HasPrefix(keys[1], "phone:"))
	assert.NotContains(t, keys[0], "hillvalley")
	assert.Equal(t, keys, ObservationKeys("doc@hillvalley.edu", "555"))

	assert.Len(t, ObservationKeys("", "555"), 1)
	assert.Empty(t, ObservationKeys("", ""))
}

func TestNormalizeKeysSortsAndDedupes(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, normalizeKeys([]string{"b", " a", "", "b"}))
}

func TestNewLockerWithoutClientIsNoop(t *testing.T) {
	l := NewLocker(nil, logger.Nop(), LockConfig{})
	release, err := l.Acquire(context.Background(), []string{"k"})
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

func liveClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis lock tests")
	}
	rdb, err := NewClient(context.Background(), logger.Nop(), ClientConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisLockerExcludesConcurrentHolders(t *testing.T) {
	rdb := liveClient(t)
	prefix := "identity:test:" + t.Name() + ":" + time.Now().Format("150405.000000") + ":"
	l := NewLocker(rdb, logger.Nop(), LockConfig{Prefix: prefix, TTL: 5 * time.Second, Wait: 3 * time.Second, Poll: 5 * time.Millisecond})

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), ObservationKeys("dup@x.com", "1"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			assert.NoError(t, release(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestRedisLockerTimesOut(t *testing.T) {
	rdb := liveClient(t)
	prefix := "identity:test:" + t.Name() + ":" + time.Now().Format("150405.000000") + ":"
	l := NewLocker(rdb, logger.Nop(), LockConfig{Prefix: prefix, TTL: 5 * time.Second, Wait: 50 * time.Millisecond, Poll: 5 * time.Millisecond})

	release, err := l.Acquire(context.Background(), []string{"k"})
	require.NoError(t, err)
	defer func() { _ = release(context.Background()) }()

	_, err = l.Acquire(context.Background(), []string{"k"})
	assert.True(t, errors.Is(err, ErrLockTimeout), "got %v", err)
}

func TestNewClientEmptyAddr(t *testing.T) {
	rdb, err := NewClient(context.Background(), logger.Nop(), ClientConfig{})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}
