package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T) (*SWRCache, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewSWRCache(client, config.CacheConfig{
		Prefix:    "test",
		FreshTTL:  time.Minute,
		StaleTTL:  10 * time.Minute,
		LoadLimit: time.Second,
	}, zap.NewNop(), nil)

	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	return c, mr, clock
}

func counting(body string, calls *int32) Loader {
	return func(context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(body), nil
	}
}

func TestSWRMissThenFresh(t *testing.T) {
	c, mr, _ := newTestCache(t)
	ctx := context.Background()
	key := c.Key("data", "lottery")
	assert.Equal(t, "test:data:lottery", key)

	var calls int32
	body, res, err := c.Get(ctx, key, counting(`{"v":1}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, ResultMiss, res)
	assert.JSONEq(t, `{"v":1}`, string(body))

	body, res, err = c.Get(ctx, key, counting(`{"v":2}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, ResultFresh, res)
	assert.JSONEq(t, `{"v":1}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	assert.Equal(t, 10*time.Minute, mr.TTL(key))
}

func TestSWRServesStaleAndRevalidates(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()
	key := c.Key("charts")

	var calls int32
	_, _, err := c.Get(ctx, key, counting(`{"v":1}`, &calls))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	body, res, err := c.Get(ctx, key, counting(`{"v":2}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, ResultStale, res)
	assert.JSONEq(t, `{"v":1}`, string(body))

	c.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	body, res, err = c.Get(ctx, key, counting(`{"v":3}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, ResultFresh, res)
	assert.JSONEq(t, `{"v":2}`, string(body))
}

func TestSWRLoaderErrorOnMiss(t *testing.T) {
	c, mr, _ := newTestCache(t)
	boom := errors.New("store down")

	_, res, err := c.Get(context.Background(), c.Key("x"), func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ResultMiss, res)
	assert.False(t, mr.Exists(c.Key("x")))
}

func TestSWRFailedRevalidationKeepsStaleEntry(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()
	key := c.Key("y")

	var calls int32
	_, _, err := c.Get(ctx, key, counting(`{"v":1}`, &calls))
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)

	body, res, err := c.Get(ctx, key, func(context.Context) ([]byte, error) {
		return nil, errors.New("timeout")
	})
	require.NoError(t, err)
	assert.Equal(t, ResultStale, res)
	assert.JSONEq(t, `{"v":1}`, string(body))
	c.Wait()

	body, res, err = c.Get(ctx, key, counting(`{"v":9}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, ResultStale, res)
	assert.JSONEq(t, `{"v":1}`, string(body))
	c.Wait()
}

func TestSWRBypassesWhenRedisIsDown(t *testing.T) {
	c, mr, _ := newTestCache(t)
	mr.Close()

	var calls int32
	body, res, err := c.Get(context.Background(), c.Key("z"), counting(`{"ok":true}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, ResultBypass, res)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSWRReplacesCorruptEntry(t *testing.T) {
	c, mr, _ := newTestCache(t)
	key := c.Key("corrupt")
	require.NoError(t, mr.Set(key, "not json"))

	var calls int32
	body, res, err := c.Get(context.Background(), key, counting(`[1]`, &calls))
	require.NoError(t, err)
	assert.Equal(t, ResultMiss, res)
	assert.JSONEq(t, `[1]`, string(body))
}
