package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/centxo/adser-dashboard/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Result describes how a Get was answered.
type Result string

const (
	ResultFresh Result = "fresh"
	ResultStale Result = "stale"
	ResultMiss  Result = "miss"
	// ResultBypass means Redis failed and the loader answered directly.
	ResultBypass Result = "bypass"
)

// Loader computes the value for a key.
type Loader func(ctx context.Context) ([]byte, error)

type entry struct {
	StoredAt time.Time       `json:"storedAt"`
	Body     json.RawMessage `json:"body"`
}

// SWRCache is a stale-while-revalidate cache of JSON documents in Redis.
// Entries younger than FreshTTL are served as is. Entries between FreshTTL and
// StaleTTL are served and refreshed in the background, once per key.
type SWRCache struct {
	client    *redis.Client
	prefix    string
	freshTTL  time.Duration
	staleTTL  time.Duration
	loadLimit time.Duration

	group   singleflight.Group
	wg      sync.WaitGroup
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewSWRCache creates a cache on client.
func NewSWRCache(client *redis.Client, cfg config.CacheConfig, logger *zap.Logger, m *metrics.Metrics) *SWRCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SWRCache{
		client:    client,
		prefix:    cfg.Prefix,
		freshTTL:  cfg.FreshTTL,
		staleTTL:  cfg.StaleTTL,
		loadLimit: cfg.LoadLimit,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Key builds a namespaced cache key.
func (c *SWRCache) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Get returns the cached value of key, loading it on a miss.
func (c *SWRCache) Get(ctx context.Context, key string, load Loader) ([]byte, Result, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return c.fill(ctx, key, load)
	case err != nil:
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		c.record(ResultBypass)
		body, err := load(ctx)
		return body, ResultBypass, err
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return c.fill(ctx, key, load)
	}

	age := c.now().Sub(e.StoredAt)
	if age < c.freshTTL {
		c.record(ResultFresh)
		return e.Body, ResultFresh, nil
	}

	c.record(ResultStale)
	c.revalidate(key, load)
	return e.Body, ResultStale, nil
}

func (c *SWRCache) fill(ctx context.Context, key string, load Loader) ([]byte, Result, error) {
	c.record(ResultMiss)
	body, err := load(ctx)
	if err != nil {
		return nil, ResultMiss, err
	}
	if err := c.store(ctx, key, body); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return body, ResultMiss, nil
}

func (c *SWRCache) revalidate(key string, load Loader) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		_, _, shared := c.group.Do(key, func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), c.loadLimit)
			defer cancel()

			body, err := load(ctx)
			if err != nil {
				c.logger.Warn("cache revalidation failed", zap.String("key", key), zap.Error(err))
				c.recordRevalidation("error")
				return nil, err
			}
			if err := c.store(ctx, key, body); err != nil {
				c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
				c.recordRevalidation("error")
				return nil, err
			}
			c.recordRevalidation("ok")
			return nil, nil
		})
		if shared {
			c.logger.Debug("joined in-flight revalidation", zap.String("key", key))
		}
	}()
}

func (c *SWRCache) store(ctx context.Context, key string, body []byte) error {
	raw, err := json.Marshal(entry{StoredAt: c.now(), Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.staleTTL).Err()
}

// Wait blocks until background revalidations finish.
func (c *SWRCache) Wait() {
	c.wg.Wait()
}

func (c *SWRCache) record(r Result) {
	if c.metrics != nil {
		c.metrics.RecordCacheResult(string(r))
	}
}

func (c *SWRCache) recordRevalidation(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordCacheRevalidation(outcome)
	}
}
