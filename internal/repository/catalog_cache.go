package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/domain"
	"barbershop/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const catalogKeyPrefix = "catalog:service:"

// redisRetryInterval is how long the cache stays in fallback mode after a
// redis failure before probing again.
const redisRetryInterval = time.Minute

// NewRedisClient creates a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// CachedCatalog is a read-through redis cache in front of a ServiceCatalog.
// Redis failures degrade it to direct catalog reads; it probes redis again
// after redisRetryInterval.
type CachedCatalog struct {
	catalog domain.ServiceCatalog
	client  *redis.Client
	ttl     time.Duration
	log     zerolog.Logger

	down      atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewCachedCatalog(catalog domain.ServiceCatalog, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *CachedCatalog {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "catalog-cache").Logger()
	}
	if ttl <= 0 {
		ttl = models.DefaultCatalogCacheTTL * time.Second
	}
	return &CachedCatalog{
		catalog: catalog,
		client:  client,
		ttl:     ttl,
		log:     base,
	}
}

// ResolveServices serves as many ids as possible from redis and falls back to
// the underlying catalog for the rest, caching what it fetched. Input order
// is preserved; one unknown id fails the whole lookup, as the engine requires.
func (c *CachedCatalog) ResolveServices(ctx context.Context, ids []string) ([]*models.Service, error) {
	if c.client == nil || !c.healthy() {
		return c.catalog.ResolveServices(ctx, ids)
	}

	cached := make(map[string]*models.Service, len(ids))
	var missing []string
	for _, id := range ids {
		val, err := c.client.Get(ctx, catalogKeyPrefix+id).Result()
		if err == redis.Nil {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			c.markDown(err)
			return c.catalog.ResolveServices(ctx, ids)
		}
		var svc models.Service
		if err := json.Unmarshal([]byte(val), &svc); err != nil {
			// Corrupt entry; refetch from the catalog.
			missing = append(missing, id)
			continue
		}
		cached[id] = &svc
	}

	if len(missing) > 0 {
		fetched, err := c.catalog.ResolveServices(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, svc := range fetched {
			cached[svc.ID] = svc
			c.store(ctx, svc)
		}
	}

	resolved := make([]*models.Service, 0, len(ids))
	for _, id := range ids {
		svc, ok := cached[id]
		if !ok {
			return nil, fmt.Errorf("service %s missing after cache resolution", id)
		}
		resolved = append(resolved, svc)
	}
	return resolved, nil
}

// ListServices is a pass-through; list results are not cached.
func (c *CachedCatalog) ListServices(ctx context.Context, activeOnly bool) ([]*models.Service, error) {
	return c.catalog.ListServices(ctx, activeOnly)
}

// Invalidate drops cached entries after a catalog mutation.
func (c *CachedCatalog) Invalidate(ctx context.Context, ids ...string) {
	if c.client == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = catalogKeyPrefix + id
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.markDown(err)
	}
}

func (c *CachedCatalog) store(ctx context.Context, svc *models.Service) {
	data, err := json.Marshal(svc)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, catalogKeyPrefix+svc.ID, data, c.ttl).Err(); err != nil {
		c.markDown(err)
	}
}

func (c *CachedCatalog) markDown(err error) {
	if c.down.CompareAndSwap(false, true) {
		c.log.Warn().Err(err).Msg("redis unavailable, serving catalog directly")
	}
	c.mu.Lock()
	c.lastCheck = time.Now()
	c.mu.Unlock()
}

func (c *CachedCatalog) healthy() bool {
	if !c.down.Load() {
		return true
	}
	c.mu.Lock()
	retry := time.Since(c.lastCheck) > redisRetryInterval
	if retry {
		c.lastCheck = time.Now()
	}
	c.mu.Unlock()
	if retry {
		c.down.Store(false)
		return true
	}
	return false
}
