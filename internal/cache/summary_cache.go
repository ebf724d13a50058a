package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supplyplan/replenish-go/internal/config"
	"github.com/supplyplan/replenish-go/internal/domain"
)

const summaryKeyPrefix = "replenish:summary"

// SummaryCache stores the latest run summary per SKU/country. Cache failures
// are surfaced as errors but callers treat them as advisory only.
type SummaryCache interface {
	Get(ctx context.Context, sku, country string) (*domain.RunSummary, bool, error)
	Set(ctx context.Context, summary *domain.RunSummary) error
	Invalidate(ctx context.Context, sku, country string) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

func NewSummaryCache(cfg config.CacheConfig) (SummaryCache, error) {
	if !cfg.Enabled {
		return &noopSummaryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSummaryCache{client: client, ttl: ttl}, nil
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

func (c *redisSummaryCache) Get(ctx context.Context, sku, country string) (*domain.RunSummary, bool, error) {
	payload, err := c.client.Get(ctx, buildSummaryKey(sku, country)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.RunSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode run summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisSummaryCache) Set(ctx context.Context, summary *domain.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode run summary cache: %w", err)
	}

	key := buildSummaryKey(summary.SKU, summary.Country)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) Invalidate(ctx context.Context, sku, country string) error {
	return c.client.Del(ctx, buildSummaryKey(sku, country)).Err()
}

func (n *noopSummaryCache) Get(ctx context.Context, sku, country string) (*domain.RunSummary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) Set(ctx context.Context, summary *domain.RunSummary) error {
	return nil
}

func (n *noopSummaryCache) Invalidate(ctx context.Context, sku, country string) error {
	return nil
}

func buildSummaryKey(sku, country string) string {
	return fmt.Sprintf("%s:%s:%s",
		summaryKeyPrefix,
		strings.ToUpper(strings.TrimSpace(sku)),
		strings.ToUpper(strings.TrimSpace(country)))
}
