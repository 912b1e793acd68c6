package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
)

const (
	reportKeyPrefix  = "operations:report"
	defaultReportTTL = time.Hour
)

// ReportCache holds the day's successful report per store so repeated reads reuse one run.
type ReportCache interface {
	GetReport(ctx context.Context, storeID string, day time.Time) (*ops.Report, bool, error)
	SetReport(ctx context.Context, report *ops.Report) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttlOrDefault(cfg.ReportTTLSeconds, defaultReportTTL),
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetReport(ctx context.Context, storeID string, day time.Time) (*ops.Report, bool, error) {
	payload, err := c.client.Get(ctx, reportKey(storeID, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report ops.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}
	return &report, true, nil
}

func (c *redisReportCache) SetReport(ctx context.Context, report *ops.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, reportKey(report.StoreID, report.RunDate), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, scanBatchSize)
}

func (n *noopReportCache) GetReport(ctx context.Context, storeID string, day time.Time) (*ops.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, report *ops.Report) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func reportKey(storeID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", reportKeyPrefix, storeID, domain.Day(day).Format(domain.DateLayout))
}
