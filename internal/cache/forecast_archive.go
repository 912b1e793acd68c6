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
)

const (
	forecastKeyPrefix  = "forecast:lkg"
	defaultForecastTTL = 7 * 24 * time.Hour
)

// ForecastArchive keeps the latest fresh forecast of every (store, product) so a run can
// fall back to it when prediction is unavailable.
type ForecastArchive interface {
	SaveForecast(ctx context.Context, storeID, product string, records []domain.ForecastRecord) error
	LastKnownGood(ctx context.Context, storeID, product string) ([]domain.ForecastRecord, bool, error)
	InvalidateAll(ctx context.Context) error
}

type redisForecastArchive struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastArchive struct{}

func NewForecastArchive(cfg config.CacheConfig) (ForecastArchive, error) {
	if !cfg.Enabled {
		return &noopForecastArchive{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastArchive{
		client: client,
		ttl:    ttlOrDefault(cfg.ForecastTTLSeconds, defaultForecastTTL),
	}, nil
}

func NewNoopForecastArchive() ForecastArchive {
	return &noopForecastArchive{}
}

func (a *redisForecastArchive) SaveForecast(ctx context.Context, storeID, product string, records []domain.ForecastRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode forecast archive: %w", err)
	}

	if err := a.client.Set(ctx, forecastKey(storeID, product), payload, a.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (a *redisForecastArchive) LastKnownGood(ctx context.Context, storeID, product string) ([]domain.ForecastRecord, bool, error) {
	payload, err := a.client.Get(ctx, forecastKey(storeID, product)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var records []domain.ForecastRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode forecast archive: %w", err)
	}
	return records, true, nil
}

func (a *redisForecastArchive) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, a.client, forecastKeyPrefix, scanBatchSize)
}

func (n *noopForecastArchive) SaveForecast(ctx context.Context, storeID, product string, records []domain.ForecastRecord) error {
	return nil
}

func (n *noopForecastArchive) LastKnownGood(ctx context.Context, storeID, product string) ([]domain.ForecastRecord, bool, error) {
	return nil, false, nil
}

func (n *noopForecastArchive) InvalidateAll(ctx context.Context) error {
	return nil
}

func forecastKey(storeID, product string) string {
	return fmt.Sprintf("%s:%s:%s", forecastKeyPrefix, storeID, product)
}
