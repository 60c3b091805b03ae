package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/metrics"
	"github.com/radiusdt/prediction-monitor/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const mappingCacheKey = "prediction-monitor:channel-mappings"

// CachedMappingRepo is a read-through Redis cache in front of another
// MappingRepo. Writes go to the underlying repo and invalidate the cache.
// Redis failures are logged and the underlying repo is used instead.
type CachedMappingRepo struct {
	next    MappingRepo
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCachedMappingRepo wraps next with a cache entry living for ttl.
func NewCachedMappingRepo(next MappingRepo, client *redis.Client, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *CachedMappingRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedMappingRepo{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

func (r *CachedMappingRepo) ListMappings(ctx context.Context) ([]models.ChannelMapping, error) {
	data, err := r.client.Get(ctx, mappingCacheKey).Bytes()
	switch {
	case err == nil:
		var cached []models.ChannelMapping
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			r.metrics.RecordCacheLookup(true)
			return cached, nil
		}
		r.logger.Warn("discarding unreadable mapping cache entry")
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("mapping cache read failed", zap.Error(err))
	}
	r.metrics.RecordCacheLookup(false)

	mappings, err := r.next.ListMappings(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(mappings); err == nil {
		if err := r.client.Set(ctx, mappingCacheKey, data, r.ttl).Err(); err != nil {
			r.logger.Warn("mapping cache write failed", zap.Error(err))
		}
	}
	return mappings, nil
}

func (r *CachedMappingRepo) UpsertMapping(ctx context.Context, m models.ChannelMapping) error {
	if err := r.next.UpsertMapping(ctx, m); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedMappingRepo) DeleteMapping(ctx context.Context, prediction string) error {
	if err := r.next.DeleteMapping(ctx, prediction); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedMappingRepo) invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, mappingCacheKey).Err(); err != nil {
		r.logger.Warn("mapping cache invalidation failed", zap.Error(err))
	}
}
