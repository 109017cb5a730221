package carbonlabel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const cacheKeyPrefix = "fern:labels:"

// CachedRepository is a read-through cache in front of the label repository.
// Matching reads the same small candidate sets over and over, so both lookup
// queries cache well. Cache failures fall back to the database.
type CachedRepository struct {
	inner  *Repository
	cache  *redis.Client
	logger ectologger.Logger
	ttl    time.Duration
}

// NewCachedRepository wraps a label repository with a Redis cache.
func NewCachedRepository(inner *Repository, cache *redis.Client, logger ectologger.Logger, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		inner:  inner,
		cache:  cache,
		logger: logger,
		ttl:    ttl,
	}
}

// FindByNameContains retrieves active labels matching the name, serving from
// cache when possible.
func (r *CachedRepository) FindByNameContains(ctx context.Context, name string, limit int) ([]models.CarbonLabel, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.CachedRepository.FindByNameContains")
	defer span.End()

	key := fmt.Sprintf("%scontains:%s:%d", cacheKeyPrefix, strings.ToLower(strings.TrimSpace(name)), limit)
	if labels, ok := r.fromCache(ctx, key); ok {
		return labels, nil
	}

	labels, err := r.inner.FindByNameContains(ctx, name, limit)
	if err != nil {
		return nil, err
	}

	r.toCache(ctx, key, labels)
	return labels, nil
}

// FindAllActive retrieves active labels for the scan phase, serving from
// cache when possible.
func (r *CachedRepository) FindAllActive(ctx context.Context, limit int) ([]models.CarbonLabel, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.CachedRepository.FindAllActive")
	defer span.End()

	key := fmt.Sprintf("%sactive:%d", cacheKeyPrefix, limit)
	if labels, ok := r.fromCache(ctx, key); ok {
		return labels, nil
	}

	labels, err := r.inner.FindAllActive(ctx, limit)
	if err != nil {
		return nil, err
	}

	r.toCache(ctx, key, labels)
	return labels, nil
}

// Invalidate drops every cached label query. Called after a catalog import.
func (r *CachedRepository) Invalidate(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.CachedRepository.Invalidate")
	defer span.End()

	return r.cache.DelPattern(ctx, cacheKeyPrefix+"*")
}

func (r *CachedRepository) fromCache(ctx context.Context, key string) ([]models.CarbonLabel, bool) {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if err != goredis.Nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Label cache read failed")
		}
		metrics.RecordLabelCacheLookup("miss")
		return nil, false
	}

	var labels []models.CarbonLabel
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Label cache entry is corrupt")
		metrics.RecordLabelCacheLookup("miss")
		return nil, false
	}

	metrics.RecordLabelCacheLookup("hit")
	return labels, true
}

func (r *CachedRepository) toCache(ctx context.Context, key string, labels []models.CarbonLabel) {
	raw, err := json.Marshal(labels)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to serialize labels for cache")
		return
	}

	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Label cache write failed")
	}
}
