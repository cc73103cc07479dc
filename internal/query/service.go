package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/medreg/internal/pkg/logger"
	"github.com/ignite/medreg/internal/schema"
	"github.com/ignite/medreg/internal/store"
)

// ErrInvalidField is returned when a distinct-values lookup names a field
// outside the canonical set.
var ErrInvalidField = errors.New("unknown field")

const cacheTTL = 5 * time.Minute

// Service composes the filter builder, the paginator and the store into
// the read operations of the register. Introspection reads (distinct
// values, stats) are cached in Redis when a client is configured; the
// cache is best-effort and its failures never surface to callers.
type Service struct {
	store *store.Store
	cache *redis.Client
}

// NewService builds a Service. cache may be nil to disable caching.
func NewService(st *store.Store, cache *redis.Client) *Service {
	return &Service{store: st, cache: cache}
}

// List applies the composed filter predicate, then runs a count query and
// a paginated select with the same predicate.
func (s *Service) List(ctx context.Context, filters map[string]string, page, pageSize int) ([]store.Record, Page, error) {
	pred := BuildFilter(filters)

	total, err := s.store.Count(ctx, pred.Where, pred.Args)
	if err != nil {
		return nil, Page{}, err
	}

	pg := NewPage(page, pageSize, total)
	records, err := s.store.Select(ctx, pred.Where, pred.Args, pg.PageSize, pg.Offset())
	if err != nil {
		return nil, Page{}, err
	}
	return records, pg, nil
}

// GetByID fetches one record by identity. store.ErrNotFound passes through.
func (s *Service) GetByID(ctx context.Context, id int64) (store.Record, error) {
	return s.store.GetByID(ctx, id)
}

// DistinctValues returns the sorted distinct non-empty values of one
// field, for populating filter option lists.
func (s *Service) DistinctValues(ctx context.Context, field string) ([]string, error) {
	f, ok := schema.Lookup(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	key := "medreg:distinct:" + field
	var values []string
	if s.cacheGet(ctx, key, &values) {
		return values, nil
	}

	values, err := s.store.DistinctValues(ctx, f)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, values)
	return values, nil
}

// Stats returns the register-wide aggregate counts.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	const key = "medreg:stats"
	var stats store.Stats
	if s.cacheGet(ctx, key, &stats) {
		return stats, nil
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	s.cacheSet(ctx, key, stats)
	return stats, nil
}

// InvalidateCache drops the cached introspection reads. Called after an
// import lands new rows.
func (s *Service) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := []string{"medreg:stats"}
	for _, f := range schema.AllFields() {
		keys = append(keys, "medreg:distinct:"+string(f))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("cache invalidate failed", "error", err.Error())
	}
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cache get failed", "key", key, "error", err.Error())
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("cache entry corrupt", "key", key, "error", err.Error())
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		logger.Warn("cache set failed", "key", key, "error", err.Error())
	}
}
