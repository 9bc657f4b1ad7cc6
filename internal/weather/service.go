// Package weather implements the cache-aside weather lookup and the query
// history read paths.
package weather

import (
	"context"
	"fmt"
	"time"

	"weatherapi/m/domain"
	"weatherapi/m/internal/cache"
	"weatherapi/m/internal/common"
	"weatherapi/m/internal/logging"
	"weatherapi/m/internal/metrics"
	"weatherapi/m/internal/repositories/queries"
)

const keyPrefix = "weather:"

// CacheKey derives the cache key for a city. The city is used verbatim, so
// "Paris" and "paris" are separate entries.
func CacheKey(city string) string {
	return keyPrefix + city
}

// Options tunes cache behaviour of the Service.
type Options struct {
	CacheTTL     time.Duration
	CacheTimeout time.Duration
}

// Service serves weather lookups and history listings.
type Service struct {
	cache    cache.Store
	provider Provider
	history  queries.Repository
	metrics  *metrics.Metrics
	logger   logging.Logger
	opts     Options
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(store cache.Store, provider Provider, history queries.Repository, m *metrics.Metrics, logger logging.Logger, opts Options) *Service {
	return &Service{
		cache:    store,
		provider: provider,
		history:  history,
		metrics:  m,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Lookup returns weather for city on behalf of userID and records the query.
//
// A cached payload is served without touching the provider; on a miss the
// provider result is written back with the configured TTL. Every successful
// lookup appends a history row. A failed cache read or history write fails the
// lookup; a corrupt cache entry is refetched and a write-back failure is only
// logged. Concurrent misses for the same city are not coalesced.
func (s *Service) Lookup(ctx context.Context, userID int64, city string) (*domain.WeatherQuery, error) {
	if city == "" {
		return nil, fmt.Errorf("%w: city", common.ErrMissingParameter)
	}
	key := CacheKey(city)

	payload, hit, err := s.readCache(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if hit {
		s.logger.Info(ctx, "cache hit", "city", city)
	} else {
		s.logger.Info(ctx, "cache miss", "city", city)
		payload, err = s.fetch(ctx, city)
		if err != nil {
			return nil, err
		}
	}

	record, err := s.history.Append(ctx, &domain.WeatherQuery{
		City:      city,
		Result:    payload,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.metrics.HistoryFailures.Inc()
		return nil, fmt.Errorf("append history: %w", err)
	}

	if !hit {
		s.writeCache(ctx, key, payload)
	}
	return record, nil
}

// ListForUser returns the caller's history, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.WeatherQuery, error) {
	rows, err := s.history.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list queries for user %d: %w", userID, err)
	}
	return rows, nil
}

// ListAll returns every user's history with the owning account, newest first.
func (s *Service) ListAll(ctx context.Context) ([]domain.WeatherQueryWithUser, error) {
	rows, err := s.history.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all queries: %w", err)
	}
	return rows, nil
}

// readCache reports a corrupt entry as a miss. Store errors are returned.
func (s *Service) readCache(ctx context.Context, key string) (domain.Payload, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()

	val, found, err := s.cache.Get(cctx, key)
	switch {
	case err != nil:
		s.metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, err
	case !found:
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	payload := domain.Payload(val)
	if !payload.Valid() {
		s.metrics.CacheLookups.WithLabelValues("error").Inc()
		s.logger.Warn(ctx, "discarding corrupt cache entry", "key", key)
		return nil, false, nil
	}
	s.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return payload, true, nil
}

func (s *Service) fetch(ctx context.Context, city string) (domain.Payload, error) {
	start := time.Now()
	payload, err := s.provider.Fetch(ctx, city)
	s.metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ProviderFailures.Inc()
		return nil, fmt.Errorf("%w: %w", common.ErrProviderFetchFailed, err)
	}
	return payload, nil
}

func (s *Service) writeCache(ctx context.Context, key string, payload domain.Payload) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()

	if err := s.cache.Set(cctx, key, payload, s.opts.CacheTTL); err != nil {
		s.metrics.CacheWriteErrors.Inc()
		s.logger.Warn(ctx, "cache write failed", "key", key, "error", err)
		return
	}
	s.logger.Debug(ctx, "cached weather", "key", key, "ttl", s.opts.CacheTTL)
}
