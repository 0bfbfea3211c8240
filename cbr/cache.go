package cbr

import (
	"context"
	"fmt"
	"go-cbr-converter/domain"
	"sync"
	"time"
)

// cachingService decorates a cbr.Service with a per-day cache of rate tables.
// Archived days never change so they are kept for good; today's table is refetched once it is older than todayTTL
// and once more after the day has passed.
type cachingService struct {
	// next the service being decorated with a cache
	next Service

	// cache tables keyed by calendar day
	cache map[string]cached

	// todayTTL how long today's table is served from the cache
	todayTTL time.Duration

	// lock synchronizes access to cache to make it concurrency safe
	lock sync.RWMutex

	now func() time.Time
}

type cached struct {
	rates   domain.RateTable
	fetched time.Time
}

// NewCachingService returns a new caching Service
func NewCachingService(todayTTL time.Duration, s Service) Service {
	return &cachingService{
		next:     s,
		cache:    map[string]cached{},
		todayTTL: todayTTL,
		lock:     sync.RWMutex{},
		now:      time.Now,
	}
}

// Rates looks up the table for date and caches successful results.
// Failures are not cached so a later attempt for the same day reaches the feed again.
func (s *cachingService) Rates(ctx context.Context, date time.Time) (domain.RateTable, error) {
	key := date.Format("2006-01-02")

	s.lock.RLock()
	entry, ok := s.cache[key]
	s.lock.RUnlock()

	if ok && s.fresh(date, entry) {
		return entry.rates, nil
	}

	rates, err := s.next.Rates(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("refreshing cache [%v]: %w", key, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.cache[key] = cached{rates: rates, fetched: s.now()}
	return rates, nil
}

// fresh reports whether entry can still be served. A table fetched on or before its own day came from the
// live feed and is fetched again once that day is over.
func (s *cachingService) fresh(date time.Time, entry cached) bool {
	now := s.now()
	if !domain.SameDay(date, now) {
		return domain.Day(entry.fetched.In(date.Location())).After(domain.Day(date))
	}
	return now.Sub(entry.fetched) < s.todayTTL
}
