package cbr

import (
	"context"
	"errors"
	"go-cbr-converter/domain"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mock struct {
	count int32
	fail  bool
}

func (m *mock) Rates(_ context.Context, _ time.Time) (domain.RateTable, error) {
	atomic.AddInt32(&m.count, 1)
	if m.fail {
		return nil, errors.New("no data")
	}
	return domain.RateTable{domain.RUB: domain.BaseRate()}, nil
}

func newTestCache(ttl time.Duration, next Service, now *time.Time) *cachingService {
	s := NewCachingService(ttl, next).(*cachingService)
	s.now = func() time.Time { return *now }
	return s
}

func TestCachingService_Archive(t *testing.T) {
	now := today
	var underlyingService mock
	s := newTestCache(1*time.Minute, &underlyingService, &now)

	day := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	_, _ = s.Rates(context.Background(), day)
	assert.Equal(t, int32(1), underlyingService.count)

	now = now.Add(48 * time.Hour)
	_, _ = s.Rates(context.Background(), day)
	assert.Equal(t, int32(1), underlyingService.count)
}

func TestCachingService_TodayExpires(t *testing.T) {
	now := today
	var underlyingService mock
	s := newTestCache(1*time.Minute, &underlyingService, &now)

	_, _ = s.Rates(context.Background(), today)
	_, _ = s.Rates(context.Background(), today)
	assert.Equal(t, int32(1), underlyingService.count)

	now = now.Add(2 * time.Minute)
	_, _ = s.Rates(context.Background(), today)
	assert.Equal(t, int32(2), underlyingService.count)
}

func TestCachingService_TodayRefetchedAfterRollover(t *testing.T) {
	now := today
	var underlyingService mock
	s := newTestCache(1*time.Hour, &underlyingService, &now)

	_, _ = s.Rates(context.Background(), today)
	assert.Equal(t, int32(1), underlyingService.count)

	now = now.Add(24 * time.Hour)
	_, _ = s.Rates(context.Background(), today)
	assert.Equal(t, int32(2), underlyingService.count)

	now = now.Add(24 * time.Hour)
	_, _ = s.Rates(context.Background(), today)
	assert.Equal(t, int32(2), underlyingService.count)
}

func TestCachingService_FailuresNotCached(t *testing.T) {
	now := today
	underlyingService := mock{fail: true}
	s := newTestCache(1*time.Minute, &underlyingService, &now)

	_, err := s.Rates(context.Background(), today)
	assert.Error(t, err)

	_, err = s.Rates(context.Background(), today)
	assert.Error(t, err)
	assert.Equal(t, int32(2), underlyingService.count)
}
