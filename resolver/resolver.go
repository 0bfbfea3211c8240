package resolver

import (
	"context"
	"errors"
	"go-cbr-converter/cbr"
	"go-cbr-converter/domain"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// MaxLookbackDays how far before today the search for a published table may go.
// The window is anchored to today, not to the requested date.
const MaxLookbackDays = 365

var (
	// ErrUnavailable no table was found anywhere in the search window.
	ErrUnavailable = errors.New("rate unavailable for the selected period")

	// ErrSuperseded a newer resolution finished first; its table is kept.
	ErrSuperseded = errors.New("superseded by a newer resolution")
)

// Snapshot the cached table together with the day it was published for.
type Snapshot struct {
	Date  time.Time
	Rates domain.RateTable

	seq uint64
}

// Resolver finds the most recent published table at or before a date and caches it.
// It is safe for concurrent use: the cached snapshot is replaced by a single pointer swap.
type Resolver struct {
	// rates source of daily tables
	rates cbr.Service

	// logger for logging
	logger log.Logger

	now func() time.Time

	// seq orders resolutions by the time they were requested
	seq atomic.Uint64

	current atomic.Pointer[Snapshot]
}

// New constructs a valid Resolver
func New(rates cbr.Service, logger log.Logger) *Resolver {
	return &Resolver{
		rates:  rates,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve walks back one day at a time from start until a table is found.
// On success the table replaces the cache and the day it was found for is returned.
// The cache is left as it was when the window is exhausted (ErrUnavailable), when ctx is done,
// or when a resolution requested later has already stored its table (ErrSuperseded).
func (r *Resolver) Resolve(ctx context.Context, start time.Time) (time.Time, domain.RateTable, error) {
	seq := r.seq.Add(1)
	logger := log.With(r.logger, "resolution", uuid.NewString())

	date := domain.Day(start)
	floor := domain.Day(r.now().In(start.Location())).AddDate(0, 0, -MaxLookbackDays)
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return time.Time{}, nil, err
		}

		attempts++
		rates, err := r.rates.Rates(ctx, date)
		if err == nil {
			// a table served after cancellation must not reach the cache
			if err := ctx.Err(); err != nil {
				return time.Time{}, nil, err
			}
			if !r.swap(&Snapshot{Date: date, Rates: rates, seq: seq}) {
				level.Info(logger).Log("msg", "discarding superseded rates", "date", date.Format("2006-01-02"))
				return time.Time{}, nil, ErrSuperseded
			}
			level.Info(logger).Log(
				"msg", "resolved rates",
				"requested", start.Format("2006-01-02"),
				"effective", date.Format("2006-01-02"),
				"attempts", attempts,
				"currencies", len(rates),
			)
			return date, rates, nil
		}
		level.Debug(logger).Log("msg", "no rates for date", "date", date.Format("2006-01-02"), "err", err)

		date = date.AddDate(0, 0, -1)
		if date.Before(floor) {
			level.Warn(logger).Log("msg", "search window exhausted", "requested", start.Format("2006-01-02"), "attempts", attempts)
			return time.Time{}, nil, ErrUnavailable
		}
	}
}

// swap stores next unless a later resolution already stored its own
func (r *Resolver) swap(next *Snapshot) bool {
	for {
		prev := r.current.Load()
		if prev != nil && prev.seq > next.seq {
			return false
		}
		if r.current.CompareAndSwap(prev, next) {
			return true
		}
	}
}

// Current returns the cached snapshot, false when nothing was resolved yet.
func (r *Resolver) Current() (Snapshot, bool) {
	snapshot := r.current.Load()
	if snapshot == nil {
		return Snapshot{}, false
	}
	return *snapshot, true
}
