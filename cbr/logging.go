package cbr

import (
	"context"
	"go-cbr-converter/domain"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// loggingService decorates a cbr.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService return a new logging service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) Rates(ctx context.Context, date time.Time) (rates domain.RateTable, err error) {
	defer func(begin time.Time) {
		logger := level.Debug(s.logger)
		if err != nil {
			logger = level.Warn(s.logger)
		}
		logger.Log(
			"method", "rates",
			"date", date.Format("2006-01-02"),
			"currencies", len(rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Rates(ctx, date)
}
