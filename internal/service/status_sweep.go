package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"auctionhub/internal/models"
	"auctionhub/internal/repository"
)

// StatusSweepService moves upcoming lots whose auction date has passed to unsold.
type StatusSweepService struct {
	Lots     repository.LotRepository
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

// Today is the current calendar date in the sweep's timezone, as midnight UTC.
func (s *StatusSweepService) Today() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return calendarDay(now, s.Location)
}

// calendarDay is the date of now in loc, as midnight UTC.
func calendarDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *StatusSweepService) Run(ctx context.Context) (int64, error) {
	if s == nil || s.Lots == nil {
		return 0, nil
	}
	today := s.Today()
	n, err := s.Lots.MarkPastLotsUnsold(ctx, today)
	if err != nil {
		return 0, err
	}
	if s.Logger != nil {
		s.Logger.Info("status sweep done", zap.String("today", today.Format(models.DateLayout)), zap.Int64("marked_unsold", n))
	}
	return n, nil
}
