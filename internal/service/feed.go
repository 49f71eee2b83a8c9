package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"auctionhub/internal/feed"
	"auctionhub/internal/repository"
)

// FeedService regenerates the static feed from the lot store.
type FeedService struct {
	Lots            repository.LotRepository
	Writer          *feed.Writer
	Logger          *zap.Logger
	Location        *time.Location
	RefreshInterval time.Duration
	Now             func() time.Time
}

func (s *FeedService) Refresh(ctx context.Context) (feed.Stats, error) {
	if s == nil || s.Lots == nil || s.Writer == nil {
		return feed.Stats{}, nil
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	today := calendarDay(now, s.Location)

	lots, err := s.Lots.ListFeedLots(ctx, today)
	if err != nil {
		return feed.Stats{}, err
	}
	stats := feed.Stats{ByType: map[string]int{}, ScrapedAt: now, NextScrape: now.Add(s.interval())}
	for _, lot := range lots {
		stats.ByType[lot.PropertyType]++
	}
	doc, err := s.Writer.Write(ctx, lots, stats, today)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("feed write failed, previous file kept", zap.String("path", s.Writer.Path), zap.Error(err))
		}
		return feed.Stats{}, err
	}
	if s.Logger != nil {
		s.Logger.Info("feed written", zap.String("path", s.Writer.Path), zap.Int("lots", len(doc.Lots)))
	}
	return doc.Stats, nil
}

func (s *FeedService) interval() time.Duration {
	if s.RefreshInterval > 0 {
		return s.RefreshInterval
	}
	return 6 * time.Hour
}
