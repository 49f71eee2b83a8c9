package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"auctionhub/internal/cache"
	"auctionhub/internal/config"
	"auctionhub/internal/models"
	"auctionhub/internal/repository"
)

// LotQueryService serves the public read API through a TTL cache. Cache
// failures fall through to the store.
type LotQueryService struct {
	Repo     repository.LotRepository
	Cache    cache.Store
	TTL      config.CacheConfig
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

type LotsResult struct {
	Items []models.Lot `json:"items"`
	Total int64        `json:"total"`
}

func (s *LotQueryService) ListLots(ctx context.Context, params repository.ListLotsParams) (LotsResult, error) {
	key := lotsCacheKey(params)
	var cached LotsResult
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	total, err := s.Repo.CountLots(ctx, params)
	if err != nil {
		return LotsResult{}, err
	}
	items, err := s.Repo.ListLots(ctx, params)
	if err != nil {
		return LotsResult{}, err
	}
	if items == nil {
		items = []models.Lot{}
	}
	res := LotsResult{Items: items, Total: total}
	s.cacheSet(ctx, key, res, s.TTL.LotsTTL)
	return res, nil
}

// GetLot returns nil when the lot does not exist. Misses are not cached.
func (s *LotQueryService) GetLot(ctx context.Context, id uint64) (*models.Lot, error) {
	key := "lot:" + strconv.FormatUint(id, 10)
	var cached models.Lot
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	lot, err := s.Repo.GetLot(ctx, id)
	if err != nil || lot == nil {
		return lot, err
	}
	s.cacheSet(ctx, key, lot, s.TTL.LotTTL)
	return lot, nil
}

func (s *LotQueryService) Stats(ctx context.Context) (repository.LotStats, error) {
	var cached repository.LotStats
	if s.cacheGet(ctx, "stats", &cached) {
		return cached, nil
	}
	stats, err := s.Repo.LotStats(ctx, s.today())
	if err != nil {
		return repository.LotStats{}, err
	}
	s.cacheSet(ctx, "stats", stats, s.TTL.StatsTTL)
	return stats, nil
}

func (s *LotQueryService) today() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return calendarDay(now, s.Location)
}

func (s *LotQueryService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.Cache == nil {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.Cache, key, out)
	if err != nil && s.Logger != nil {
		s.Logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return ok
}

func (s *LotQueryService) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.Cache == nil || ttl <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, s.Cache, key, v, ttl); err != nil && s.Logger != nil {
		s.Logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func lotsCacheKey(p repository.ListLotsParams) string {
	str := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}
	num := func(v *int) string {
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	}
	return cache.QueryKey("lots", map[string]string{
		"limit":        strconv.Itoa(p.Limit),
		"offset":       strconv.Itoa(p.Offset),
		"region":       str(p.Region),
		"type":         str(p.PropertyType),
		"condition":    str(p.Condition),
		"house_id":     num(p.HouseID),
		"status":       str(p.Status),
		"price_min":    num(p.PriceMin),
		"price_max":    num(p.PriceMax),
		"bedrooms_min": num(p.BedroomsMin),
		"q":            str(p.Query),
		"sort":         p.Sort,
	})
}
