// Package memory is an in-process Repository used by the offline feed command and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"auctionhub/internal/extractor"
	"auctionhub/internal/models"
	"auctionhub/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	nextLot  uint64
	nextRun  uint64
	lots     map[uint64]*models.Lot
	byKey    map[string]uint64
	runs     []models.ScrapeRun
	settings map[string]models.SystemSetting

	// Now is overridable in tests.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		lots:     map[uint64]*models.Lot{},
		byKey:    map[string]uint64{},
		settings: map[string]models.SystemSetting{},
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) UpsertLot(_ context.Context, houseID int, raw extractor.RawLot) (bool, error) {
	raw.Title = strings.TrimSpace(raw.Title)
	if raw.Title == "" {
		return false, extractor.ErrMissingTitle
	}
	now := s.Now()
	key := models.LotIdentityKey(houseID, raw.Title, raw.AuctionDate)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[key]; ok {
		if updates := repository.MergeLotUpdates(raw); len(updates) > 0 {
			repository.ApplyLotUpdates(s.lots[id], updates, now)
		}
		return false, nil
	}
	lot := repository.NewLotFromRaw(houseID, raw, now)
	s.nextLot++
	lot.ID = s.nextLot
	s.lots[lot.ID] = &lot
	s.byKey[key] = lot.ID
	return true, nil
}

func (s *Store) GetLot(_ context.Context, id uint64) (*models.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, nil
	}
	cp := *lot
	return &cp, nil
}

func (s *Store) ListLots(_ context.Context, params repository.ListLotsParams) ([]models.Lot, error) {
	items := s.filter(params)
	sortLots(items, params.Sort)
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []models.Lot{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (s *Store) CountLots(_ context.Context, params repository.ListLotsParams) (int64, error) {
	return int64(len(s.filter(params))), nil
}

func (s *Store) filter(params repository.ListLotsParams) []models.Lot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Lot, 0, len(s.lots))
	for _, lot := range s.lots {
		if matches(lot, params) {
			out = append(out, *lot)
		}
	}
	return out
}

func matches(lot *models.Lot, p repository.ListLotsParams) bool {
	if v := trimmed(p.Region); v != "" && lot.Region != v {
		return false
	}
	if v := trimmed(p.PropertyType); v != "" && lot.PropertyType != v {
		return false
	}
	if v := trimmed(p.Condition); v != "" && lot.LotCondition != v {
		return false
	}
	if p.HouseID != nil && lot.AuctionHouseID != *p.HouseID {
		return false
	}
	if v := trimmed(p.Status); v != "" && lot.Status != v {
		return false
	}
	if p.PriceMin != nil && (lot.GuidePriceLow == nil || *lot.GuidePriceLow < *p.PriceMin) {
		return false
	}
	if p.PriceMax != nil {
		switch {
		case lot.GuidePriceHigh != nil:
			if *lot.GuidePriceHigh > *p.PriceMax {
				return false
			}
		case lot.GuidePriceLow == nil || *lot.GuidePriceLow > *p.PriceMax:
			return false
		}
	}
	if p.BedroomsMin != nil && (lot.Bedrooms == nil || *lot.Bedrooms < *p.BedroomsMin) {
		return false
	}
	if q := strings.ToLower(trimmed(p.Query)); q != "" {
		if !containsFold(&lot.Title, q) && !containsFold(lot.Address, q) && !containsFold(lot.Postcode, q) {
			return false
		}
	}
	return true
}

func containsFold(v *string, lowerNeedle string) bool {
	return v != nil && strings.Contains(strings.ToLower(*v), lowerNeedle)
}

// sortLots mirrors the SQL ordering, nulls last, id as the tie-breaker.
func sortLots(items []models.Lot, mode string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch mode {
		case repository.SortDateDesc:
			if c := cmpDate(a.AuctionDate, b.AuctionDate, true); c != 0 {
				return c < 0
			}
			return a.ID > b.ID
		case repository.SortPriceAsc:
			if c := cmpInt(a.GuidePriceLow, b.GuidePriceLow, false); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		case repository.SortPriceDesc:
			if c := cmpInt(a.GuidePriceLow, b.GuidePriceLow, true); c != 0 {
				return c < 0
			}
			return a.ID > b.ID
		case repository.SortNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		default:
			if c := cmpDate(a.AuctionDate, b.AuctionDate, false); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		}
	})
}

func cmpDate(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Equal(*b):
		return 0
	case a.Before(*b) != desc:
		return -1
	default:
		return 1
	}
}

func cmpInt(a, b *int, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a == *b:
		return 0
	case (*a < *b) != desc:
		return -1
	default:
		return 1
	}
}

func (s *Store) LotStats(_ context.Context, today time.Time) (repository.LotStats, error) {
	stats := repository.LotStats{
		ByRegion:    map[string]int64{},
		ByType:      map[string]int64{},
		ByStatus:    map[string]int64{},
		LastUpdated: s.Now(),
	}
	todayKey := today.Format(models.DateLayout)
	var sum, n int64
	var next string

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lot := range s.lots {
		stats.TotalLots++
		stats.ByStatus[lot.Status]++
		if lot.Status != models.StatusUpcoming {
			continue
		}
		stats.UpcomingLots++
		stats.ByRegion[lot.Region]++
		stats.ByType[lot.PropertyType]++
		if lot.GuidePriceLow != nil {
			sum += int64(*lot.GuidePriceLow)
			n++
		}
		if lot.AuctionDate != nil {
			d := lot.AuctionDate.Format(models.DateLayout)
			if d >= todayKey && (next == "" || d < next) {
				next = d
			}
		}
	}
	stats.AvgGuidePrice = repository.AverageGuidePrice(sum, n)
	if next != "" {
		stats.NextAuctionDate = &next
	}
	return stats, nil
}

func (s *Store) MarkPastLotsUnsold(_ context.Context, today time.Time) (int64, error) {
	todayKey := today.Format(models.DateLayout)
	now := s.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, lot := range s.lots {
		if lot.Status != models.StatusUpcoming || lot.AuctionDate == nil {
			continue
		}
		if lot.AuctionDate.Format(models.DateLayout) < todayKey {
			lot.Status = models.StatusUnsold
			lot.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) ListFeedLots(_ context.Context, today time.Time) ([]models.Lot, error) {
	todayKey := today.Format(models.DateLayout)
	s.mu.RLock()
	out := make([]models.Lot, 0, len(s.lots))
	for _, lot := range s.lots {
		if lot.Status != models.StatusUpcoming {
			continue
		}
		if lot.AuctionDate != nil && lot.AuctionDate.Format(models.DateLayout) < todayKey {
			continue
		}
		out = append(out, *lot)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if c := cmpDate(out[i].AuctionDate, out[j].AuctionDate, false); c != 0 {
			return c < 0
		}
		if c := cmpInt(out[i].GuidePriceLow, out[j].GuidePriceLow, false); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertScrapeRun(_ context.Context, item *models.ScrapeRun) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun++
	item.ID = s.nextRun
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.Now()
	}
	s.runs = append(s.runs, *item)
	return nil
}

func (s *Store) matchingRuns(p repository.ListScrapeRunsParams) []models.ScrapeRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ScrapeRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		if p.HouseID != nil && r.AuctionHouseID != *p.HouseID {
			continue
		}
		if v := trimmed(p.Status); v != "" && r.Status != v {
			continue
		}
		if v := trimmed(p.Trigger); v != "" && r.Trigger != v {
			continue
		}
		if p.Since != nil && r.CreatedAt.Before(*p.Since) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Store) ListScrapeRuns(_ context.Context, params repository.ListScrapeRunsParams) ([]models.ScrapeRun, error) {
	items := s.matchingRuns(params)
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	if params.Offset > 0 {
		if params.Offset >= len(items) {
			return nil, nil
		}
		items = items[params.Offset:]
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) CountScrapeRuns(_ context.Context, params repository.ListScrapeRunsParams) (int64, error) {
	return int64(len(s.matchingRuns(params))), nil
}

func (s *Store) LatestRunPerHouse(_ context.Context) (map[int]models.ScrapeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[int]models.ScrapeRun{}
	for _, r := range s.runs {
		out[r.AuctionHouseID] = r
	}
	return out, nil
}

func (s *Store) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.settings[item.Key]; ok {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
	}
	s.settings[item.Key] = *item
	return nil
}

func (s *Store) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(_ context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	prefix := trimmed(params.Prefix)
	s.mu.RLock()
	out := make([]models.SystemSetting, 0, len(s.settings))
	for k, v := range s.settings {
		if strings.HasPrefix(k, prefix) {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
