package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"auctionhub/internal/cache"
	"auctionhub/internal/config"
	"auctionhub/internal/extractor"
	"auctionhub/internal/feed"
	"auctionhub/internal/models"
	"auctionhub/internal/repository"
	"auctionhub/internal/repository/memory"
)

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestStatusSweepUsesLocalDate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "yesterday", AuctionDate: dayPtr(2026, 6, 30)})
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "today", AuctionDate: dayPtr(2026, 7, 1)})
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "undated"})

	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:30 UTC on 30 June is already 1 July in London (BST).
	now := time.Date(2026, 6, 30, 23, 30, 0, 0, time.UTC)
	sweep := &StatusSweepService{Lots: store, Location: london, Now: func() time.Time { return now }}
	if got := sweep.Today().Format(models.DateLayout); got != "2026-07-01" {
		t.Fatalf("Today() = %s, want 2026-07-01", got)
	}
	n, err := sweep.Run(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Run = %d, %v; want 1", n, err)
	}
	if n, _ := sweep.Run(ctx); n != 0 {
		t.Fatalf("second Run = %d, want 0", n)
	}
}

func TestSystemSettingsSwitches(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := &SystemSettingsService{Repo: store}

	if !svc.IsEnabled(ctx, FeatureAggregator, true) || svc.IsEnabled(ctx, FeatureAggregator, false) {
		t.Fatalf("missing switch should return the fallback")
	}
	if err := svc.SetEnabled(ctx, FeatureAggregator, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("EnsureDefaultSwitches: %v", err)
	}
	if svc.IsEnabled(ctx, FeatureAggregator, true) {
		t.Fatalf("EnsureDefaultSwitches overrode an operator choice")
	}
	if !svc.IsEnabled(ctx, FeatureScrapeAll, false) {
		t.Fatalf("default switch not seeded")
	}
	sw := svc.Switches(ctx)
	if len(sw) != 4 || sw[0].Key != FeatureAggregator || sw[0].Enabled {
		t.Fatalf("Switches() = %+v", sw)
	}
	if IsFeatureSwitch("feature.nope") || !IsFeatureSwitch(FeatureFeed) {
		t.Fatalf("IsFeatureSwitch mismatch")
	}
}

func TestLotQueryServiceCaches(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "A", AuctionDate: dayPtr(2026, 3, 1)})
	svc := &LotQueryService{
		Repo:  store,
		Cache: cache.NewMemoryStore(),
		TTL:   config.CacheConfig{LotsTTL: time.Minute, LotTTL: time.Minute, StatsTTL: time.Minute},
	}
	params := repository.ListLotsParams{Limit: 20}

	first, err := svc.ListLots(ctx, params)
	if err != nil || first.Total != 1 {
		t.Fatalf("ListLots = %+v, %v", first, err)
	}
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "B"})
	cached, _ := svc.ListLots(ctx, params)
	if cached.Total != 1 {
		t.Fatalf("cached total = %d, want 1", cached.Total)
	}
	fresh, _ := svc.ListLots(ctx, repository.ListLotsParams{Limit: 10})
	if fresh.Total != 2 {
		t.Fatalf("different query total = %d, want 2", fresh.Total)
	}

	lot, err := svc.GetLot(ctx, 1)
	if err != nil || lot == nil || lot.AuctionDate == nil {
		t.Fatalf("GetLot = %+v, %v", lot, err)
	}
	again, _ := svc.GetLot(ctx, 1)
	if again == nil || again.AuctionDate == nil || !again.AuctionDate.Equal(*lot.AuctionDate) {
		t.Fatalf("cached GetLot lost the auction date: %+v", again)
	}
	if missing, err := svc.GetLot(ctx, 99); missing != nil || err != nil {
		t.Fatalf("GetLot(99) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestLotQueryServiceWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := &LotQueryService{Repo: store}
	stats, err := svc.Stats(ctx)
	if err != nil || stats.TotalLots != 0 || stats.AvgGuidePrice != nil {
		t.Fatalf("Stats = %+v, %v", stats, err)
	}
	res, _ := svc.ListLots(ctx, repository.ListLotsParams{})
	if res.Items == nil {
		t.Fatalf("empty result should be an empty slice")
	}
}

func TestFeedRefresh(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "House", PropertyType: models.TypeResidential, AuctionDate: dayPtr(2026, 3, 1)})
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "Plot", PropertyType: models.TypeLand})
	_, _ = store.UpsertLot(ctx, 5, extractor.RawLot{Title: "Gone", AuctionDate: dayPtr(2025, 1, 1)})

	path := filepath.Join(t.TempDir(), "lots-data.json")
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc := &FeedService{
		Lots:            store,
		Writer:          &feed.Writer{Path: path, Now: func() time.Time { return now }},
		RefreshInterval: 6 * time.Hour,
		Now:             func() time.Time { return now },
	}
	stats, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if stats.Total != 2 || stats.ByType[models.TypeLand] != 1 || !stats.NextScrape.Equal(now.Add(6*time.Hour)) {
		t.Fatalf("stats = %+v", stats)
	}
	doc, err := feed.Read(path)
	if err != nil || len(doc.Lots) != 2 || doc.Lots[0].Title != "House" {
		t.Fatalf("feed = %+v, %v", doc, err)
	}
	for _, lot := range doc.Lots {
		if lot.Title == "Gone" {
			t.Fatalf("past lot in feed: %+v", lot)
		}
	}
	if doc.Stats.Total != len(doc.Lots) {
		t.Fatalf("stats.total = %d, want %d lots in file", doc.Stats.Total, len(doc.Lots))
	}
}
