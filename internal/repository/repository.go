package repository

import (
	"context"
	"time"

	"auctionhub/internal/extractor"
	"auctionhub/internal/models"
)

// LotRepository is the upsert/reconciliation store behind scraping and the read API.
type LotRepository interface {
	// UpsertLot inserts a lot or merges non-nil fields into the row with the same
	// identity key. created reports whether a new row was written.
	UpsertLot(ctx context.Context, houseID int, raw extractor.RawLot) (created bool, err error)
	GetLot(ctx context.Context, id uint64) (*models.Lot, error)
	ListLots(ctx context.Context, params ListLotsParams) ([]models.Lot, error)
	CountLots(ctx context.Context, params ListLotsParams) (int64, error)
	LotStats(ctx context.Context, today time.Time) (LotStats, error)
	// MarkPastLotsUnsold moves upcoming lots dated before today to unsold.
	MarkPastLotsUnsold(ctx context.Context, today time.Time) (int64, error)
	ListFeedLots(ctx context.Context, today time.Time) ([]models.Lot, error)
}

type RunRepository interface {
	InsertScrapeRun(ctx context.Context, item *models.ScrapeRun) error
	ListScrapeRuns(ctx context.Context, params ListScrapeRunsParams) ([]models.ScrapeRun, error)
	CountScrapeRuns(ctx context.Context, params ListScrapeRunsParams) (int64, error)
	LatestRunPerHouse(ctx context.Context) (map[int]models.ScrapeRun, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

// Repository is everything the service layer needs from one backing store.
type Repository interface {
	LotRepository
	RunRepository
	SettingsRepository
}

const (
	SortDateAsc   = "date_asc"
	SortDateDesc  = "date_desc"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

var Sorts = []string{SortDateAsc, SortDateDesc, SortPriceAsc, SortPriceDesc, SortNewest}

type ListLotsParams struct {
	Limit        int
	Offset       int
	Region       *string
	PropertyType *string
	Condition    *string
	HouseID      *int
	Status       *string
	PriceMin     *int
	// PriceMax matches guide_price_high <= max, or an open-ended lot whose low is <= max.
	PriceMax    *int
	BedroomsMin *int
	// Query is a case-insensitive substring over title, address and postcode.
	Query *string
	Sort  string
}

type ListScrapeRunsParams struct {
	Limit   int
	Offset  int
	HouseID *int
	Status  *string
	Trigger *string
	Since   *time.Time
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

type LotStats struct {
	TotalLots       int64            `json:"total_lots"`
	UpcomingLots    int64            `json:"upcoming_lots"`
	ByRegion        map[string]int64 `json:"by_region"`
	ByType          map[string]int64 `json:"by_type"`
	ByStatus        map[string]int64 `json:"by_status"`
	AvgGuidePrice   *int64           `json:"avg_guide_price"`
	NextAuctionDate *string          `json:"next_auction_date"`
	LastUpdated     time.Time        `json:"last_updated"`
}
