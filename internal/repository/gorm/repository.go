package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctionhub/internal/extractor"
	"auctionhub/internal/models"
	"auctionhub/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn in one transaction on ctx.
func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- lots -------------------------------------------------------------------

// UpsertLot runs one transaction per record: lock the existing row by identity
// key and merge, or insert with ON CONFLICT DO NOTHING and merge into the winner
// if a concurrent run inserted first.
func (s *Store) UpsertLot(ctx context.Context, houseID int, raw extractor.RawLot) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	raw.Title = strings.TrimSpace(raw.Title)
	if raw.Title == "" {
		return false, extractor.ErrMissingTitle
	}
	now := time.Now().UTC()
	fresh := repository.NewLotFromRaw(houseID, raw, now)

	created := false
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		merged, err := mergeExisting(tx, fresh.IdentityKey, raw, now)
		if err != nil || merged {
			return err
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_key"}},
			DoNothing: true,
		}).Create(&fresh)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			created = true
			return nil
		}
		merged, err = mergeExisting(tx, fresh.IdentityKey, raw, now)
		if err != nil {
			return err
		}
		if !merged {
			return fmt.Errorf("lot %s missing after insert conflict", fresh.IdentityKey)
		}
		return nil
	})
	return created, err
}

func mergeExisting(tx *gorm.DB, key string, raw extractor.RawLot, now time.Time) (bool, error) {
	var existing models.Lot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("identity_key = ?", key).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	updates := lotMergeUpdates(&existing, raw, now)
	if len(updates) == 0 {
		return true, nil
	}
	return true, tx.Model(&models.Lot{}).Where("id = ?", existing.ID).Updates(updates).Error
}

// lotMergeUpdates is the column map written for a re-sighted lot, or nil when
// raw adds nothing. When either guide price changes both are written back, in
// the order left by ApplyLotUpdates against the stored row.
func lotMergeUpdates(existing *models.Lot, raw extractor.RawLot, now time.Time) map[string]any {
	updates := repository.MergeLotUpdates(raw)
	if len(updates) == 0 {
		return nil
	}
	_, hasLow := updates["guide_price_low"]
	_, hasHigh := updates["guide_price_high"]
	repository.ApplyLotUpdates(existing, updates, now)
	if hasLow || hasHigh {
		updates["guide_price_low"] = existing.GuidePriceLow
		updates["guide_price_high"] = existing.GuidePriceHigh
	}
	updates["updated_at"] = now
	return updates
}

func (s *Store) GetLot(ctx context.Context, id uint64) (*models.Lot, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Lot
	err := s.db.WithContext(ctx).Model(&models.Lot{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListLots(ctx context.Context, params repository.ListLotsParams) ([]models.Lot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyLotSort(s.lotQuery(ctx, params), params.Sort)
	limit := normalizeLimit(params.Limit, 20)
	offset := normalizeOffset(params.Offset)
	var items []models.Lot
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountLots(ctx context.Context, params repository.ListLotsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.lotQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) lotQuery(ctx context.Context, params repository.ListLotsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Lot{})
	if v := trimmed(params.Region); v != "" {
		query = query.Where("region = ?", v)
	}
	if v := trimmed(params.PropertyType); v != "" {
		query = query.Where("property_type = ?", v)
	}
	if v := trimmed(params.Condition); v != "" {
		query = query.Where("lot_condition = ?", v)
	}
	if params.HouseID != nil {
		query = query.Where("auction_house_id = ?", *params.HouseID)
	}
	if v := trimmed(params.Status); v != "" {
		query = query.Where("status = ?", v)
	}
	if params.PriceMin != nil {
		query = query.Where("guide_price_low >= ?", *params.PriceMin)
	}
	if params.PriceMax != nil {
		query = query.Where(
			"(guide_price_high <= ?) OR (guide_price_high IS NULL AND guide_price_low <= ?)",
			*params.PriceMax, *params.PriceMax,
		)
	}
	if params.BedroomsMin != nil {
		query = query.Where("bedrooms >= ?", *params.BedroomsMin)
	}
	if v := trimmed(params.Query); v != "" {
		pattern := "%" + escapeLike(v) + "%"
		query = query.Where("(title ILIKE ? OR address ILIKE ? OR postcode ILIKE ?)", pattern, pattern, pattern)
	}
	return query
}

func applyLotSort(query *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case repository.SortDateDesc:
		return query.Order("auction_date DESC NULLS LAST").Order("id DESC")
	case repository.SortPriceAsc:
		return query.Order("guide_price_low ASC NULLS LAST").Order("id ASC")
	case repository.SortPriceDesc:
		return query.Order("guide_price_low DESC NULLS LAST").Order("id DESC")
	case repository.SortNewest:
		return query.Order("created_at DESC").Order("id DESC")
	default:
		return query.Order("auction_date ASC NULLS LAST").Order("id ASC")
	}
}

type countRow struct {
	Label string
	N     int64
}

func (s *Store) groupCount(ctx context.Context, column string, upcomingOnly bool) (map[string]int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Lot{}).
		Select(column + " AS label, COUNT(*) AS n").
		Group(column)
	if upcomingOnly {
		query = query.Where("status = ?", models.StatusUpcoming)
	}
	var rows []countRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Label] = r.N
	}
	return out, nil
}

func (s *Store) LotStats(ctx context.Context, today time.Time) (repository.LotStats, error) {
	stats := repository.LotStats{
		ByRegion:    map[string]int64{},
		ByType:      map[string]int64{},
		ByStatus:    map[string]int64{},
		LastUpdated: time.Now().UTC(),
	}
	if s == nil || s.db == nil {
		return stats, nil
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Lot{}).Count(&stats.TotalLots).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Lot{}).Where("status = ?", models.StatusUpcoming).Count(&stats.UpcomingLots).Error; err != nil {
		return stats, err
	}
	var err error
	if stats.ByRegion, err = s.groupCount(ctx, "region", true); err != nil {
		return stats, err
	}
	if stats.ByType, err = s.groupCount(ctx, "property_type", true); err != nil {
		return stats, err
	}
	if stats.ByStatus, err = s.groupCount(ctx, "status", false); err != nil {
		return stats, err
	}

	var avg struct {
		Total int64
		N     int64
	}
	if err := db.Model(&models.Lot{}).
		Select("COALESCE(SUM(guide_price_low), 0) AS total, COUNT(guide_price_low) AS n").
		Where("status = ?", models.StatusUpcoming).
		Scan(&avg).Error; err != nil {
		return stats, err
	}
	stats.AvgGuidePrice = repository.AverageGuidePrice(avg.Total, avg.N)

	var next []time.Time
	if err := db.Model(&models.Lot{}).
		Where("status = ?", models.StatusUpcoming).
		Where("auction_date >= ?", today.Format(models.DateLayout)).
		Order("auction_date ASC").
		Limit(1).
		Pluck("auction_date", &next).Error; err != nil {
		return stats, err
	}
	if len(next) > 0 {
		d := next[0].Format(models.DateLayout)
		stats.NextAuctionDate = &d
	}
	return stats, nil
}

func (s *Store) MarkPastLotsUnsold(ctx context.Context, today time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("status = ?", models.StatusUpcoming).
		Where("auction_date < ?", today.Format(models.DateLayout)).
		Updates(map[string]any{
			"status":     models.StatusUnsold,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (s *Store) ListFeedLots(ctx context.Context, today time.Time) ([]models.Lot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Lot
	err := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("status = ?", models.StatusUpcoming).
		Where("(auction_date IS NULL OR auction_date >= ?)", today.Format(models.DateLayout)).
		Order("auction_date ASC NULLS LAST").
		Order("guide_price_low ASC NULLS LAST").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- scrape runs ------------------------------------------------------------

func (s *Store) InsertScrapeRun(ctx context.Context, item *models.ScrapeRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) runQuery(ctx context.Context, params repository.ListScrapeRunsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.ScrapeRun{})
	if params.HouseID != nil {
		query = query.Where("auction_house_id = ?", *params.HouseID)
	}
	if v := trimmed(params.Status); v != "" {
		query = query.Where("status = ?", v)
	}
	if v := trimmed(params.Trigger); v != "" {
		query = query.Where("trigger = ?", v)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListScrapeRuns(ctx context.Context, params repository.ListScrapeRunsParams) ([]models.ScrapeRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.ScrapeRun
	if err := s.runQuery(ctx, params).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountScrapeRuns(ctx context.Context, params repository.ListScrapeRunsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.runQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) LatestRunPerHouse(ctx context.Context) (map[int]models.ScrapeRun, error) {
	if s == nil || s.db == nil {
		return map[int]models.ScrapeRun{}, nil
	}
	var items []models.ScrapeRun
	err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT ON (auction_house_id) * FROM scrape_runs
		 ORDER BY auction_house_id, created_at DESC, id DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]models.ScrapeRun, len(items))
	for _, item := range items {
		out[item.AuctionHouseID] = item
	}
	return out, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if v := trimmed(params.Prefix); v != "" {
		query = query.Where("key LIKE ?", escapeLike(v)+"%")
	}
	asc := true
	if params.Asc != nil {
		asc = *params.Asc
	}
	query = applyOrder(query, params.OrderBy, &asc, "key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

var settingOrderColumns = map[string]bool{"key": true, "created_at": true, "updated_at": true}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" || !settingOrderColumns[column] {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}
