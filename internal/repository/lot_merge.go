package repository

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"auctionhub/internal/extractor"
	"auctionhub/internal/models"
)

// NewLotFromRaw builds the row for a first sighting. Enumerations missing from
// raw fall back to the column defaults.
func NewLotFromRaw(houseID int, raw extractor.RawLot, now time.Time) models.Lot {
	lot := models.Lot{
		AuctionHouseID: houseID,
		IdentityKey:    models.LotIdentityKey(houseID, raw.Title, raw.AuctionDate),
		Title:          raw.Title,
		ExternalURL:    raw.ExternalURL,
		Address:        raw.Address,
		Postcode:       raw.Postcode,
		Region:         orDefault(raw.Region, models.RegionNational),
		PropertyType:   orDefault(raw.PropertyType, models.TypeResidential),
		LotCondition:   orDefault(raw.LotCondition, models.ConditionMixed),
		Bedrooms:       raw.Bedrooms,
		GuidePriceLow:  raw.GuidePriceLow,
		GuidePriceHigh: raw.GuidePriceHigh,
		AuctionDate:    dateOnly(raw.AuctionDate),
		LotNumber:      raw.LotNumber,
		ImageURL:       raw.ImageURL,
		Tenure:         raw.Tenure,
		Status:         models.StatusUpcoming,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	normalizePrices(&lot)
	return lot
}

// MergeLotUpdates returns the columns a re-sighting may overwrite: only fields
// the extractor actually found. Status, sale price and identity are never touched.
func MergeLotUpdates(raw extractor.RawLot) map[string]any {
	updates := map[string]any{}
	setStr := func(col string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			updates[col] = *v
		}
	}
	setInt := func(col string, v *int) {
		if v != nil {
			updates[col] = *v
		}
	}
	setStr("external_url", raw.ExternalURL)
	setStr("address", raw.Address)
	setStr("postcode", raw.Postcode)
	setStr("image_url", raw.ImageURL)
	setStr("tenure", raw.Tenure)
	if raw.Region != "" {
		updates["region"] = raw.Region
	}
	if raw.PropertyType != "" {
		updates["property_type"] = raw.PropertyType
	}
	if raw.LotCondition != "" {
		updates["lot_condition"] = raw.LotCondition
	}
	setInt("bedrooms", raw.Bedrooms)
	setInt("lot_number", raw.LotNumber)
	setInt("guide_price_low", raw.GuidePriceLow)
	setInt("guide_price_high", raw.GuidePriceHigh)
	return updates
}

// ApplyLotUpdates applies a MergeLotUpdates map to a loaded row. Guide prices are
// re-ordered afterwards so a merged low never ends up above the stored high.
func ApplyLotUpdates(lot *models.Lot, updates map[string]any, now time.Time) {
	str := func(v any) *string {
		s := v.(string)
		return &s
	}
	num := func(v any) *int {
		if v == nil {
			return nil
		}
		n := v.(int)
		return &n
	}
	for col, v := range updates {
		switch col {
		case "external_url":
			lot.ExternalURL = str(v)
		case "address":
			lot.Address = str(v)
		case "postcode":
			lot.Postcode = str(v)
		case "image_url":
			lot.ImageURL = str(v)
		case "tenure":
			lot.Tenure = str(v)
		case "region":
			lot.Region = v.(string)
		case "property_type":
			lot.PropertyType = v.(string)
		case "lot_condition":
			lot.LotCondition = v.(string)
		case "bedrooms":
			lot.Bedrooms = num(v)
		case "lot_number":
			lot.LotNumber = num(v)
		case "guide_price_low":
			lot.GuidePriceLow = num(v)
		case "guide_price_high":
			lot.GuidePriceHigh = num(v)
		}
	}
	normalizePrices(lot)
	lot.UpdatedAt = now
}

// AverageGuidePrice rounds sum/n to whole pounds; nil when there is nothing to average.
func AverageGuidePrice(sum, n int64) *int64 {
	if n <= 0 {
		return nil
	}
	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(n)).Round(0).IntPart()
	return &avg
}

func normalizePrices(lot *models.Lot) {
	if lot.GuidePriceLow != nil && lot.GuidePriceHigh != nil && *lot.GuidePriceHigh < *lot.GuidePriceLow {
		low, high := *lot.GuidePriceHigh, *lot.GuidePriceLow
		lot.GuidePriceLow, lot.GuidePriceHigh = &low, &high
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
