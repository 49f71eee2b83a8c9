package repository

import (
	"testing"
	"time"

	"auctionhub/internal/extractor"
	"auctionhub/internal/models"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func TestNewLotFromRawDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	lot := NewLotFromRaw(19, extractor.RawLot{Title: "Plot", GuidePriceLow: intp(200), GuidePriceHigh: intp(100)}, now)
	if lot.Status != models.StatusUpcoming {
		t.Fatalf("status = %q, want upcoming", lot.Status)
	}
	if lot.Region != models.RegionNational || lot.PropertyType != models.TypeResidential || lot.LotCondition != models.ConditionMixed {
		t.Fatalf("defaults = %q/%q/%q", lot.Region, lot.PropertyType, lot.LotCondition)
	}
	if *lot.GuidePriceLow != 100 || *lot.GuidePriceHigh != 200 {
		t.Fatalf("prices = %d/%d, want 100/200", *lot.GuidePriceLow, *lot.GuidePriceHigh)
	}
	if lot.IdentityKey != models.LotIdentityKey(19, "Plot", nil) {
		t.Fatalf("identity key mismatch")
	}
}

func TestMergeLotUpdatesSkipsNil(t *testing.T) {
	updates := MergeLotUpdates(extractor.RawLot{Title: "X", Bedrooms: intp(3), Address: strp("  ")})
	if len(updates) != 1 || updates["bedrooms"] != 3 {
		t.Fatalf("MergeLotUpdates = %#v, want only bedrooms", updates)
	}
	if len(MergeLotUpdates(extractor.RawLot{Title: "X"})) != 0 {
		t.Fatalf("empty raw lot should produce no updates")
	}
}

func TestApplyLotUpdatesKeepsPriceOrder(t *testing.T) {
	lot := models.Lot{GuidePriceLow: intp(100000), GuidePriceHigh: intp(120000), Status: models.StatusSold}
	now := time.Now().UTC()
	ApplyLotUpdates(&lot, MergeLotUpdates(extractor.RawLot{GuidePriceLow: intp(150000)}), now)
	if *lot.GuidePriceLow != 120000 || *lot.GuidePriceHigh != 150000 {
		t.Fatalf("prices = %d/%d, want 120000/150000", *lot.GuidePriceLow, *lot.GuidePriceHigh)
	}
	if lot.Status != models.StatusSold {
		t.Fatalf("status changed to %q", lot.Status)
	}
	if !lot.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at not bumped")
	}
}

func TestAverageGuidePrice(t *testing.T) {
	if got := AverageGuidePrice(0, 0); got != nil {
		t.Fatalf("AverageGuidePrice(0, 0) = %d, want nil", *got)
	}
	if got := AverageGuidePrice(300001, 2); got == nil || *got != 150001 {
		t.Fatalf("AverageGuidePrice(300001, 2) = %v, want 150001", got)
	}
	if got := AverageGuidePrice(10, 3); got == nil || *got != 3 {
		t.Fatalf("AverageGuidePrice(10, 3) = %v, want 3", got)
	}
}
