// Package extractor turns auction house listing pages into RawLot records.
package extractor

import (
	"context"
	"errors"
	"time"
)

const (
	HouseAllsop          = 5
	HouseAuctionHouseUK  = 13
	HouseBondWolfe       = 19
	HouseCliveEmson      = 36
	HouseBarnardMarcus   = 39
	HouseIamSold         = 71
	HouseJohnPye         = 73
	HouseNetworkAuctions = 96
	HousePattinson       = 100
	// HouseAggregator also receives aggregator lots whose origin could not be resolved.
	HouseAggregator = 999
)

var (
	// ErrTransport covers timeouts, connection failures and non-200 responses. Runs retry on it.
	ErrTransport = errors.New("extractor: transport failure")
	// ErrDisallowed is returned when robots.txt forbids the listing path.
	ErrDisallowed = errors.New("extractor: disallowed by robots.txt")
	// ErrMissingTitle marks a listing block that was skipped.
	ErrMissingTitle = errors.New("extractor: listing has no title")
)

// Extractor fetches one house's current lots. Implementations hold no mutable state
// between calls, so they may run concurrently.
type Extractor interface {
	HouseID() int
	Name() string
	Fetch(ctx context.Context) ([]RawLot, error)
}

// RawLot is a listing as scraped. Nil pointers mean "not found on the page" and
// never overwrite stored values.
type RawLot struct {
	// HouseID overrides the extractor's house when non-zero (aggregator attribution).
	HouseID int

	Title        string
	ExternalURL  *string
	Address      *string
	Postcode     *string
	Region       string
	PropertyType string
	LotCondition string

	Bedrooms       *int
	GuidePriceLow  *int
	GuidePriceHigh *int
	AuctionDate    *time.Time
	LotNumber      *int
	ImageURL       *string
	Tenure         *string
}

// House is the id and display name of a registered source.
type House struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
