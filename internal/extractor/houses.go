package extractor

import "auctionhub/internal/models"

var (
	headingTitle = []string{"h2", "h3"}
	plainPrice   = []string{".price", ".guide-price"}
	plainAddress = []string{".address", ".location"}
)

func withTitle(extra ...string) []string {
	return append(append([]string{}, headingTitle...), extra...)
}

// CatalogSites lists the single-page house catalogues in house id order.
func CatalogSites() []CatalogSite {
	return []CatalogSite{
		{
			ID:              HouseAllsop,
			Name:            "Allsop",
			BaseURL:         "https://www.allsop.co.uk",
			ListingPath:     "/auctions/residential/",
			Blocks:          `.auction-lot, .lot-card, .property-card, [class*="lot"]`,
			Title:           withTitle(".lot-title", ".property-title"),
			Price:           []string{".price", ".guide-price", `[class*="price"]`},
			Address:         []string{".address", ".location", `[class*="address"]`},
			Region:          RegionPolicy{Fallback: models.RegionSouthEast},
			TypeFromAddress: true,
		},
		{
			ID:          HouseAuctionHouseUK,
			Name:        "Auction House UK",
			BaseURL:     "https://www.auctionhouse.co.uk",
			ListingPath: "/search/results",
			Blocks:      ".lot-item, .property-listing, .search-result-item",
			Title:       withTitle(".lot-name", ".property-name"),
			Price:       []string{".guide-price", ".price", `[class*="price"]`},
			Address:     plainAddress,
			Date:        []string{".auction-date", ".date", `[class*="date"]`},
			LotNumber:   []string{".lot-number", `[class*="lot-num"]`},
			Region:      RegionPolicy{Fallback: models.RegionSouthEast},
		},
		{
			ID:          HouseBondWolfe,
			Name:        "Bond Wolfe",
			BaseURL:     "https://www.bondwolfe.com",
			ListingPath: "/auction-lots/",
			Blocks:      ".lot-card, .property-item, article.lot",
			Title:       withTitle(".lot-title"),
			Price:       plainPrice,
			Address:     plainAddress,
			Region:      RegionPolicy{Fixed: models.RegionWestMidlands},
		},
		{
			ID:               HouseCliveEmson,
			Name:             "Clive Emson",
			BaseURL:          "https://www.cliveemson.co.uk",
			ListingPath:      "/current-lots/",
			Blocks:           ".lot, .lot-item, .catalogue-lot",
			Title:            withTitle(".lot-title", ".lot-address"),
			Price:            []string{".guide", ".guide-price", ".price"},
			Region:           RegionPolicy{Fixed: models.RegionSouthEast},
			AddressFromTitle: true,
		},
		{
			ID:          HouseBarnardMarcus,
			Name:        "Barnard Marcus",
			BaseURL:     "https://www.barnardmarcusauctions.co.uk",
			ListingPath: "/lots/current",
			Blocks:      ".lot-card, .property-card, .listing-item",
			Title:       withTitle(".title"),
			Price:       plainPrice,
			Address:     plainAddress,
			Region:      RegionPolicy{Fixed: models.RegionLondon},
		},
		{
			ID:          HouseIamSold,
			Name:        "iam-sold",
			BaseURL:     "https://www.iamsold.co.uk",
			ListingPath: "/properties",
			Blocks:      ".property-card, .lot-item, .auction-property",
			Title:       withTitle(".property-title"),
			Price:       plainPrice,
			Address:     plainAddress,
			Region:      RegionPolicy{Fallback: models.RegionNational},
		},
		{
			ID:          HouseJohnPye,
			Name:        "John Pye",
			BaseURL:     "https://www.johnpyeproperty.co.uk",
			ListingPath: "/property-auctions/",
			Blocks:      ".property-card, .lot-card, .auction-lot",
			Title:       withTitle(".property-name"),
			Price:       plainPrice,
			Address:     plainAddress,
			Region:      RegionPolicy{Fallback: models.RegionNational},
		},
		{
			ID:          HouseNetworkAuctions,
			Name:        "Network Auctions",
			BaseURL:     "https://www.networkauctions.com",
			ListingPath: "/lots/",
			Blocks:      ".lot, .property-item, .catalogue-entry",
			Title:       withTitle(".lot-title"),
			Price:       []string{".price", ".guide-price", ".guide"},
			Address:     plainAddress,
			Region:      RegionPolicy{Fixed: models.RegionLondon},
		},
		{
			ID:          HousePattinson,
			Name:        "Pattinson",
			BaseURL:     "https://www.pattinson.co.uk",
			ListingPath: "/auction",
			Blocks:      ".property-card, .lot-item, .auction-lot",
			Title:       withTitle(".property-title"),
			Price:       plainPrice,
			Address:     plainAddress,
			Region:      RegionPolicy{Fixed: models.RegionNorthEast},
		},
	}
}
