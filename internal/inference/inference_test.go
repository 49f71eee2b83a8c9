package inference

import (
	"testing"
	"time"

	"auctionhub/internal/models"
)

func intp(v int) *int { return &v }

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func fmtInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestInferPropertyType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3 bed semi-detached house", models.TypeResidential},
		{"building plot with planning", models.TypeLand},
		{"ground floor retail unit", models.TypeCommercial},
		{"Mixed use building in Leeds", models.TypeMixed},
		{"Parcel of land, 2.3 acres", models.TypeLand},
		{"Office suite, Croydon", models.TypeCommercial},
		{"", models.TypeResidential},
	}
	for _, tt := range tests {
		if got := InferPropertyType(tt.in); got != tt.want {
			t.Fatalf("InferPropertyType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInferCondition(t *testing.T) {
	tests := []struct {
		in       string
		fallback string
		want     string
	}{
		{"3-Bed Semi - Refurbishment Opportunity", models.ConditionMixed, models.ConditionRefurbishment},
		{"House in need of TLC", models.ConditionMixed, models.ConditionRefurbishment},
		{"Barn with planning for conversion", models.ConditionMixed, models.ConditionDevelopment},
		{"Modern 2 bed apartment", models.ConditionMixed, models.ConditionModern},
		{"Terraced house", models.ConditionMixed, models.ConditionMixed},
		{"Terraced house", models.ConditionRefurbishment, models.ConditionRefurbishment},
		{"Modern flat requiring refurbishment", models.ConditionMixed, models.ConditionRefurbishment},
	}
	for _, tt := range tests {
		if got := InferCondition(tt.in, tt.fallback); got != tt.want {
			t.Fatalf("InferCondition(%q, %q) = %q, want %q", tt.in, tt.fallback, got, tt.want)
		}
	}
}

func TestInferAggregatorCondition(t *testing.T) {
	tests := []struct{ in, want string }{
		{"3 bed house requires modernisation", models.ConditionRefurbishment},
		{"Derelict barn with land", models.ConditionDevelopment},
		{"Former chapel, now a shell", models.ConditionDevelopment},
		{"Needs refurbishment throughout", models.ConditionRefurbishment},
		{"Requires updating", models.ConditionRefurbishment},
		{"Doer-upper cottage", models.ConditionRefurbishment},
		{"Brand new apartment", models.ConditionModern},
		{"Recently refurbished flat", models.ConditionModern},
		{"Well-presented terrace", models.ConditionModern},
		{"Shellfish shop", models.ConditionRefurbishment},
		{"Terraced house", models.ConditionRefurbishment},
	}
	for _, tt := range tests {
		if got := InferAggregatorCondition(tt.in); got != tt.want {
			t.Fatalf("InferAggregatorCondition(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInferBedrooms(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"3 bed semi", intp(3)},
		{"2-bed flat", intp(2)},
		{"4 Bedroom detached house", intp(4)},
		{"Studio apartment", intp(0)},
		{"Commercial unit", nil},
	}
	for _, tt := range tests {
		if got := InferBedrooms(tt.in); !eqInt(got, tt.want) {
			t.Fatalf("InferBedrooms(%q) = %v, want %v", tt.in, fmtInt(got), fmtInt(tt.want))
		}
	}
}

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in        string
		low, high *int
	}{
		{"£180,000 - £210,000", intp(180000), intp(210000)},
		{"£95,000+", intp(95000), nil},
		{"POA", nil, nil},
		{"", nil, nil},
		{"Guide £250,000 to £275,000", intp(250000), intp(275000)},
		{"£150,000 – £140,000", intp(140000), intp(150000)},
		{"Guide price £1.2m", intp(1200000), nil},
		{"£100k - £120k", intp(100000), intp(120000)},
		{"£1.2m", intp(1200000), nil},
		{"£250 k", intp(250000), nil},
		{"Guide £90,000 - £100,000 Kent", intp(90000), intp(100000)},
		{"£150,000 - £175,000 more details", intp(150000), intp(175000)},
		{"Guide price £250,000 Min reserve", intp(250000), nil},
		{"£80,000 marketing suite", intp(80000), nil},
		{"£5,000,000,000", nil, nil},
	}
	for _, tt := range tests {
		low, high := ParsePriceRange(tt.in)
		if !eqInt(low, tt.low) || !eqInt(high, tt.high) {
			t.Fatalf("ParsePriceRange(%q) = (%v, %v), want (%v, %v)", tt.in, fmtInt(low), fmtInt(high), fmtInt(tt.low), fmtInt(tt.high))
		}
	}
}

func TestInferRegion(t *testing.T) {
	tests := []struct {
		in       string
		fallback string
		want     string
	}{
		{"15 Example Street, Leeds, LS1", models.RegionNational, models.RegionYorkshire},
		{"Flat 2, Hackney Road", models.RegionNational, models.RegionLondon},
		{"Terrace in Cardiff", models.RegionSouthEast, models.RegionWales},
		{"Cottage near Bath", models.RegionNational, models.RegionSouthWest},
		{"House with large bathroom", models.RegionNational, models.RegionNational},
		{"Somewhere unknown", models.RegionSouthEast, models.RegionSouthEast},
		{"", models.RegionNational, models.RegionNational},
	}
	for _, tt := range tests {
		if got := InferRegion(tt.in, tt.fallback); got != tt.want {
			t.Fatalf("InferRegion(%q, %q) = %q, want %q", tt.in, tt.fallback, got, tt.want)
		}
	}
}

func TestInferRegionIsDeterministic(t *testing.T) {
	in := "15 Example Street, Leeds, LS1"
	first := InferRegion(in, models.RegionNational)
	for i := 0; i < 50; i++ {
		if got := InferRegion(in, models.RegionNational); got != first {
			t.Fatalf("InferRegion(%q) changed between calls: %q then %q", in, first, got)
		}
	}
}

func TestExtractPostcode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"14 Maple Avenue, Croydon CR0 6TN", "CR0 6TN"},
		{"flat 3, london sw1a 1aa", "SW1A 1AA"},
		{"Unit 4, Leeds LS11AA", "LS1 1AA"},
		{"no postcode here", ""},
	}
	for _, tt := range tests {
		got := ExtractPostcode(tt.in)
		s := ""
		if got != nil {
			s = *got
		}
		if s != tt.want {
			t.Fatalf("ExtractPostcode(%q) = %q, want %q", tt.in, s, tt.want)
		}
	}
}

func TestParseAuctionDate(t *testing.T) {
	want := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"12 March 2026",
		"Auction Date: 12th Mar 2026",
		"Thursday 12 March 2026",
		"2026-03-12",
		"12/03/2026",
	} {
		got := ParseAuctionDate(in)
		if got == nil || !got.Equal(want) {
			t.Fatalf("ParseAuctionDate(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "TBC", "31/04/2026"} {
		if got := ParseAuctionDate(in); got != nil {
			t.Fatalf("ParseAuctionDate(%q) = %v, want nil", in, got)
		}
	}
}

func TestParseLotNumber(t *testing.T) {
	if got := ParseLotNumber("Lot 14"); !eqInt(got, intp(14)) {
		t.Fatalf("ParseLotNumber(Lot 14) = %v", fmtInt(got))
	}
	if got := ParseLotNumber("LOT NO. 7"); !eqInt(got, intp(7)) {
		t.Fatalf("ParseLotNumber(LOT NO. 7) = %v", fmtInt(got))
	}
	if got := ParseLotNumber("no number"); got != nil {
		t.Fatalf("ParseLotNumber(no number) = %v, want nil", *got)
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2 bed flat in Bath", "Bath"},
		{"House in need of work in Leeds", "Leeds"},
		{"Retail unit, High Street, Doncaster", "Doncaster"},
		{"Detached house", ""},
	}
	for _, tt := range tests {
		got := ExtractAddress(tt.in)
		s := ""
		if got != nil {
			s = *got
		}
		if s != tt.want {
			t.Fatalf("ExtractAddress(%q) = %q, want %q", tt.in, s, tt.want)
		}
	}
}

func TestMapFacetTypeAndTenure(t *testing.T) {
	if got := MapFacetType("flat"); got != models.TypeResidential {
		t.Fatalf("MapFacetType(flat) = %q", got)
	}
	if got := MapFacetType("land"); got != models.TypeLand {
		t.Fatalf("MapFacetType(land) = %q", got)
	}
	if got := InferTenure("Leasehold flat"); got == nil || *got != "leasehold" {
		t.Fatalf("InferTenure(Leasehold flat) = %v", got)
	}
	if got := InferTenure("flat"); got != nil {
		t.Fatalf("InferTenure(flat) = %q, want nil", *got)
	}
}
