package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"auctionhub/internal/config"
	"auctionhub/internal/models"
)

func siteFor(t *testing.T, id int, baseURL string) CatalogSite {
	t.Helper()
	for _, s := range CatalogSites() {
		if s.ID == id {
			s.BaseURL = baseURL
			return s
		}
	}
	t.Fatalf("no catalogue site for house %d", id)
	return CatalogSite{}
}

func serveHTML(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testFetcher(srv *httptest.Server, respectRobots bool) *Fetcher {
	return NewFetcherWithClient(srv.Client(), config.HTTPConfig{RespectRobots: respectRobots}, nil)
}

const bondWolfePage = `<html><body>
<div class="lot-card"><h2>3 bed semi-detached house</h2><span class="price">£180,000 - £210,000</span>
  <span class="address">12 High Street, Walsall WS1 1AA</span><a href="/lot/1">View</a><p>Freehold</p></div>
<div class="lot-card"><h3>Ground floor retail unit</h3><span class="guide-price">£95,000+</span><a href="/lot/2">View</a></div>
<div class="property-item"><h2>Building plot with planning</h2><span class="price">POA</span><a href="https://www.bondwolfe.com/lot/3">View</a></div>
<div class="lot-card"><span class="price">£50,000</span><a href="/lot/4">No title here</a></div>
<article class="lot"><h2>Studio flat requiring refurbishment</h2><span class="price">£40,000</span></article>
</body></html>`

func TestCatalogExtractorSkipsUntitledBlocks(t *testing.T) {
	srv := serveHTML(t, "/auction-lots/", bondWolfePage)
	ex := NewCatalogExtractor(siteFor(t, HouseBondWolfe, srv.URL), testFetcher(srv, false), nil)

	lots, err := ex.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(lots) != 4 {
		t.Fatalf("len(lots) = %d, want 4", len(lots))
	}
	for _, lot := range lots {
		if lot.Region != models.RegionWestMidlands {
			t.Fatalf("region for %q = %q, want fixed West Midlands", lot.Title, lot.Region)
		}
	}

	first := lots[0]
	if first.GuidePriceLow == nil || *first.GuidePriceLow != 180000 || first.GuidePriceHigh == nil || *first.GuidePriceHigh != 210000 {
		t.Fatalf("first lot price = %v/%v, want 180000/210000", first.GuidePriceLow, first.GuidePriceHigh)
	}
	if first.ExternalURL == nil || *first.ExternalURL != srv.URL+"/lot/1" {
		t.Fatalf("first lot url = %v, want %s/lot/1", first.ExternalURL, srv.URL)
	}
	if first.Postcode == nil || *first.Postcode != "WS1 1AA" {
		t.Fatalf("first lot postcode = %v, want WS1 1AA", first.Postcode)
	}
	if first.Bedrooms == nil || *first.Bedrooms != 3 {
		t.Fatalf("first lot bedrooms = %v, want 3", first.Bedrooms)
	}
	if first.Tenure == nil || *first.Tenure != "freehold" {
		t.Fatalf("first lot tenure = %v, want freehold", first.Tenure)
	}

	if lots[1].PropertyType != models.TypeCommercial || lots[1].GuidePriceHigh != nil {
		t.Fatalf("second lot = %+v, want commercial with open-ended price", lots[1])
	}
	if lots[2].PropertyType != models.TypeLand || lots[2].GuidePriceLow != nil {
		t.Fatalf("third lot = %+v, want land with no price", lots[2])
	}
	if lots[2].ExternalURL == nil || *lots[2].ExternalURL != "https://www.bondwolfe.com/lot/3" {
		t.Fatalf("absolute link rewritten: %v", lots[2].ExternalURL)
	}
	last := lots[3]
	if last.Bedrooms == nil || *last.Bedrooms != 0 || last.LotCondition != models.ConditionRefurbishment {
		t.Fatalf("last lot = %+v, want studio needing refurbishment", last)
	}
	if last.ExternalURL != nil {
		t.Fatalf("last lot has no link, got %q", *last.ExternalURL)
	}
}

func TestCatalogExtractorRegionFallback(t *testing.T) {
	page := `<div class="property-card"><h2>Terraced house</h2><div class="address">15 Example Street, Leeds</div><a href="/p/1">x</a></div>
<div class="property-card"><h2>Detached house</h2><div class="address">Somewhere rural</div><a href="/p/2">x</a></div>`
	srv := serveHTML(t, "/auctions/residential/", page)
	ex := NewCatalogExtractor(siteFor(t, HouseAllsop, srv.URL), testFetcher(srv, false), nil)

	lots, err := ex.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(lots) != 2 {
		t.Fatalf("len(lots) = %d, want 2", len(lots))
	}
	if lots[0].Region != models.RegionYorkshire {
		t.Fatalf("Leeds lot region = %q, want Yorkshire", lots[0].Region)
	}
	if lots[1].Region != models.RegionSouthEast {
		t.Fatalf("unknown place region = %q, want South East fallback", lots[1].Region)
	}
}

func TestCatalogExtractorDedupesNestedBlocks(t *testing.T) {
	// The Allsop block selector also matches nested "lot" classes.
	page := `<div class="lot-card"><div class="lot-inner"><h2>Flat 1, Croydon</h2><a href="/l/1">x</a></div></div>`
	srv := serveHTML(t, "/auctions/residential/", page)
	ex := NewCatalogExtractor(siteFor(t, HouseAllsop, srv.URL), testFetcher(srv, false), nil)

	lots, err := ex.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(lots) != 1 {
		t.Fatalf("len(lots) = %d, want 1", len(lots))
	}
}

func TestAuctionHouseUKExtraFields(t *testing.T) {
	page := `<div class="lot-item"><h3>2 bed flat</h3><span class="guide-price">£120,000</span>
<span class="address">Flat 3, London SW1A 1AA</span><span class="auction-date">Thursday 12th March 2026</span>
<span class="lot-number">Lot 14</span><a href="/lot/14">x</a></div>`
	srv := serveHTML(t, "/search/results", page)
	ex := NewCatalogExtractor(siteFor(t, HouseAuctionHouseUK, srv.URL), testFetcher(srv, false), nil)

	lots, err := ex.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(lots) != 1 {
		t.Fatalf("len(lots) = %d, want 1", len(lots))
	}
	lot := lots[0]
	want := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)
	if lot.AuctionDate == nil || !lot.AuctionDate.Equal(want) {
		t.Fatalf("auction date = %v, want %v", lot.AuctionDate, want)
	}
	if lot.LotNumber == nil || *lot.LotNumber != 14 {
		t.Fatalf("lot number = %v, want 14", lot.LotNumber)
	}
	if lot.Postcode == nil || *lot.Postcode != "SW1A 1AA" {
		t.Fatalf("postcode = %v, want SW1A 1AA", lot.Postcode)
	}
	if lot.Region != models.RegionLondon {
		t.Fatalf("region = %q, want London", lot.Region)
	}
}

func TestFetcherNon200IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ex := NewCatalogExtractor(siteFor(t, HousePattinson, srv.URL), testFetcher(srv, false), nil)
	_, err := ex.Fetch(context.Background())
	if !errors.Is(err, ErrTransport) || !IsRetryable(err) {
		t.Fatalf("Fetch error = %v, want ErrTransport", err)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("Fetch error = %#v, want HTTPError 503", err)
	}
}

func TestFetcherRespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /auction\n"))
		default:
			_, _ = w.Write([]byte(`<div class="lot-item"><h2>x</h2></div>`))
		}
	}))
	defer srv.Close()

	site := siteFor(t, HousePattinson, srv.URL)
	_, err := NewCatalogExtractor(site, testFetcher(srv, true), nil).Fetch(context.Background())
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Fetch error = %v, want ErrDisallowed", err)
	}
	if IsRetryable(err) {
		t.Fatalf("robots refusal must not be retryable")
	}

	lots, err := NewCatalogExtractor(site, testFetcher(srv, false), nil).Fetch(context.Background())
	if err != nil || len(lots) != 1 {
		t.Fatalf("Fetch without robots = %d lots, %v; want 1 lot", len(lots), err)
	}
}

func aggListing(id int, title, image, extra string) string {
	img := ""
	if image != "" {
		img = fmt.Sprintf(`<img src="%s">`, image)
	}
	return fmt.Sprintf(`<a href="/auctions/%d/slug">%s<h2>%s</h2>%s</a>`, id, img, title, extra)
}

type aggServer struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string][]string
	fail  map[string]bool
}

func (s *aggServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("pt") + ":" + r.URL.Query().Get("pa")
	s.mu.Lock()
	s.hits[key]++
	s.mu.Unlock()
	if s.fail[key] {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte("<html><body>" + strings.Join(s.pages[key], "\n") + `<a href="/auctions/about">About</a></body></html>`))
}

func TestAggregatorPaginationAndAttribution(t *testing.T) {
	backend := &aggServer{
		hits: map[string]int{},
		pages: map[string][]string{
			"house:0": {
				aggListing(101, "2 bed flat in Bath", "https://www.lotu.uk/_next/image?url=https%3A%2F%2Fcdn.allsop.co.uk%2F1.jpg&w=640",
					`<p>Leasehold</p><span>Auction Date</span><span>12 March 2026</span><span>Guide Price</span><span>£150,000</span>`),
				aggListing(101, "2 bed flat in Bath", "", ""),
				aggListing(102, "", "", "<p>untitled</p>"),
			},
			"house:1":      {aggListing(103, "3 bed house in Leeds", "https://img.example.com/x.jpg", "")},
			"commercial:0": {aggListing(103, "3 bed house in Leeds", "", "")},
		},
		fail: map[string]bool{"flat:0": true},
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	agg := NewAggregator(config.AggregatorConfig{BaseURL: srv.URL, MaxPages: 30}, testFetcher(srv, false), nil)
	lots, stats, err := agg.FetchWithStats(context.Background())
	if err != nil {
		t.Fatalf("FetchWithStats: %v", err)
	}
	if len(lots) != 2 {
		t.Fatalf("len(lots) = %d, want 2 after dedup", len(lots))
	}

	for key, want := range map[string]int{"house:0": 1, "house:1": 1, "house:2": 1, "house:3": 0, "flat:0": 1, "flat:1": 0, "commercial:1": 1, "land:0": 1, "land:1": 0} {
		if got := backend.hits[key]; got != want {
			t.Fatalf("requests for %s = %d, want %d", key, got, want)
		}
	}
	if stats["house"].Lots != 2 || stats["house"].Pages != 3 {
		t.Fatalf("house facet stats = %+v, want 2 lots over 3 pages", stats["house"])
	}
	if stats["flat"].Error == "" {
		t.Fatalf("flat facet should record the fetch error")
	}

	bath := lots[0]
	if bath.HouseID != HouseAllsop {
		t.Fatalf("bath lot house = %d, want %d", bath.HouseID, HouseAllsop)
	}
	if bath.GuidePriceLow == nil || *bath.GuidePriceLow != 150000 {
		t.Fatalf("bath lot price = %v, want 150000", bath.GuidePriceLow)
	}
	if bath.AuctionDate == nil || bath.AuctionDate.Format(models.DateLayout) != "2026-03-12" {
		t.Fatalf("bath lot date = %v, want 2026-03-12", bath.AuctionDate)
	}
	if bath.Region != models.RegionSouthWest || bath.Address == nil || *bath.Address != "Bath" {
		t.Fatalf("bath lot region/address = %q/%v", bath.Region, bath.Address)
	}
	if bath.Tenure == nil || *bath.Tenure != "leasehold" {
		t.Fatalf("bath lot tenure = %v, want leasehold", bath.Tenure)
	}
	if bath.PropertyType != models.TypeResidential || bath.LotCondition != models.ConditionRefurbishment {
		t.Fatalf("bath lot type/condition = %q/%q", bath.PropertyType, bath.LotCondition)
	}
	if lots[1].HouseID != HouseAggregator {
		t.Fatalf("unmatched image house = %d, want %d", lots[1].HouseID, HouseAggregator)
	}
}

func TestAggregatorStopsOnCancel(t *testing.T) {
	backend := &aggServer{hits: map[string]int{}, pages: map[string][]string{}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg := NewAggregator(config.AggregatorConfig{BaseURL: srv.URL}, testFetcher(srv, false), nil)
	if _, err := agg.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch on cancelled context = %v, want context.Canceled", err)
	}
}

func TestResolveHouse(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"https://images.bondwolfe.com/a.jpg", HouseBondWolfe},
		{"https://x/_next/image?url=https%3A%2F%2Fwww.auctionhouse.co.uk%2Fa.png", HouseAuctionHouseUK},
		{"https://cdn.savills.com/p.jpg", 86},
		{"https://cdn.example.com/p.jpg", HouseAggregator},
		{"", HouseAggregator},
	}
	for _, tt := range tests {
		in := tt.in
		if got := ResolveHouse(&in); got != tt.want {
			t.Fatalf("ResolveHouse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := ResolveHouse(nil); got != HouseAggregator {
		t.Fatalf("ResolveHouse(nil) = %d, want %d", got, HouseAggregator)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(NewFetcher(config.HTTPConfig{}, nil), config.AggregatorConfig{}, nil)
	want := []int{5, 13, 19, 36, 39, 71, 73, 96, 100, 999}
	got := r.HouseIDs()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("HouseIDs() = %v, want %v", got, want)
	}
	if r.Has(42) {
		t.Fatalf("Has(42) = true, want false")
	}
	ex, ok := r.Get(HouseAggregator)
	if !ok {
		t.Fatalf("aggregator not registered")
	}
	if _, ok := ex.(StatsExtractor); !ok {
		t.Fatalf("aggregator should report facet stats")
	}
	houses := r.Houses()
	if len(houses) != len(want) || houses[0].Name != "Allsop" {
		t.Fatalf("Houses() = %+v", houses)
	}
}
