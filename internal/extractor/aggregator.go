package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"auctionhub/internal/config"
	"auctionhub/internal/inference"
	"auctionhub/internal/models"
)

var (
	listingPathRe   = regexp.MustCompile(`^/auctions/\d+/`)
	aggPriceRe      = regexp.MustCompile(`(?i)(?:guide price|price)[:\s]*£\s*([\d,]+)`)
	aggDateRe       = regexp.MustCompile(`(?i)auction date[:\s]*(\d{1,2}(?:st|nd|rd|th)?\s+[a-z]+\s+\d{4})`)
	defaultFacets   = []string{"house", "flat", "commercial", "land"}
	houseDomainList = []struct {
		domain  string
		houseID int
	}{
		{"eigpropertyauctions", 44},
		{"allsop", HouseAllsop},
		{"auctionhouse.co.uk", HouseAuctionHouseUK},
		{"bondwolfe", HouseBondWolfe},
		{"cliveemson", HouseCliveEmson},
		{"barnardmarcus", HouseBarnardMarcus},
		{"iamsold", HouseIamSold},
		{"johnpye", HouseJohnPye},
		{"networkauctions", HouseNetworkAuctions},
		{"pattinson", HousePattinson},
		{"futurepropertyauctions", 53},
		{"acuitus", 1},
		{"savills", 86},
		{"sdl", 89},
		{"edwardmellor", 43},
	}
)

// FacetStats counts one facet's crawl.
type FacetStats struct {
	Pages int    `json:"pages"`
	Lots  int    `json:"lots"`
	Error string `json:"error,omitempty"`
}

// StatsExtractor is an Extractor that also reports per-run counters for the run audit.
type StatsExtractor interface {
	Extractor
	FetchWithStats(ctx context.Context) ([]RawLot, map[string]FacetStats, error)
}

// Aggregator walks the lotu.uk search facets page by page. Lots carry the house
// resolved from their image host, or HouseAggregator when nothing matches.
type Aggregator struct {
	baseURL    string
	facets     []string
	maxPages   int
	pageDelay  time.Duration
	facetDelay time.Duration
	fetcher    DocumentFetcher
	logger     *zap.Logger
}

func NewAggregator(cfg config.AggregatorConfig, fetcher DocumentFetcher, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://www.lotu.uk"
	}
	facets := cfg.Facets
	if len(facets) == 0 {
		facets = defaultFacets
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 30
	}
	return &Aggregator{
		baseURL:    base,
		facets:     append([]string(nil), facets...),
		maxPages:   maxPages,
		pageDelay:  cfg.PageDelay,
		facetDelay: cfg.FacetDelay,
		fetcher:    fetcher,
		logger:     logger.With(zap.Int("house_id", HouseAggregator), zap.String("house", "Lotu.uk")),
	}
}

func (a *Aggregator) HouseID() int { return HouseAggregator }
func (a *Aggregator) Name() string { return "Lotu.uk (Aggregator)" }

func (a *Aggregator) Fetch(ctx context.Context) ([]RawLot, error) {
	lots, _, err := a.FetchWithStats(ctx)
	return lots, err
}

// FetchWithStats crawls every facet. A failed page ends only its own facet;
// cancellation ends the whole crawl.
func (a *Aggregator) FetchWithStats(ctx context.Context) ([]RawLot, map[string]FacetStats, error) {
	limit := rate.Inf
	if a.pageDelay > 0 {
		limit = rate.Every(a.pageDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	stats := make(map[string]FacetStats, len(a.facets))
	seen := map[string]struct{}{}
	var out []RawLot

	for i, facet := range a.facets {
		if i > 0 && a.facetDelay > 0 {
			if err := sleepCtx(ctx, a.facetDelay); err != nil {
				return out, stats, err
			}
		}
		lots, st, err := a.crawlFacet(ctx, limiter, facet)
		stats[facet] = st
		if err != nil {
			return out, stats, err
		}
		for _, lot := range lots {
			key := lot.Title
			if lot.ExternalURL != nil {
				key = *lot.ExternalURL
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, lot)
		}
	}
	return out, stats, nil
}

func (a *Aggregator) crawlFacet(ctx context.Context, limiter *rate.Limiter, facet string) ([]RawLot, FacetStats, error) {
	var (
		st  FacetStats
		out []RawLot
	)
	for page := 0; page < a.maxPages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return out, st, err
		}
		pageURL := a.PageURL(facet, page)
		doc, err := a.fetcher.Document(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, st, ctxErr
			}
			a.logger.Warn("aggregator page fetch failed",
				zap.String("facet", facet),
				zap.Int("page", page),
				zap.Error(err),
			)
			st.Error = err.Error()
			break
		}
		st.Pages++
		lots := a.ParsePage(doc, facet)
		if len(lots) == 0 {
			break
		}
		st.Lots += len(lots)
		out = append(out, lots...)
	}
	a.logger.Info("aggregator facet done",
		zap.String("facet", facet),
		zap.Int("pages", st.Pages),
		zap.Int("lots", st.Lots),
	)
	return out, st, nil
}

func (a *Aggregator) PageURL(facet string, page int) string {
	q := url.Values{}
	q.Set("pa", fmt.Sprint(page))
	q.Set("pt", facet)
	return a.baseURL + "/search?" + q.Encode()
}

// ParsePage extracts listing anchors from one search results page.
func (a *Aggregator) ParsePage(doc *goquery.Document, facet string) []RawLot {
	base, _ := url.Parse(a.baseURL)
	var out []RawLot
	seen := map[string]struct{}{}
	doc.Find(`a[href*="/auctions/"]`).Each(func(_ int, node *goquery.Selection) {
		lot, err := a.parseListing(node, base, facet)
		if err != nil {
			return
		}
		if _, dup := seen[*lot.ExternalURL]; dup {
			return
		}
		seen[*lot.ExternalURL] = struct{}{}
		out = append(out, lot)
	})
	return out
}

var errNotListing = errors.New("not a listing anchor")

func (a *Aggregator) parseListing(node *goquery.Selection, base *url.URL, facet string) (lot RawLot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic parsing listing: %v", r)
		}
	}()

	href, _ := node.Attr("href")
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || !listingPathRe.MatchString(u.Path) {
		return RawLot{}, errNotListing
	}
	if u.Host != "" && base != nil && !strings.EqualFold(u.Host, base.Host) {
		return RawLot{}, errNotListing
	}
	title := inference.CleanText(node.Find("h2").First().Text())
	if title == "" {
		return RawLot{}, ErrMissingTitle
	}
	text := spacedText(node)

	lot.Title = title
	lot.ExternalURL = resolveURL(base, u.String())
	if lot.ExternalURL == nil {
		return RawLot{}, errNotListing
	}
	if m := aggPriceRe.FindStringSubmatch(text); m != nil {
		lot.GuidePriceLow, _ = inference.ParsePriceRange("£" + m[1])
	}
	if m := aggDateRe.FindStringSubmatch(text); m != nil {
		lot.AuctionDate = inference.ParseAuctionDate(m[1])
	}
	lot.ImageURL = listingImage(node, base)
	lot.Tenure = inference.InferTenure(text)
	lot.Address = inference.ExtractAddress(title)
	lot.Region = inference.InferRegion(text, models.RegionNational)
	lot.PropertyType = inference.MapFacetType(facet)
	lot.LotCondition = inference.InferAggregatorCondition(title + " " + text)
	lot.Bedrooms = inference.InferBedrooms(title + " " + text)
	lot.HouseID = ResolveHouse(lot.ImageURL)
	return lot, nil
}

// ResolveHouse matches the image URL against known auction house hosts.
func ResolveHouse(imageURL *string) int {
	if imageURL == nil || *imageURL == "" {
		return HouseAggregator
	}
	check := *imageURL
	if unescaped, err := url.QueryUnescape(check); err == nil {
		check = unescaped
	}
	check = strings.ToLower(check)
	for _, d := range houseDomainList {
		if strings.Contains(check, d.domain) {
			return d.houseID
		}
	}
	return HouseAggregator
}

func listingImage(node *goquery.Selection, base *url.URL) *string {
	img := node.Find("img").First()
	if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" && !strings.HasPrefix(src, "data:") {
		return resolveURL(base, strings.TrimSpace(src))
	}
	if srcset, ok := img.Attr("srcset"); ok {
		first := strings.TrimSpace(strings.Split(srcset, ",")[0])
		if fields := strings.Fields(first); len(fields) > 0 {
			return resolveURL(base, fields[0])
		}
	}
	return nil
}

// spacedText joins text nodes with spaces so adjacent labels and values stay apart.
func spacedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return inference.CleanText(b.String())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
