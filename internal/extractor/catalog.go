package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"auctionhub/internal/inference"
	"auctionhub/internal/models"
)

// RegionPolicy either pins every lot to Fixed or infers from the address with Fallback.
type RegionPolicy struct {
	Fixed    string
	Fallback string
}

func (p RegionPolicy) resolve(text string) string {
	if p.Fixed != "" {
		return p.Fixed
	}
	fallback := p.Fallback
	if fallback == "" {
		fallback = models.RegionNational
	}
	return inference.InferRegion(text, fallback)
}

// CatalogSite describes one house's listing page. Selector lists are tried in
// order and the first element with non-empty text wins.
type CatalogSite struct {
	ID          int
	Name        string
	BaseURL     string
	ListingPath string

	Blocks    string
	Title     []string
	Price     []string
	Address   []string
	Date      []string
	LotNumber []string
	Link      []string
	Image     []string

	Region RegionPolicy
	// AddressFromTitle is for catalogues whose heading is the street address.
	AddressFromTitle bool
	// TypeFromAddress widens type inference to the address as well as the title.
	TypeFromAddress bool
}

func (s CatalogSite) ListingURL() string {
	return strings.TrimRight(s.BaseURL, "/") + s.ListingPath
}

// CatalogExtractor scrapes a single listing page described by a CatalogSite.
type CatalogExtractor struct {
	site    CatalogSite
	fetcher DocumentFetcher
	logger  *zap.Logger
}

func NewCatalogExtractor(site CatalogSite, fetcher DocumentFetcher, logger *zap.Logger) *CatalogExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(site.Link) == 0 {
		site.Link = []string{"a"}
	}
	if len(site.Image) == 0 {
		site.Image = []string{"img"}
	}
	return &CatalogExtractor{
		site:    site,
		fetcher: fetcher,
		logger:  logger.With(zap.Int("house_id", site.ID), zap.String("house", site.Name)),
	}
}

func (e *CatalogExtractor) HouseID() int      { return e.site.ID }
func (e *CatalogExtractor) Name() string      { return e.site.Name }
func (e *CatalogExtractor) Site() CatalogSite { return e.site }

func (e *CatalogExtractor) Fetch(ctx context.Context) ([]RawLot, error) {
	listing := e.site.ListingURL()
	doc, err := e.fetcher.Document(ctx, listing)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(listing)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	blocks := doc.Find(e.site.Blocks)
	out := make([]RawLot, 0, blocks.Length())
	seen := map[string]struct{}{}
	skipped := 0
	blocks.Each(func(i int, sel *goquery.Selection) {
		lot, err := e.parseBlock(sel, base)
		if err != nil {
			skipped++
			if !errors.Is(err, ErrMissingTitle) {
				e.logger.Debug("skip listing block", zap.Int("block", i), zap.Error(err))
			}
			return
		}
		key := lot.Title + "\x1f"
		if lot.ExternalURL != nil {
			key += *lot.ExternalURL
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, lot)
	})
	e.logger.Debug("listing parsed",
		zap.Int("blocks", blocks.Length()),
		zap.Int("lots", len(out)),
		zap.Int("skipped", skipped),
	)
	return out, nil
}

// parseBlock never lets a malformed block take the page down with it.
func (e *CatalogExtractor) parseBlock(sel *goquery.Selection, base *url.URL) (lot RawLot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic parsing block: %v", r)
		}
	}()

	title := firstText(sel, e.site.Title)
	if title == "" {
		return RawLot{}, ErrMissingTitle
	}
	address := firstText(sel, e.site.Address)
	if address == "" && e.site.AddressFromTitle {
		address = title
	}
	blockText := inference.CleanText(sel.Text())

	lot.Title = title
	lot.Address = strPtr(address)
	lot.Postcode = inference.ExtractPostcode(address)
	lot.Region = e.site.Region.resolve(address + " " + title)

	typeText := title
	if e.site.TypeFromAddress {
		typeText = title + " " + address
	}
	lot.PropertyType = inference.InferPropertyType(typeText)
	lot.LotCondition = inference.InferCondition(title, models.ConditionMixed)
	lot.Bedrooms = inference.InferBedrooms(title)
	lot.GuidePriceLow, lot.GuidePriceHigh = inference.ParsePriceRange(firstText(sel, e.site.Price))
	lot.Tenure = inference.InferTenure(blockText)

	if len(e.site.Date) > 0 {
		lot.AuctionDate = inference.ParseAuctionDate(firstText(sel, e.site.Date))
	}
	if len(e.site.LotNumber) > 0 {
		lot.LotNumber = inference.ParseLotNumber(firstText(sel, e.site.LotNumber))
	}
	if href := firstAttr(sel, e.site.Link, "href"); href != "" {
		lot.ExternalURL = resolveURL(base, href)
	}
	if src := firstAttr(sel, e.site.Image, "src", "data-src"); src != "" {
		lot.ImageURL = resolveURL(base, src)
	}
	return lot, nil
}

func firstText(sel *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		var found string
		sel.Find(s).EachWithBreak(func(_ int, n *goquery.Selection) bool {
			found = inference.CleanText(n.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func firstAttr(sel *goquery.Selection, selectors []string, attrs ...string) string {
	for _, s := range selectors {
		node := sel.Find(s).First()
		for _, a := range attrs {
			if v, ok := node.Attr(a); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func resolveURL(base *url.URL, ref string) *string {
	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	s := u.String()
	return &s
}
