// Package inference derives structured lot fields from free listing text.
// Every function is pure and never fails; unknown input yields a fallback or nil.
package inference

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"auctionhub/internal/models"
)

var (
	landRe       = regexp.MustCompile(`\bland\b|plot|acre|\bsite\b|development site`)
	commercialRe = regexp.MustCompile(`\boffice|\bshops?\b|retail|commercial|warehouse|industrial|\bunits?\b`)
	mixedRe      = regexp.MustCompile(`mixed.?use|shop.+flat|with.+flat.+above`)

	refurbRe      = regexp.MustCompile(`refurb|renovation|needs work|\btlc\b|updating|improvement`)
	developmentRe = regexp.MustCompile(`development|planning|conversion|building plot|pp for`)
	modernRe      = regexp.MustCompile(`modern|new build|recently|good order|ready`)

	// The aggregator's own condition rules: derelict shells first, and stems
	// like "modernis" count as work needed rather than modern.
	aggDerelictRe = regexp.MustCompile(`\b(?:derelict|dilapidated|uninhabitable|shell)\b`)
	aggRefurbRe   = regexp.MustCompile(`\b(?:refurb(?:ishment)?|renovation|modernis\w*|requires? (?:updating|improvement|work)|fixer|doer.?upper)\b`)
	aggModernRe   = regexp.MustCompile(`\b(?:new build|newly built|brand new|well.?presented|recently (?:renovated|refurbished|updated)|modern|move.?in)\b`)

	bedroomsRe = regexp.MustCompile(`(\d+)\s*[-\s]?bed`)
	studioRe   = regexp.MustCompile(`\bstudio\b`)

	// k/m multipliers only count as a standalone suffix: "£100k", "£1.2m", not "£90,000 kent".
	priceRangeRe  = regexp.MustCompile(`£?\s*([\d,]+(?:\.\d+)?)(?:\s*([km])\b)?\s*(?:-|–|—|to)\s*£?\s*([\d,]+(?:\.\d+)?)(?:\s*([km])\b)?`)
	priceSingleRe = regexp.MustCompile(`£\s*([\d,]+(?:\.\d+)?)(?:\s*([km])\b)?|([\d,]{4,})`)

	postcodeRe  = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?)\s*(\d[A-Z]{2})\b`)
	lotNumberRe = regexp.MustCompile(`(?i)\blot\s*(?:no\.?|number)?\s*(\d+)`)
	spaceRe     = regexp.MustCompile(`\s+`)

	addressInRe    = regexp.MustCompile(`(?i)^.*\bin\s+([A-Za-z][A-Za-z .'-]+)$`)
	addressCommaRe = regexp.MustCompile(`,\s*([^,]+)$`)

	ordinalRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	dayWordRe  = regexp.MustCompile(`(?i)\b(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(?:day|nesday|rsday|urday)?\b,?`)
	textDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([a-z]{3,9})\.?,?\s+(\d{4})\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	ukDateRe   = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})[/.](\d{4})\b`)
)

// InferPropertyType checks land, then commercial, then mixed use.
func InferPropertyType(text string) string {
	t := strings.ToLower(text)
	switch {
	case landRe.MatchString(t):
		return models.TypeLand
	case commercialRe.MatchString(t):
		return models.TypeCommercial
	case mixedRe.MatchString(t):
		return models.TypeMixed
	default:
		return models.TypeResidential
	}
}

// InferCondition checks refurbishment, then development, then modern.
func InferCondition(text, fallback string) string {
	t := strings.ToLower(text)
	switch {
	case refurbRe.MatchString(t):
		return models.ConditionRefurbishment
	case developmentRe.MatchString(t):
		return models.ConditionDevelopment
	case modernRe.MatchString(t):
		return models.ConditionModern
	default:
		return fallback
	}
}

// InferAggregatorCondition classifies aggregator listings. Anything unmatched
// is refurbishment, the usual state of an auction lot.
func InferAggregatorCondition(text string) string {
	t := strings.ToLower(text)
	switch {
	case aggDerelictRe.MatchString(t):
		return models.ConditionDevelopment
	case aggRefurbRe.MatchString(t):
		return models.ConditionRefurbishment
	case aggModernRe.MatchString(t):
		return models.ConditionModern
	default:
		return models.ConditionRefurbishment
	}
}

func InferBedrooms(text string) *int {
	t := strings.ToLower(text)
	if m := bedroomsRe.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n < 100 {
			return &n
		}
	}
	if studioRe.MatchString(t) {
		n := 0
		return &n
	}
	return nil
}

// ParsePriceRange reads a guide price. A range wins over a single figure;
// a reversed range is swapped so high is never below low.
func ParsePriceRange(text string) (low, high *int) {
	t := strings.ToLower(text)
	if m := priceRangeRe.FindStringSubmatch(t); m != nil {
		a, okA := parsePounds(m[1], m[2])
		b, okB := parsePounds(m[3], m[4])
		if okA && okB && a > 0 && b > 0 {
			if b < a {
				a, b = b, a
			}
			return &a, &b
		}
	}
	if m := priceSingleRe.FindStringSubmatch(t); m != nil {
		num, suffix := m[1], m[2]
		if num == "" {
			num, suffix = m[3], ""
		}
		if v, ok := parsePounds(num, suffix); ok && v > 0 {
			return &v, nil
		}
	}
	return nil, nil
}

// maxGuidePrice is the largest value the guide price columns (postgres integer) hold.
const maxGuidePrice = math.MaxInt32

func parsePounds(num, suffix string) (int, bool) {
	num = strings.ReplaceAll(num, ",", "")
	if num == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	switch suffix {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	}
	if f > maxGuidePrice {
		return 0, false
	}
	return int(f + 0.5), true
}

// ExtractPostcode returns the first UK postcode in text as "OUTWARD INWARD".
func ExtractPostcode(text string) *string {
	m := postcodeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	pc := strings.ToUpper(m[1]) + " " + strings.ToUpper(m[2])
	return &pc
}

func ParseLotNumber(text string) *int {
	m := lotNumberRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func InferTenure(text string) *string {
	t := strings.ToLower(text)
	var v string
	switch {
	case strings.Contains(t, "freehold"):
		v = "freehold"
	case strings.Contains(t, "leasehold"):
		v = "leasehold"
	default:
		return nil
	}
	return &v
}

// ExtractAddress pulls the place from titles like "2 bed flat in Bath" or "Shop, Leeds".
func ExtractAddress(title string) *string {
	title = CleanText(title)
	if m := addressInRe.FindStringSubmatch(title); m != nil {
		a := strings.TrimSpace(m[1])
		return &a
	}
	if m := addressCommaRe.FindStringSubmatch(title); m != nil {
		a := strings.TrimSpace(m[1])
		if a != "" {
			return &a
		}
	}
	return nil
}

// MapFacetType maps an aggregator search facet to a property type.
func MapFacetType(facet string) string {
	switch strings.ToLower(facet) {
	case "house", "flat":
		return models.TypeResidential
	case "commercial":
		return models.TypeCommercial
	case "land":
		return models.TypeLand
	default:
		return models.TypeResidential
	}
}

func CleanText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "sept": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// ParseAuctionDate accepts "12 March 2026", "Thursday 12th Mar 2026",
// "2026-03-12" and "12/03/2026". The result is a UTC calendar date.
func ParseAuctionDate(text string) *time.Time {
	t := ordinalRe.ReplaceAllString(text, "$1")
	t = dayWordRe.ReplaceAllString(t, "")
	if m := isoDateRe.FindStringSubmatch(t); m != nil {
		return makeDate(m[1], m[2], m[3])
	}
	for _, m := range textDateRe.FindAllStringSubmatch(t, -1) {
		name := strings.ToLower(m[2])
		mon, ok := months[name]
		if !ok {
			mon, ok = months[name[:3]]
		}
		if ok {
			return makeDate(m[3], strconv.Itoa(int(mon)), m[1])
		}
	}
	if m := ukDateRe.FindStringSubmatch(t); m != nil {
		return makeDate(m[3], m[2], m[1])
	}
	return nil
}

func makeDate(year, month, day string) *time.Time {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return nil
	}
	out := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31 April into May; reject it.
	if out.Day() != d {
		return nil
	}
	return &out
}
