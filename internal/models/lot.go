package models

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	StatusUpcoming  = "upcoming"
	StatusLive      = "live"
	StatusSold      = "sold"
	StatusWithdrawn = "withdrawn"
	StatusUnsold    = "unsold"
)

const (
	TypeResidential = "residential"
	TypeCommercial  = "commercial"
	TypeLand        = "land"
	TypeMixed       = "mixed"
)

const (
	ConditionModern        = "modern"
	ConditionRefurbishment = "refurbishment"
	ConditionDevelopment   = "development"
	ConditionMixed         = "mixed"
)

const (
	RegionLondon       = "London"
	RegionSouthEast    = "South East"
	RegionSouthWest    = "South West"
	RegionEastAnglia   = "East Anglia"
	RegionEastMidlands = "East Midlands"
	RegionWestMidlands = "West Midlands"
	RegionNorthWest    = "North West"
	RegionNorthEast    = "North East"
	RegionYorkshire    = "Yorkshire"
	RegionWales        = "Wales"
	RegionScotland     = "Scotland"
	RegionNational     = "National"
)

// DateLayout is the wire format for auction dates.
const DateLayout = "2006-01-02"

var (
	Regions = []string{
		RegionLondon, RegionSouthEast, RegionSouthWest, RegionEastAnglia, RegionEastMidlands,
		RegionWestMidlands, RegionNorthWest, RegionNorthEast, RegionYorkshire, RegionWales,
		RegionScotland, RegionNational,
	}
	PropertyTypes = []string{TypeResidential, TypeCommercial, TypeLand, TypeMixed}
	Conditions    = []string{ConditionModern, ConditionRefurbishment, ConditionDevelopment, ConditionMixed}
	Statuses      = []string{StatusUpcoming, StatusLive, StatusSold, StatusWithdrawn, StatusUnsold}
)

type Lot struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionHouseID int        `gorm:"not null;index;comment:auction house id" json:"auction_house_id"`
	IdentityKey    string     `gorm:"type:char(40);not null;uniqueIndex;comment:digest of house, title, auction date" json:"-"`
	ExternalURL    *string    `gorm:"type:varchar(500)" json:"external_url"`
	Title          string     `gorm:"type:varchar(500);not null" json:"title"`
	Address        *string    `gorm:"type:varchar(500)" json:"address"`
	Postcode       *string    `gorm:"type:varchar(10)" json:"postcode"`
	Region         string     `gorm:"type:varchar(100);not null;index" json:"region"`
	PropertyType   string     `gorm:"type:varchar(20);not null;default:residential;index" json:"property_type"`
	LotCondition   string     `gorm:"type:varchar(20);not null;default:mixed" json:"lot_condition"`
	Bedrooms       *int       `gorm:"type:smallint" json:"bedrooms"`
	GuidePriceLow  *int       `gorm:"type:integer" json:"guide_price_low"`
	GuidePriceHigh *int       `gorm:"type:integer" json:"guide_price_high"`
	AuctionDate    *time.Time `gorm:"type:date;index;index:idx_lots_status_date,priority:2" json:"-"`
	LotNumber      *int       `gorm:"type:integer" json:"lot_number"`
	ImageURL       *string    `gorm:"type:varchar(500)" json:"image_url"`
	Tenure         *string    `gorm:"type:varchar(20)" json:"tenure"`
	Status         string     `gorm:"type:varchar(20);not null;default:upcoming;index;index:idx_lots_status_date,priority:1" json:"status"`
	SalePrice      *int       `gorm:"type:integer" json:"sale_price"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Lot) TableName() string {
	return "lots"
}

// MarshalJSON renders auction_date as a bare calendar date.
func (l Lot) MarshalJSON() ([]byte, error) {
	type alias Lot
	var date *string
	if l.AuctionDate != nil {
		s := l.AuctionDate.Format(DateLayout)
		date = &s
	}
	return json.Marshal(struct {
		alias
		AuctionDate *string `json:"auction_date"`
	}{alias: alias(l), AuctionDate: date})
}

func (l *Lot) UnmarshalJSON(b []byte) error {
	type alias Lot
	aux := struct {
		*alias
		AuctionDate *string `json:"auction_date"`
	}{alias: (*alias)(l)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	l.AuctionDate = nil
	if aux.AuctionDate != nil && *aux.AuctionDate != "" {
		t, err := time.Parse(DateLayout, *aux.AuctionDate)
		if err != nil {
			return err
		}
		l.AuctionDate = &t
	}
	return nil
}

// LotIdentityKey is the dedup key: house, title and auction date (empty when unknown).
// It is a heuristic; identical titles at one house on one day collapse into a single row.
func LotIdentityKey(houseID int, title string, auctionDate *time.Time) string {
	date := ""
	if auctionDate != nil {
		date = auctionDate.Format(DateLayout)
	}
	sum := sha1.Sum([]byte(strconv.Itoa(houseID) + "\x1f" + title + "\x1f" + date))
	return hex.EncodeToString(sum[:])
}

func (l Lot) GuidePriceFormatted() string {
	if l.GuidePriceLow == nil || *l.GuidePriceLow == 0 {
		return "POA"
	}
	low := formatPounds(*l.GuidePriceLow)
	if l.GuidePriceHigh != nil && *l.GuidePriceHigh != *l.GuidePriceLow {
		return "£" + low + " - £" + formatPounds(*l.GuidePriceHigh)
	}
	return "£" + low + "+"
}

// DaysUntilAuction is nil without a date and never negative.
func (l Lot) DaysUntilAuction(now time.Time) *int {
	if l.AuctionDate == nil {
		return nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(l.AuctionDate.Year(), l.AuctionDate.Month(), l.AuctionDate.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(today).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

func formatPounds(v int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func Contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
