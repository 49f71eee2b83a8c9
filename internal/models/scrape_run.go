package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailed  = "failed"
)

const (
	TriggerCron = "cron"
	TriggerAPI  = "api"
	TriggerCLI  = "cli"
)

// ScrapeRun is the append-only audit row written once per extractor invocation.
type ScrapeRun struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID          string         `gorm:"type:uuid;not null;uniqueIndex" json:"run_id"`
	AuctionHouseID int            `gorm:"not null;index:idx_scrape_runs_house_created,priority:1" json:"auction_house_id"`
	HouseName      string         `gorm:"type:varchar(120);not null" json:"house_name"`
	Status         string         `gorm:"type:varchar(10);not null;index" json:"status"`
	Trigger        string         `gorm:"type:varchar(10);not null;default:cli" json:"trigger"`
	LotsFound      int            `gorm:"not null;default:0" json:"lots_found"`
	LotsNew        int            `gorm:"not null;default:0" json:"lots_new"`
	DurationMs     int64          `gorm:"not null;default:0" json:"duration_ms"`
	Attempts       int            `gorm:"not null;default:1" json:"attempts"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message,omitempty"`
	Stats          datatypes.JSON `gorm:"type:jsonb" json:"stats,omitempty"`
	CreatedAt      time.Time      `gorm:"type:timestamptz;not null;index:idx_scrape_runs_house_created,priority:2" json:"created_at"`
}

func (ScrapeRun) TableName() string {
	return "scrape_runs"
}
