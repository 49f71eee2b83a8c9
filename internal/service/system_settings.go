package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"auctionhub/internal/models"
	"auctionhub/internal/repository"
)

const (
	FeatureScrapeAll   = "feature.scrape_all"
	FeatureAggregator  = "feature.aggregator"
	FeatureStatusSweep = "feature.status_sweep"
	FeatureFeed        = "feature.feed"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureScrapeAll:   true,
		FeatureAggregator:  true,
		FeatureStatusSweep: true,
		FeatureFeed:        true,
	}
}

// IsFeatureSwitch reports whether key names a known switch.
func IsFeatureSwitch(key string) bool {
	_, ok := DefaultFeatureSwitches()[strings.TrimSpace(key)]
	return ok
}

type FeatureSwitch struct {
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SystemSettingsService struct {
	Repo repository.SettingsRepository
}

// EnsureDefaultSwitches seeds missing switches with their defaults. Stored values
// are left alone so an operator's choice survives restarts.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		UpdatedAt:   time.Now().UTC(),
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

// Switches lists every known switch with its effective value, sorted by key.
func (s *SystemSettingsService) Switches(ctx context.Context) []FeatureSwitch {
	defaults := DefaultFeatureSwitches()
	out := make([]FeatureSwitch, 0, len(defaults))
	for key, def := range defaults {
		sw := FeatureSwitch{Key: key, Enabled: def}
		if s != nil && s.Repo != nil {
			if item, err := s.Repo.GetSystemSettingByKey(ctx, key); err == nil && item != nil {
				var enabled bool
				if json.Unmarshal(item.Value, &enabled) == nil {
					sw.Enabled = enabled
				}
				sw.UpdatedAt = item.UpdatedAt
			}
		}
		out = append(out, sw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
