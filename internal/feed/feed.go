// Package feed writes the static JSON snapshot of upcoming lots that can be
// served without the API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"auctionhub/internal/models"
)

type Stats struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	ScrapedAt  time.Time      `json:"scraped_at"`
	NextScrape time.Time      `json:"next_scrape"`
}

type Document struct {
	Lots        []models.Lot `json:"lots"`
	Stats       Stats        `json:"stats"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Build dedupes lots by external URL (title when there is none), drops lots
// dated before today and orders the rest by date, undated last, then guide price.
// stats.Total is set to the deduplicated count.
func Build(lots []models.Lot, stats Stats, today, now time.Time) Document {
	seen := make(map[string]struct{}, len(lots))
	unique := make([]models.Lot, 0, len(lots))
	for _, lot := range lots {
		key := lot.Title
		if lot.ExternalURL != nil && strings.TrimSpace(*lot.ExternalURL) != "" {
			key = *lot.ExternalURL
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, lot)
	}
	stats.Total = len(unique)
	if stats.ByType == nil {
		stats.ByType = map[string]int{}
	}

	todayKey := today.Format(models.DateLayout)
	upcoming := make([]models.Lot, 0, len(unique))
	for _, lot := range unique {
		if lot.AuctionDate != nil && lot.AuctionDate.Format(models.DateLayout) < todayKey {
			continue
		}
		upcoming = append(upcoming, lot)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		a, b := dateKey(upcoming[i]), dateKey(upcoming[j])
		if a != b {
			return a < b
		}
		return priceKey(upcoming[i]) < priceKey(upcoming[j])
	})
	return Document{Lots: upcoming, Stats: stats, GeneratedAt: now}
}

func dateKey(l models.Lot) string {
	if l.AuctionDate == nil {
		return "9999-12-31"
	}
	return l.AuctionDate.Format(models.DateLayout)
}

func priceKey(l models.Lot) int {
	if l.GuidePriceLow == nil {
		return 0
	}
	return *l.GuidePriceLow
}

type Writer struct {
	Path string
	Now  func() time.Time
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

// Write builds the document and replaces Path atomically. On any error the
// previous file is left in place.
func (w *Writer) Write(ctx context.Context, lots []models.Lot, stats Stats, today time.Time) (Document, error) {
	if strings.TrimSpace(w.Path) == "" {
		return Document{}, fmt.Errorf("feed path not configured")
	}
	doc := Build(lots, stats, today, w.now())
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if err := writeAtomic(w.Path, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func writeAtomic(path string, doc Document) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("feed dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("feed temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err = enc.Encode(doc); err != nil {
		return fmt.Errorf("feed encode: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("feed sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("feed close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("feed chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("feed rename: %w", err)
	}
	return nil
}

// Read loads a previously written feed.
func Read(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, fmt.Errorf("feed decode: %w", err)
	}
	return doc, nil
}
