package extractor

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"auctionhub/internal/config"
)

// Registry maps house ids to extractors. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[int]Extractor
	sorted []int
}

func NewRegistry() *Registry {
	return &Registry{byID: map[int]Extractor{}}
}

// Register adds or replaces the extractor for its house id.
func (r *Registry) Register(ex Extractor) {
	if ex == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ex.HouseID()]; !ok {
		r.sorted = append(r.sorted, ex.HouseID())
		sort.Ints(r.sorted)
	}
	r.byID[ex.HouseID()] = ex
}

func (r *Registry) Get(houseID int) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.byID[houseID]
	return ex, ok
}

func (r *Registry) Has(houseID int) bool {
	_, ok := r.Get(houseID)
	return ok
}

// HouseIDs returns the registered ids in ascending order.
func (r *Registry) HouseIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]int(nil), r.sorted...)
}

// All returns the extractors in house id order.
func (r *Registry) All() []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extractor, 0, len(r.sorted))
	for _, id := range r.sorted {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Houses() []House {
	all := r.All()
	out := make([]House, 0, len(all))
	for _, ex := range all {
		out = append(out, House{ID: ex.HouseID(), Name: ex.Name()})
	}
	return out
}

// DefaultRegistry wires every catalogue house plus the aggregator crawler.
func DefaultRegistry(fetcher DocumentFetcher, agg config.AggregatorConfig, logger *zap.Logger) *Registry {
	r := NewRegistry()
	for _, site := range CatalogSites() {
		r.Register(NewCatalogExtractor(site, fetcher, logger))
	}
	r.Register(NewAggregator(agg, fetcher, logger))
	return r
}
