package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"auctionhub/internal/auth"
	"auctionhub/internal/config"
	"auctionhub/internal/extractor"
	"auctionhub/internal/lock"
	"auctionhub/internal/models"
	"auctionhub/internal/repository/memory"
	"auctionhub/internal/service"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

type fixedExtractor struct {
	id   int
	lots []extractor.RawLot
}

func (f fixedExtractor) HouseID() int { return f.id }
func (f fixedExtractor) Name() string { return "Fixed" }
func (f fixedExtractor) Fetch(ctx context.Context) ([]extractor.RawLot, error) {
	return f.lots, nil
}

func intp(v int) *int { return &v }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var testNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func do(t *testing.T, r http.Handler, method, path string, body []byte, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func newLotRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	ctx := context.Background()
	seed := []extractor.RawLot{
		{Title: "Flat A", Region: models.RegionLondon, GuidePriceLow: intp(100000), AuctionDate: day(2026, 5, 1)},
		{Title: "House B", Region: models.RegionLondon, GuidePriceLow: intp(95000), AuctionDate: day(2026, 4, 1)},
		{Title: "Barn C", Region: models.RegionWales, GuidePriceLow: intp(200000)},
	}
	for _, raw := range seed {
		if _, err := store.UpsertLot(ctx, 5, raw); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	r := gin.New()
	h := &LotHandler{Query: &service.LotQueryService{Repo: store, Location: time.UTC, Now: func() time.Time { return testNow }}}
	h.Register(r)
	return r, store
}

func TestListLots(t *testing.T) {
	r, _ := newLotRouter(t)

	code, env := do(t, r, http.MethodGet, "/api/lots", nil, "")
	if code != http.StatusOK || env.Code != 0 {
		t.Fatalf("GET /api/lots = %d (%s)", code, env.Message)
	}
	var lots []models.Lot
	if err := json.Unmarshal(env.Data, &lots); err != nil {
		t.Fatalf("decode lots: %v", err)
	}
	if len(lots) != 3 || lots[0].Title != "House B" || lots[2].Title != "Barn C" {
		t.Fatalf("lots = %+v, want date order with undated last", lots)
	}
	if env.Meta["total"] != float64(3) || env.Meta["last_page"] != float64(1) || env.Meta["has_next"] != false {
		t.Fatalf("meta = %+v", env.Meta)
	}

	_, env = do(t, r, http.MethodGet, "/api/lots?per_page=1&page=2&sort=price_asc", nil, "")
	if err := json.Unmarshal(env.Data, &lots); err != nil {
		t.Fatalf("decode lots: %v", err)
	}
	if len(lots) != 1 || lots[0].Title != "Flat A" {
		t.Fatalf("page 2 = %+v, want Flat A", lots)
	}
	if env.Meta["last_page"] != float64(3) || env.Meta["has_next"] != true {
		t.Fatalf("meta = %+v", env.Meta)
	}

	_, env = do(t, r, http.MethodGet, "/api/lots?region=wales", nil, "")
	if err := json.Unmarshal(env.Data, &lots); err != nil {
		t.Fatalf("decode lots: %v", err)
	}
	if len(lots) != 1 || lots[0].Title != "Barn C" {
		t.Fatalf("region filter = %+v, want Barn C", lots)
	}
}

func TestListLotsRejectsBadParams(t *testing.T) {
	r, _ := newLotRouter(t)
	for _, path := range []string{
		"/api/lots?region=atlantis",
		"/api/lots?property_type=castle",
		"/api/lots?condition=haunted",
		"/api/lots?status=pending",
		"/api/lots?sort=random",
	} {
		if code, _ := do(t, r, http.MethodGet, path, nil, ""); code != http.StatusBadRequest {
			t.Fatalf("GET %s = %d, want 400", path, code)
		}
	}
}

func TestGetLot(t *testing.T) {
	r, _ := newLotRouter(t)
	tests := []struct {
		path string
		want int
	}{
		{"/api/lots/1", http.StatusOK},
		{"/api/lots/99", http.StatusNotFound},
		{"/api/lots/abc", http.StatusBadRequest},
		{"/api/lots/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if code, _ := do(t, r, http.MethodGet, tt.path, nil, ""); code != tt.want {
			t.Fatalf("GET %s = %d, want %d", tt.path, code, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	r, _ := newLotRouter(t)
	code, env := do(t, r, http.MethodGet, "/api/stats", nil, "")
	if code != http.StatusOK {
		t.Fatalf("GET /api/stats = %d", code)
	}
	var stats struct {
		TotalLots       int64   `json:"total_lots"`
		NextAuctionDate *string `json:"next_auction_date"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalLots != 3 || stats.NextAuctionDate == nil || *stats.NextAuctionDate != "2026-04-01" {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	(&HealthHandler{Now: func() time.Time { return testNow }}).Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusOK || body["status"] != "ok" || body["timestamp"] != "2026-02-01T12:00:00Z" {
		t.Fatalf("GET /health = %d %v", w.Code, body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /readyz without db = %d, want 503", w.Code)
	}
}

type adminFixture struct {
	router *gin.Engine
	scrape *service.ScrapeService
	locker *lock.MemoryLocker
	token  string
	logs   *observer.ObservedLogs
}

func newAdminFixture(t *testing.T) adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	reg := extractor.NewRegistry()
	reg.Register(fixedExtractor{id: 5, lots: []extractor.RawLot{{Title: "Lot 1"}, {Title: "Lot 2"}}})
	reg.Register(fixedExtractor{id: 13})
	locker := lock.NewMemoryLocker()
	scrape := &service.ScrapeService{
		Registry: reg,
		Lots:     store,
		Runs:     store,
		Locker:   locker,
		Config:   config.ScrapeConfig{MaxAttempts: 1, ErrorMaxLen: 2000},
	}
	j := auth.JWT{Secret: []byte("test-secret")}
	token, _, err := j.Sign("ops", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	h := &AdminHandler{
		Registry: reg,
		Scrape:   scrape,
		Sweep:    &service.StatusSweepService{Lots: store, Location: time.UTC},
		Settings: &service.SystemSettingsService{Repo: store},
		Runs:     store,
		JWT:      j,
		Logger:   zap.New(core),
	}
	h.Register(r)
	return adminFixture{router: r, scrape: scrape, locker: locker, token: token, logs: logs}
}

func TestAdminRequiresToken(t *testing.T) {
	f := newAdminFixture(t)
	if code, _ := do(t, f.router, http.MethodGet, "/api/admin/houses", nil, ""); code != http.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", code)
	}
	if code, _ := do(t, f.router, http.MethodGet, "/api/admin/houses", nil, "not-a-jwt"); code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", code)
	}
	viewer, _, _ := auth.JWT{Secret: []byte("test-secret")}.Sign("someone", "viewer")
	if code, _ := do(t, f.router, http.MethodGet, "/api/admin/houses", nil, viewer); code != http.StatusForbidden {
		t.Fatalf("viewer token = %d, want 403", code)
	}
}

func TestAdminScrapeHouse(t *testing.T) {
	f := newAdminFixture(t)

	code, env := do(t, f.router, http.MethodPost, "/api/admin/scrape/5?sync=true", nil, f.token)
	if code != http.StatusOK {
		t.Fatalf("sync scrape = %d (%s)", code, env.Message)
	}
	var run models.ScrapeRun
	if err := json.Unmarshal(env.Data, &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Status != models.RunSuccess || run.LotsFound != 2 || run.LotsNew != 2 {
		t.Fatalf("run = %+v", run)
	}

	if code, _ := do(t, f.router, http.MethodPost, "/api/admin/scrape/999", nil, f.token); code != http.StatusNotFound {
		t.Fatalf("unknown house = %d, want 404", code)
	}
	if code, _ := do(t, f.router, http.MethodPost, "/api/admin/scrape/x", nil, f.token); code != http.StatusBadRequest {
		t.Fatalf("bad house id = %d, want 400", code)
	}

	unlock, ok, _ := f.locker.TryLock(context.Background(), "scrape:house:5", time.Minute)
	if !ok {
		t.Fatalf("could not take house lock")
	}
	defer unlock()
	if code, _ := do(t, f.router, http.MethodPost, "/api/admin/scrape/5?sync=true", nil, f.token); code != http.StatusConflict {
		t.Fatalf("overlapping scrape = %d, want 409", code)
	}
}

func TestAdminScrapeAllAsync(t *testing.T) {
	f := newAdminFixture(t)
	if code, _ := do(t, f.router, http.MethodPost, "/api/admin/scrape", nil, f.token); code != http.StatusAccepted {
		t.Fatalf("async scrape = %d, want 202", code)
	}
	f.scrape.Wait()

	code, env := do(t, f.router, http.MethodGet, "/api/admin/runs", nil, f.token)
	if code != http.StatusOK || env.Meta["total"] != float64(2) {
		t.Fatalf("runs = %d meta %+v, want 2 runs", code, env.Meta)
	}

	_, env = do(t, f.router, http.MethodGet, "/api/admin/houses", nil, f.token)
	var houses []houseView
	if err := json.Unmarshal(env.Data, &houses); err != nil {
		t.Fatalf("decode houses: %v", err)
	}
	if len(houses) != 2 || houses[0].ID != 5 || houses[0].LastRun == nil || houses[0].LastRun.LotsFound != 2 {
		t.Fatalf("houses = %+v", houses)
	}
}

func TestAdminSettings(t *testing.T) {
	f := newAdminFixture(t)
	body := []byte(`{"enabled":false}`)
	if code, _ := do(t, f.router, http.MethodPut, "/api/admin/settings/feature.nope", body, f.token); code != http.StatusNotFound {
		t.Fatalf("unknown switch = %d, want 404", code)
	}
	if code, _ := do(t, f.router, http.MethodPut, "/api/admin/settings/feature.feed", []byte(`{}`), f.token); code != http.StatusBadRequest {
		t.Fatalf("missing enabled = %d, want 400", code)
	}
	if code, _ := do(t, f.router, http.MethodPut, "/api/admin/settings/feature.feed", body, f.token); code != http.StatusOK {
		t.Fatalf("toggle = %d, want 200", code)
	}

	_, env := do(t, f.router, http.MethodGet, "/api/admin/settings", nil, f.token)
	var switches []service.FeatureSwitch
	if err := json.Unmarshal(env.Data, &switches); err != nil {
		t.Fatalf("decode switches: %v", err)
	}
	for _, s := range switches {
		if s.Key == "feature.feed" && s.Enabled {
			t.Fatalf("feature.feed still enabled")
		}
	}

	entries := f.logs.FilterMessage("admin action").FilterField(zap.String("action", "set_switch")).AllUntimed()
	if len(entries) != 1 {
		t.Fatalf("set_switch log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["actor"]; got != "ops" {
		t.Fatalf("actor = %v, want ops", got)
	}
}

func TestAdminActorWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	h := &AdminHandler{
		Sweep:        &service.StatusSweepService{Lots: memory.New(), Location: time.UTC},
		AuthDisabled: true,
		Logger:       zap.New(core),
	}
	h.Register(r)
	if code, _ := do(t, r, http.MethodPost, "/api/admin/sweep", nil, ""); code != http.StatusOK {
		t.Fatalf("sweep = %d, want 200", code)
	}
	entries := logs.FilterField(zap.String("action", "sweep")).AllUntimed()
	if len(entries) != 1 || entries[0].ContextMap()["actor"] != "anonymous" {
		t.Fatalf("sweep entries = %+v, want one with actor anonymous", entries)
	}
}

func TestAdminSweep(t *testing.T) {
	f := newAdminFixture(t)
	code, env := do(t, f.router, http.MethodPost, "/api/admin/sweep", nil, f.token)
	if code != http.StatusOK {
		t.Fatalf("sweep = %d", code)
	}
	var out map[string]int64
	_ = json.Unmarshal(env.Data, &out)
	if out["marked_unsold"] != 0 {
		t.Fatalf("sweep = %+v, want 0 on empty store", out)
	}
}
