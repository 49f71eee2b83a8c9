package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auctionhub/internal/auth"
	"auctionhub/internal/extractor"
	"auctionhub/internal/models"
	"auctionhub/internal/repository"
	"auctionhub/internal/service"
)

// AdminHandler exposes scrape control and the run audit trail behind an admin token.
type AdminHandler struct {
	Registry *extractor.Registry
	Scrape   *service.ScrapeService
	Sweep    *service.StatusSweepService
	Feed     *service.FeedService
	Settings *service.SystemSettingsService
	Runs     repository.RunRepository
	Events   *service.RunEvents

	JWT          auth.JWT
	AuthDisabled bool
	Stagger      time.Duration
	Logger       *zap.Logger

	// OriginPatterns lists cross-origin hosts allowed on the run stream.
	OriginPatterns []string
}

type houseView struct {
	ID      int               `json:"id"`
	Name    string            `json:"name"`
	LastRun *models.ScrapeRun `json:"last_run"`
}

type settingRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *AdminHandler) Register(r *gin.Engine) {
	group := r.Group("/api/admin", auth.RequireRole(h.JWT, auth.RoleAdmin, h.AuthDisabled))
	group.GET("/houses", h.listHouses)
	group.POST("/scrape", h.scrapeAll)
	group.POST("/scrape/:house", h.scrapeHouse)
	group.POST("/sweep", h.sweep)
	group.GET("/runs", h.listRuns)
	group.GET("/runs/stream", h.streamRuns)
	group.GET("/settings", h.listSettings)
	group.PUT("/settings/:key", h.putSetting)
	group.POST("/feed", h.refreshFeed)
}

// @Summary List auction houses with their latest run
// @Tags admin
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/admin/houses [get]
func (h *AdminHandler) listHouses(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	latest := map[int]models.ScrapeRun{}
	if h.Runs != nil {
		var err error
		if latest, err = h.Runs.LatestRunPerHouse(c.Request.Context()); err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
	}
	houses := h.Registry.Houses()
	out := make([]houseView, 0, len(houses))
	for _, house := range houses {
		v := houseView{ID: house.ID, Name: house.Name}
		if run, ok := latest[house.ID]; ok {
			run := run
			v.LastRun = &run
		}
		out = append(out, v)
	}
	Ok(c, out, map[string]any{"total": len(out)})
}

// @Summary Scrape every house
// @Tags admin
// @Security BearerAuth
// @Param sync query bool false "wait for all runs (default false)"
// @Success 200 {object} apiResponse
// @Success 202 {object} apiResponse
// @Router /api/admin/scrape [post]
func (h *AdminHandler) scrapeAll(c *gin.Context) {
	if h.Scrape == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	if boolQueryDefault(c, "sync", false) {
		h.audit(c, "scrape_all", zap.Bool("sync", true))
		runs := h.Scrape.RunAll(c.Request.Context(), service.RunAllOptions{Sync: true, Trigger: models.TriggerAPI})
		Ok(c, runs, map[string]any{"total": len(runs)})
		return
	}
	h.audit(c, "scrape_all")
	h.Scrape.RunAllAsync(service.RunAllOptions{Stagger: h.Stagger, Trigger: models.TriggerAPI})
	var houses []int
	if h.Scrape.Registry != nil {
		houses = h.Scrape.Registry.HouseIDs()
	}
	Accepted(c, gin.H{"houses": houses, "stagger": h.Stagger.String()})
}

// @Summary Scrape one house
// @Tags admin
// @Security BearerAuth
// @Param house path int true "auction house id"
// @Param sync query bool false "wait for the run (default false)"
// @Success 200 {object} apiResponse
// @Success 202 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/admin/scrape/{house} [post]
func (h *AdminHandler) scrapeHouse(c *gin.Context) {
	if h.Scrape == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	houseID, err := strconv.Atoi(strings.TrimSpace(c.Param("house")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid house id", nil)
		return
	}
	h.audit(c, "scrape_house", zap.Int("house_id", houseID))
	if !boolQueryDefault(c, "sync", false) {
		if err := h.Scrape.RunHouseAsync(c.Request.Context(), houseID, models.TriggerAPI); err != nil {
			h.scrapeError(c, err)
			return
		}
		Accepted(c, gin.H{"house_id": houseID})
		return
	}
	run, err := h.Scrape.RunHouse(c.Request.Context(), houseID, models.TriggerAPI)
	if err != nil && run == nil {
		h.scrapeError(c, err)
		return
	}
	Ok(c, run, nil)
}

func (h *AdminHandler) scrapeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownHouse):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrRunInProgress):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Warn("admin scrape failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

// @Summary Mark past upcoming lots unsold
// @Tags admin
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/admin/sweep [post]
func (h *AdminHandler) sweep(c *gin.Context) {
	if h.Sweep == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	n, err := h.Sweep.Run(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	h.audit(c, "sweep", zap.Int64("marked_unsold", n))
	Ok(c, gin.H{"marked_unsold": n}, nil)
}

// @Summary List scrape runs
// @Tags admin
// @Security BearerAuth
// @Param house_id query int false "auction house id"
// @Param status query string false "success|partial|failed"
// @Param trigger query string false "cron|api|cli"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/admin/runs [get]
func (h *AdminHandler) listRuns(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	params := repository.ListScrapeRunsParams{
		Limit:   limit,
		Offset:  offset,
		HouseID: intQueryPtr(c, "house_id"),
		Status:  strQueryPtr(c, "status"),
		Trigger: strQueryPtr(c, "trigger"),
	}
	items, err := h.Runs.ListScrapeRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Runs.CountScrapeRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if items == nil {
		items = []models.ScrapeRun{}
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary List feature switches
// @Tags admin
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/admin/settings [get]
func (h *AdminHandler) listSettings(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	Ok(c, h.Settings.Switches(c.Request.Context()), nil)
}

// @Summary Toggle a feature switch
// @Tags admin
// @Security BearerAuth
// @Param key path string true "switch key"
// @Param body body settingRequest true "new value"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/admin/settings/{key} [put]
func (h *AdminHandler) putSetting(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if !service.IsFeatureSwitch(key) {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return
	}
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "enabled is required", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	h.audit(c, "set_switch", zap.String("key", key), zap.Bool("enabled", *req.Enabled))
	Ok(c, service.FeatureSwitch{Key: key, Enabled: *req.Enabled, UpdatedAt: time.Now().UTC()}, nil)
}

// @Summary Regenerate the static feed
// @Tags admin
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/admin/feed [post]
func (h *AdminHandler) refreshFeed(c *gin.Context) {
	if h.Feed == nil || h.Feed.Writer == nil {
		Error(c, http.StatusServiceUnavailable, "feed disabled", nil)
		return
	}
	h.audit(c, "feed_refresh")
	stats, err := h.Feed.Refresh(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

// actor names the token subject behind an admin request.
func actor(c *gin.Context) string {
	claims, ok := auth.ClaimsFrom(c)
	if !ok || claims.Subject == "" {
		return "anonymous"
	}
	return claims.Subject
}

func (h *AdminHandler) audit(c *gin.Context, action string, fields ...zap.Field) {
	if h.Logger == nil {
		return
	}
	h.Logger.Info("admin action", append([]zap.Field{zap.String("action", action), zap.String("actor", actor(c))}, fields...)...)
}
