package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auctionhub/internal/models"
	"auctionhub/internal/repository"
	"auctionhub/internal/service"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// LotHandler is the public, read-only catalogue API.
type LotHandler struct {
	Query  *service.LotQueryService
	Logger *zap.Logger
}

func (h *LotHandler) Register(r *gin.Engine) {
	group := r.Group("/api")
	group.GET("/lots", h.listLots)
	group.GET("/lots/:id", h.getLot)
	group.GET("/stats", h.stats)
}

// @Summary List lots
// @Tags lots
// @Param region query string false "region"
// @Param property_type query string false "residential|commercial|land|mixed"
// @Param condition query string false "modern|refurbishment|development|mixed"
// @Param house_id query int false "auction house id"
// @Param status query string false "lot status (default upcoming, all for any)"
// @Param price_min query int false "minimum guide price"
// @Param price_max query int false "maximum guide price"
// @Param bedrooms_min query int false "minimum bedrooms"
// @Param q query string false "search title, address and postcode"
// @Param sort query string false "date_asc|date_desc|price_asc|price_desc|newest"
// @Param page query int false "page (1-based)"
// @Param per_page query int false "page size (max 100)"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/lots [get]
func (h *LotHandler) listLots(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	params, page, perPage, msg := parseLotQuery(c)
	if msg != "" {
		Error(c, http.StatusBadRequest, msg, nil)
		return
	}
	res, err := h.Query.ListLots(c.Request.Context(), params)
	if err != nil {
		h.logError("list lots failed", err)
		Error(c, http.StatusInternalServerError, "list lots failed", nil)
		return
	}
	Ok(c, res.Items, pageMeta(page, perPage, res.Total))
}

func parseLotQuery(c *gin.Context) (params repository.ListLotsParams, page, perPage int, msg string) {
	page = intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage = intQuery(c, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	params = repository.ListLotsParams{
		Limit:       perPage,
		Offset:      (page - 1) * perPage,
		HouseID:     intQueryPtr(c, "house_id"),
		PriceMin:    intQueryPtr(c, "price_min"),
		PriceMax:    intQueryPtr(c, "price_max"),
		BedroomsMin: intQueryPtr(c, "bedrooms_min"),
		Query:       strQueryPtr(c, "q"),
	}

	var ok bool
	if params.Region, ok = enumQueryPtr(c, "region", models.Regions); !ok {
		return params, 0, 0, "invalid region"
	}
	if params.PropertyType, ok = enumQueryPtr(c, "property_type", models.PropertyTypes); !ok {
		return params, 0, 0, "invalid property_type"
	}
	if params.Condition, ok = enumQueryPtr(c, "condition", models.Conditions); !ok {
		return params, 0, 0, "invalid condition"
	}

	switch status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status {
	case "":
		s := models.StatusUpcoming
		params.Status = &s
	case "all":
	default:
		if !models.Contains(models.Statuses, status) {
			return params, 0, 0, "invalid status"
		}
		params.Status = &status
	}

	params.Sort = strings.ToLower(strings.TrimSpace(c.Query("sort")))
	if params.Sort == "" {
		params.Sort = repository.SortDateAsc
	}
	if !models.Contains(repository.Sorts, params.Sort) {
		return params, 0, 0, "invalid sort"
	}
	return params, page, perPage, ""
}

// @Summary Get lot
// @Tags lots
// @Param id path int true "lot id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/lots/{id} [get]
func (h *LotHandler) getLot(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	lot, err := h.Query.GetLot(c.Request.Context(), id)
	if err != nil {
		h.logError("get lot failed", err)
		Error(c, http.StatusInternalServerError, "get lot failed", nil)
		return
	}
	if lot == nil {
		Error(c, http.StatusNotFound, "lot not found", nil)
		return
	}
	Ok(c, lot, nil)
}

// @Summary Catalogue statistics
// @Tags lots
// @Success 200 {object} apiResponse
// @Router /api/stats [get]
func (h *LotHandler) stats(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	stats, err := h.Query.Stats(c.Request.Context())
	if err != nil {
		h.logError("stats failed", err)
		Error(c, http.StatusInternalServerError, "stats failed", nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *LotHandler) logError(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
}
