package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func intQueryPtr(c *gin.Context, key string) *int {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return &i
		}
	}
	return nil
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

// enumQueryPtr returns the query value when it is one of allowed; ok is false
// for a present but unknown value.
func enumQueryPtr(c *gin.Context, key string, allowed []string) (v *string, ok bool) {
	val := strQueryPtr(c, key)
	if val == nil {
		return nil, true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, *val) {
			out := a
			return &out, true
		}
	}
	return nil, false
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": int64(offset+limit) < total,
	}
}

// pageMeta is the page/per_page flavour used by the public lot listing.
func pageMeta(page, perPage int, total int64) map[string]any {
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return map[string]any{
		"page":      page,
		"per_page":  perPage,
		"total":     total,
		"last_page": lastPage,
		"has_next":  page < lastPage,
	}
}
