package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	streamBuffer    = 32
	streamWriteWait = 5 * time.Second
	streamPing      = 30 * time.Second
)

// @Summary Stream finished scrape runs
// @Description Upgrades to a websocket and pushes every recorded ScrapeRun as a JSON text frame.
// @Tags admin
// @Security BearerAuth
// @Router /api/admin/runs/stream [get]
func (h *AdminHandler) streamRuns(c *gin.Context) {
	if h.Events == nil {
		Error(c, http.StatusServiceUnavailable, "run stream disabled", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("run stream upgrade failed", zap.Error(err))
		}
		return
	}
	defer conn.CloseNow()

	runs, cancel := h.Events.Subscribe(streamBuffer)
	defer cancel()

	// Clients never send; CloseRead handles control frames and cancels ctx on disconnect.
	ctx := conn.CloseRead(c.Request.Context())
	ping := time.NewTicker(streamPing)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		case run, ok := <-runs:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			payload, err := json.Marshal(run)
			if err != nil {
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, streamWriteWait)
			err = conn.Write(wctx, websocket.MessageText, payload)
			wcancel()
			if err != nil {
				if h.Logger != nil {
					h.Logger.Debug("run stream write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
