// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/plexbrr/internal/services/monitor"
	"github.com/autobrr/plexbrr/internal/types"
)

const maxHistoryLimit = 1000

// HistoryStore defines the database operations needed by HistoryHandler
type HistoryStore interface {
	ListSessionHistory(ctx context.Context, params types.FindHistoryParams) ([]types.SessionHistory, error)
	LatestSnapshot(ctx context.Context) (*types.ActivitySnapshot, error)
}

// MonitorStatus reports the state of the background poller
type MonitorStatus interface {
	Status() monitor.Status
}

type HistoryHandler struct {
	db      HistoryStore
	monitor MonitorStatus
}

func NewHistoryHandler(db HistoryStore, monitor MonitorStatus) *HistoryHandler {
	return &HistoryHandler{
		db:      db,
		monitor: monitor,
	}
}

// GetHistory lists stored sessions, newest first
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	params := types.FindHistoryParams{
		User:      c.Query("user"),
		RatingKey: c.Query("ratingKey"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || limit == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		params.Limit = min(limit, maxHistoryLimit)
	}

	history, err := h.db.ListSessionHistory(c.Request.Context(), params)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list session history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list session history"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetMonitorStatus reports the last poll and the latest stored snapshot
func (h *HistoryHandler) GetMonitorStatus(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitor is not running"})
		return
	}

	snapshot, err := h.db.LatestSnapshot(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch latest snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch latest snapshot"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"monitor":        h.monitor.Status(),
		"latestSnapshot": snapshot,
	})
}
