// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/autobrr/plexbrr/internal/services/plex"
	"github.com/autobrr/plexbrr/internal/types"
)

// PlexService is the subset of the media server client used by the API
type PlexService interface {
	GetCurrentActivity(ctx context.Context) (*types.Activity, error)
	GetMetadataDetails(ctx context.Context, ratingKey string) (*types.MetadataList, error)
	GetSessions(ctx context.Context, format plex.OutputFormat) (interface{}, error)
	GetImage(ctx context.Context, img, width, height string) (*types.Image, error)
	Identity(ctx context.Context) (*plex.ServerIdentity, error)
}

type PlexHandler struct {
	plex PlexService
	sf   singleflight.Group
}

func NewPlexHandler(service PlexService) *PlexHandler {
	return &PlexHandler{
		plex: service,
	}
}

// GetActivity returns the normalized activity snapshot
func (h *PlexHandler) GetActivity(c *gin.Context) {
	// concurrent requests share a single upstream call, which must outlive
	// the request that started it
	ctx := context.WithoutCancel(c.Request.Context())
	result, err, _ := h.sf.Do("activity", func() (interface{}, error) {
		return h.plex.GetCurrentActivity(ctx)
	})
	if err != nil {
		respondUpstreamError(c, "Failed to fetch current activity", err)
		return
	}

	c.JSON(http.StatusOK, result.(*types.Activity))
}

// GetMetadata returns the normalized metadata for one rating key
func (h *PlexHandler) GetMetadata(c *gin.Context) {
	ratingKey := strings.TrimSpace(c.Param("ratingKey"))
	if ratingKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ratingKey is required"})
		return
	}

	metadata, err := h.plex.GetMetadataDetails(c.Request.Context(), ratingKey)
	if err != nil {
		respondUpstreamError(c, "Failed to fetch metadata", err)
		return
	}

	c.JSON(http.StatusOK, metadata)
}

// GetSessions returns the raw sessions document, converted according to the format query parameter
func (h *PlexHandler) GetSessions(c *gin.Context) {
	format := plex.OutputFormat(c.DefaultQuery("format", string(plex.FormatDict)))
	switch format {
	case plex.FormatDict, plex.FormatJSON, plex.FormatRaw, "raw":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of raw, dict, json"})
		return
	}
	if format == "raw" {
		format = plex.FormatRaw
	}

	result, err := h.plex.GetSessions(c.Request.Context(), format)
	if err != nil {
		respondUpstreamError(c, "Failed to fetch sessions", err)
		return
	}

	switch v := result.(type) {
	case []byte:
		c.Data(http.StatusOK, "application/xml; charset=utf-8", v)
	case string:
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(v))
	default:
		c.JSON(http.StatusOK, v)
	}
}

// GetImage proxies an image through the media server transcoder
func (h *PlexHandler) GetImage(c *gin.Context) {
	img := c.Query("img")
	if img == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	image, err := h.plex.GetImage(c.Request.Context(), img, c.DefaultQuery("width", "0"), c.DefaultQuery("height", "0"))
	if err != nil {
		if errors.Is(err, plex.ErrImageStatus) || errors.Is(err, plex.ErrEmptyImagePath) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		respondUpstreamError(c, "Failed to fetch image", err)
		return
	}

	contentType := image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, image.Data)
}

// GetIdentity returns the media server identity
func (h *PlexHandler) GetIdentity(c *gin.Context) {
	identity, err := h.plex.Identity(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, "Failed to fetch server identity", err)
		return
	}

	c.JSON(http.StatusOK, identity)
}

func respondUpstreamError(c *gin.Context, msg string, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, plex.ErrNotConfigured) {
		status = http.StatusServiceUnavailable
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(status, gin.H{"error": msg})
}
