// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/autobrr/plexbrr/internal/api/handlers"
	"github.com/autobrr/plexbrr/internal/api/middleware"
)

// Dependencies are the services the API routes are served from. Monitor may be nil.
type Dependencies struct {
	Plex    handlers.PlexService
	History handlers.HistoryStore
	Monitor handlers.MonitorStatus
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	// Use custom logger instead of default Gin logger
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.SetupCORS())
	r.Use(middleware.Secure(nil))

	plexHandler := handlers.NewPlexHandler(deps.Plex)
	historyHandler := handlers.NewHistoryHandler(deps.History, deps.Monitor)

	r.GET("/health", handlers.Health)

	api := r.Group("/api")
	{
		api.GET("/identity", plexHandler.GetIdentity)
		api.GET("/activity", plexHandler.GetActivity)
		api.GET("/sessions", plexHandler.GetSessions)
		api.GET("/metadata/:ratingKey", plexHandler.GetMetadata)
		api.GET("/image", plexHandler.GetImage)

		api.GET("/history", historyHandler.GetHistory)
		api.GET("/monitor", historyHandler.GetMonitorStatus)
	}
}
