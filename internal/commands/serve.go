// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/plexbrr/internal/api/routes"
	"github.com/autobrr/plexbrr/internal/buildinfo"
	"github.com/autobrr/plexbrr/internal/database"
	"github.com/autobrr/plexbrr/internal/services/monitor"
	"github.com/autobrr/plexbrr/internal/services/plex"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listenAddr string
	var noMonitor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the activity monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Server.ListenAddr = listenAddr
			}

			log.Info().
				Str("version", buildinfo.Version).
				Str("commit", buildinfo.Commit).
				Str("build_date", buildinfo.Date).
				Msg("Starting plexbrr")

			if err := cfg.Validate(); err != nil {
				log.Warn().Err(err).Msg("Media server connection is incomplete, API calls will fail")
			}

			db, err := database.InitDBWithConfig(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			client := plex.NewClient(cfg.Plex)

			deps := routes.Dependencies{
				Plex:    client,
				History: db,
			}

			var mon *monitor.Monitor
			if !noMonitor {
				mon = monitor.New(client, db, cfg.Monitor)
				deps.Monitor = mon
			}

			if os.Getenv("GIN_MODE") == "debug" {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			r := gin.New()
			if err := r.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
				log.Error().Err(err).Msg("Failed to set trusted proxies")
			}
			routes.SetupRoutes(r, deps)

			srv := &http.Server{
				Addr:         cfg.Server.ListenAddr,
				Handler:      r,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(runCtx, srv, mon)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "Serve the API without polling activity")

	return cmd
}

// runServer serves until ctx is done, then shuts the server down gracefully. mon may be nil.
func runServer(ctx context.Context, srv *http.Server, mon *monitor.Monitor) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("address", srv.Addr).
			Str("mode", gin.Mode()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if mon != nil {
		g.Go(func() error {
			return mon.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server exiting")
	return nil
}
