package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amaumene/redman/internal/api"
	"github.com/amaumene/redman/internal/controllers"
	"github.com/amaumene/redman/internal/scheduler"
	"github.com/amaumene/redman/internal/services/plex"
)

// libraryCacheTTL bounds how stale the daemon's Plex snapshot may get
const libraryCacheTTL = time.Hour

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pool statistics and metrics over HTTP",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), map[string]string{"port": "SERVER_PORT"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.NewServer(a.cfg.ServerPort, a.db, a.metrics, a.logger)
			return server.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port")
	return cmd
}

func newDaemonCommand() *cobra.Command {
	var opts controllers.WatchOptions

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run watch on a schedule and serve statistics over HTTP",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			keys := map[string]string{"schedule": "WATCH_SCHEDULE", "port": "SERVER_PORT"}
			for k, v := range watchFlagKeys {
				keys[k] = v
			}
			return bindFlags(cmd.Flags(), keys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			library := a.library(libraryCacheTTL)
			ctrl, err := a.watchController(library)
			if err != nil {
				return err
			}

			if cached, ok := library.(*plex.CachedLibrary); ok {
				hangup := make(chan os.Signal, 1)
				signal.Notify(hangup, syscall.SIGHUP)
				defer signal.Stop(hangup)
				go refreshLibraryOn(cmd.Context(), hangup, cached, a.logger)
			}

			opts.Count = a.cfg.WatchCount
			sched := scheduler.NewScheduler(ctrl, a.cfg.WatchSchedule, opts, a.cfg.PoolFile+".lock", a.metrics, a.cfg.MetricsFile, a.logger)
			if err := sched.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer sched.Stop()

			server := api.NewServer(a.cfg.ServerPort, a.db, a.metrics, a.logger)
			a.logger.Info().Msg("Redman daemon is running")

			err = server.Start(cmd.Context())
			a.logger.Info().Msg("Redman daemon stopped")
			return err
		},
	}

	addWatchFlags(cmd, &opts)
	cmd.Flags().String("schedule", "", "Cron expression for watch runs")
	cmd.Flags().String("port", "", "HTTP port")
	return cmd
}

// refreshLibraryOn drops the cached Plex snapshot whenever signals fires,
// so the next scheduled run rereads the library
func refreshLibraryOn(ctx context.Context, signals <-chan os.Signal, library *plex.CachedLibrary, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			library.Invalidate()
			logger.Info().Msg("Plex library snapshot dropped, reloading on next run")
		}
	}
}
