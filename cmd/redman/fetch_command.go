package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amaumene/redman/internal/controllers"
	"github.com/amaumene/redman/internal/models"
)

func newFetchCommand() *cobra.Command {
	var weight int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "fetch {artist|collage} ID",
		Short: "Fetch collage or artist data from the API and store it in the pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceType, ok := models.ParseSourceType(args[0])
			if !ok {
				return fmt.Errorf("unknown source type %q, expected artist or collage", args[0])
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid %s id %q", sourceType, args[1])
			}
			if weight < 0 {
				return fmt.Errorf("weight must not be negative, got %d", weight)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			trk, err := a.trackerClient()
			if err != nil {
				return fmt.Errorf("failed to initialize tracker client: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fetching %s %d...\n", sourceType, id)

			ctrl := controllers.NewFetchController(trk, a.db, a.logger, a.metrics, a.tracer)
			result, err := ctrl.Fetch(cmd.Context(), sourceType, id, weight)
			if result != nil && verbose {
				printFetchDetails(cmd, result)
			}
			if err != nil {
				if result != nil && result.Stored > 0 {
					fmt.Fprintf(out, "%d torrents stored before the failure\n", result.Stored)
				}
				return err
			}

			fmt.Fprintf(out, "✓ %d torrents stored successfully!\n", result.Stored)
			if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to export metrics")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&weight, "weight", "w", 10, "Priority weight of the fetched releases")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	return cmd
}

func printFetchDetails(cmd *cobra.Command, result *controllers.FetchResult) {
	out := cmd.OutOrStdout()

	switch result.SourceType {
	case models.SourceTypeCollage:
		fmt.Fprintf(out, "Collage name: %s\n", result.Name)
		fmt.Fprintf(out, "Category: %s\n", result.Category)
	default:
		fmt.Fprintf(out, "Artist name: %s\n", result.Name)
	}
	fmt.Fprintf(out, "Total groups: %d\n", result.Works)
	if !result.NewFetch {
		if result.FirstSeen.IsZero() {
			fmt.Fprintln(out, "Already fetched before")
		} else {
			fmt.Fprintf(out, "Already fetched on %s\n", result.FirstSeen.Local().Format("2006-01-02 15:04"))
		}
	}
	fmt.Fprintf(out, "Selected releases: %d\n", len(result.Selected))
}
