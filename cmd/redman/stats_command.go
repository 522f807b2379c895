package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/amaumene/redman/internal/models"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics about stored data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.db.Stats()
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			printStats(cmd, stats)
			return nil
		},
	}
}

func printStats(cmd *cobra.Command, stats *models.Stats) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "\nDatabase Statistics")
	fmt.Fprintf(out, "Total Torrents: %s\n", humanize.Comma(stats.TotalReleases))
	fmt.Fprintf(out, "Unique Artists: %s\n", humanize.Comma(stats.UniqueArtists))
	fmt.Fprintf(out, "Unique Albums: %s\n", humanize.Comma(stats.UniqueAlbums))
	fmt.Fprintf(out, "Total Size: %s\n", humanize.IBytes(stats.TotalSize))

	if len(stats.Formats) == 0 {
		return
	}

	rows := make([][]string, 0, len(stats.Formats))
	for _, f := range stats.Formats {
		rows = append(rows, []string{
			f.Format,
			strconv.FormatInt(f.Count, 10),
			fmt.Sprintf("%.1f%%", stats.Percent(f)),
		})
	}
	fmt.Fprintln(out, "\nFormat Distribution:")
	fmt.Fprintln(out, renderTable(
		[]column{
			{title: "Format", align: text.AlignLeft},
			{title: "Count", align: text.AlignRight},
			{title: "Share", align: text.AlignRight},
		},
		rows,
	))
}
