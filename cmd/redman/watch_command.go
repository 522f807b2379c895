package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/amaumene/redman/internal/controllers"
)

// watchFlagKeys maps the shared watch flags onto config keys
var watchFlagKeys = map[string]string{
	"number":              "WATCH_COUNT",
	"plex":                "PLEX_DB",
	"torrent-dir":         "TORRENT_DIR",
	"download-dir":        "DOWNLOAD_DIR",
	"transmission-remote": "TRANSMISSION_REMOTE",
}

func addWatchFlags(cmd *cobra.Command, opts *controllers.WatchOptions) {
	cmd.Flags().IntP("number", "n", 10, "The number of torrents to add to the watchlist")
	cmd.Flags().String("plex", "", "Path to the Plex database file")
	cmd.Flags().String("torrent-dir", "", "Directory where downloaded torrents are stored")
	cmd.Flags().String("download-dir", "", "Directory where downloaded files are stored")
	cmd.Flags().String("transmission-remote", "", "transmission-remote executable")
	cmd.Flags().BoolVar(&opts.FreeloadOnly, "freeload-only", false, "Only pick releases that are freeload")
	cmd.Flags().BoolVar(&opts.UseToken, "use-token", false, "Try to spend a freeload token on each download first")
}

func newWatchCommand() *cobra.Command {
	var opts controllers.WatchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Download the next prioritized releases that are not owned yet",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), watchFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl, err := a.watchController(a.library(0))
			if err != nil {
				return err
			}

			opts.Count = a.cfg.WatchCount
			result, err := ctrl.Watch(cmd.Context(), opts)
			printWatchResult(cmd, result)

			if werr := a.metrics.WriteTextfile(a.cfg.MetricsFile); werr != nil {
				a.logger.Warn().Err(werr).Msg("Failed to export metrics")
			}
			return err
		},
	}

	addWatchFlags(cmd, &opts)
	return cmd
}

func printWatchResult(cmd *cobra.Command, result *controllers.WatchResult) {
	if result == nil {
		return
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n✓ %d torrent files downloaded\n", len(result.Downloaded))
	if len(result.Downloaded) == 0 {
		return
	}

	var total uint64
	rows := make([][]string, 0, len(result.Downloaded))
	for _, d := range result.Downloaded {
		total += d.Release.Size
		token := ""
		if d.UsedToken {
			token = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(d.Release.ID, 10),
			d.Release.ArtistNames,
			d.Release.AlbumName,
			humanize.IBytes(d.Release.Size),
			token,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{
			{title: "ID", align: text.AlignRight},
			{title: "Artist", align: text.AlignLeft, width: 32},
			{title: "Album", align: text.AlignLeft, width: 40},
			{title: "Size", align: text.AlignRight},
			{title: "Token", align: text.AlignLeft},
		},
		rows,
		"", "", "Total", humanize.IBytes(total), "",
	))
}
