package main

import (
	"context"
	"fmt"

	"github.com/mmcdole/arrsync/internal/adapter/source/letterboxd"
	"github.com/mmcdole/arrsync/internal/adapter/source/plex"
	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/mmcdole/arrsync/internal/search"
	"github.com/spf13/cobra"
)

func newListCmd(global *globalOptions) *cobra.Command {
	var (
		detailed     bool
		forceRefresh bool
		query        string
	)

	cmd := &cobra.Command{
		Use:       "list plex|letterboxd",
		Short:     "Show a watchlist",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{plex.SourceName, letterboxd.SourceName},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, true, func(ctx context.Context, a *app) error {
				sources, err := a.sources(args[0])
				if err != nil {
					return err
				}
				src := sources[0]
				label := sourceLabel(src.Name())

				items, err := src.FetchWatchlist(ctx, forceRefresh)
				if err != nil {
					return fmt.Errorf("failed to fetch %s watchlist: %w", label, err)
				}

				items = search.Filter(query, items, func(item *domain.WatchlistItem) string {
					return item.Title
				})

				a.printer.Watchlist(label+" Watchlist", items)
				if detailed {
					a.printer.WatchlistDetails(items)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "show summaries and source keys")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "bypass the metadata cache")
	cmd.Flags().StringVarP(&query, "search", "s", "", "fuzzy filter by title")

	return cmd
}
