package main

import (
	"context"

	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/mmcdole/arrsync/internal/search"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 100

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var (
		limit int
		query string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, true, func(ctx context.Context, a *app) error {
				// Searching covers the whole ledger, the limit applies to the matches
				fetch := limit
				if query != "" {
					fetch = 0
				}

				records, err := a.store.History(fetch)
				if err != nil {
					return err
				}

				records = search.Filter(query, records, func(rec domain.SyncRecord) string {
					return rec.Title
				})
				if limit > 0 && len(records) > limit {
					records = records[:limit]
				}

				a.printer.History(records)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "maximum number of rows (0 for all)")
	cmd.Flags().StringVarP(&query, "search", "s", "", "fuzzy filter by title")

	return cmd
}
