package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newClearCmd(global *globalOptions) *cobra.Command {
	var yes, cache, all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear sync history so items can be forwarded again",
		Long: `Delete every ledger row. Items still on a watchlist will be forwarded
again on the next sync.

With --cache, remove stale Plex metadata instead and leave the ledger alone.
Add --all to drop every cached entry, not only stale ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, true, func(ctx context.Context, a *app) error {
				if cache && all {
					if err := a.store.ClearMetadata(); err != nil {
						return err
					}
					a.printer.Success("Metadata cache cleared")
					return nil
				}
				if cache {
					removed, err := a.store.ClearStaleMetadata(a.cfg.CacheMaxAge())
					if err != nil {
						return err
					}
					a.printer.Success("Removed %d stale metadata entries", removed)
					return nil
				}

				if !yes {
					ok, err := confirm("Clear all sync history?")
					if err != nil {
						return err
					}
					if !ok {
						a.printer.Info("Cancelled")
						return nil
					}
				}

				if err := a.store.ClearHistory(); err != nil {
					return err
				}
				a.printer.Success("Sync history cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&cache, "cache", false, "clear stale metadata cache entries instead of history")
	cmd.Flags().BoolVar(&all, "all", false, "with --cache, clear every entry")

	return cmd
}

// confirm asks a yes/no question on the terminal. Without a terminal there
// is nobody to ask, so it refuses.
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("stdin is not a terminal, pass --yes to confirm")
	}

	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read input: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
