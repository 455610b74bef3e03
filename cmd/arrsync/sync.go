package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/mmcdole/arrsync/internal/service"
	"github.com/spf13/cobra"
)

type syncOptions struct {
	dryRun         bool
	forceRefresh   bool
	follow         bool
	ignoreExisting bool
	minRating      float64
	minRatingSet   bool
	source         string
}

func newSyncCmd(global *globalOptions) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Forward new watchlist items to Radarr and Sonarr",
		Long: `Fetch every configured watchlist and add titles that have not been
forwarded yet. Movies go to Radarr, series to Sonarr.

With --follow, keep running and re-check each source on its own interval.
With --ignore-existing, mark everything currently on the watchlists as
synced without adding it, so only titles added later are forwarded.

An unreachable destination or watchlist stops the run before anything is
added. In follow mode a failed pass is reported and retried on the next
interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.minRatingSet = cmd.Flags().Changed("min-rating")
			return withApp(cmd, global, true, func(ctx context.Context, a *app) error {
				return runSync(ctx, a, opts)
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.dryRun, "dry-run", false, "show what would be added without changing anything")
	flags.BoolVar(&opts.forceRefresh, "force-refresh", false, "bypass the metadata cache")
	flags.BoolVarP(&opts.follow, "follow", "f", false, "keep running and sync new items as they appear")
	flags.BoolVar(&opts.ignoreExisting, "ignore-existing", false, "mark current watchlist items as synced without adding them")
	flags.Float64Var(&opts.minRating, "min-rating", 0, "drop Letterboxd diary entries rated below this (0-5)")
	flags.StringVar(&opts.source, "source", "", "only sync one source: plex or letterboxd")

	return cmd
}

func runSync(ctx context.Context, a *app, opts *syncOptions) error {
	if opts.minRatingSet {
		a.cfg.Letterboxd.MinRating = opts.minRating
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	sources, err := a.sources(opts.source)
	if err != nil {
		return err
	}

	dest := a.destinations()
	if err := checkDestinations(ctx, dest); err != nil {
		return err
	}

	dryRun := opts.dryRun || a.cfg.Sync.DryRun
	if dryRun {
		a.printer.DryRunBanner()
	}

	if opts.ignoreExisting {
		if err := runBaseline(ctx, a, sources, dest, dryRun, opts.forceRefresh); err != nil {
			return err
		}
		if !opts.follow {
			return nil
		}
	}

	syncer := a.syncService(dest, dryRun)
	if opts.follow {
		return runFollow(ctx, a, syncer, sources, opts.forceRefresh)
	}

	batches, err := fetchSources(ctx, a, sources, opts.forceRefresh)
	if err != nil {
		return err
	}

	for _, b := range batches {
		label := sourceLabel(b.source)
		summary, err := syncer.Sync(ctx, b.items)
		if summary != nil {
			a.printer.SyncResults(label+" Sync Results", summary.Results)
			a.printer.Summary(label, summary)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkDestinations fails fast when an enabled destination is unreachable
func checkDestinations(ctx context.Context, dest service.Destinations) error {
	for _, d := range []domain.Destination{dest.Movies, dest.Series} {
		if d == nil {
			continue
		}
		if err := d.TestConnection(ctx); err != nil {
			return err
		}
	}
	return nil
}

type batch struct {
	source string
	items  []*domain.WatchlistItem
}

// fetchSources reads every watchlist before anything is synced, so an
// unreachable source stops the run before any item is forwarded
func fetchSources(ctx context.Context, a *app, sources []domain.WatchlistSource, forceRefresh bool) ([]batch, error) {
	batches := make([]batch, 0, len(sources))
	for _, src := range sources {
		items, err := src.FetchWatchlist(ctx, forceRefresh)
		if err != nil {
			a.events.Emit(ctx, domain.EventSyncError, map[string]any{
				"source": src.Name(),
				"error":  err.Error(),
			})
			return nil, fmt.Errorf("failed to fetch %s watchlist: %w", sourceLabel(src.Name()), err)
		}
		batches = append(batches, batch{source: src.Name(), items: items})
	}
	return batches, nil
}

// runBaseline marks what is on each watchlist right now as already synced
func runBaseline(ctx context.Context, a *app, sources []domain.WatchlistSource, dest service.Destinations, dryRun, forceRefresh bool) error {
	batches, err := fetchSources(ctx, a, sources, forceRefresh)
	if err != nil {
		return err
	}

	baseline := service.NewBaselineService(a.store, dest, dryRun, a.logger)
	for _, b := range batches {
		summary, err := baseline.Establish(ctx, b.items)
		if summary != nil {
			a.printer.Baseline(sourceLabel(b.source), *summary)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// runFollow polls every source until SIGINT or SIGTERM
func runFollow(ctx context.Context, a *app, syncer service.Syncer, sources []domain.WatchlistSource, forceRefresh bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := service.NewMonitor(syncer, a.events, forceRefresh, a.logger)
	monitor.OnTick(a.printer.Tick)

	var schedule []string
	for _, src := range sources {
		interval := a.interval(src.Name())
		monitor.AddSource(src, interval)
		schedule = append(schedule, fmt.Sprintf("%s every %s", sourceLabel(src.Name()), interval))
	}

	a.printer.Info("Following %s", strings.Join(schedule, ", "))
	if a.printer.Interactive() {
		a.printer.Info("Press Ctrl+C to stop")
	}

	if err := monitor.Run(ctx); err != nil {
		return err
	}

	a.printer.Info("Stopped")
	return nil
}
