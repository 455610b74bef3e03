package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mmcdole/arrsync/internal/adapter"
	"github.com/mmcdole/arrsync/internal/adapter/destination"
	"github.com/mmcdole/arrsync/internal/adapter/lookup/tmdb"
	"github.com/mmcdole/arrsync/internal/adapter/source/letterboxd"
	"github.com/mmcdole/arrsync/internal/adapter/source/plex"
	"github.com/mmcdole/arrsync/internal/display"
	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/mmcdole/arrsync/internal/service"
	"github.com/mmcdole/arrsync/internal/store"
	"github.com/spf13/cobra"
)

// app holds everything one command invocation needs. It is built per
// command and closed when the command returns.
type app struct {
	cfg     *adapter.Config
	logger  *slog.Logger
	events  *adapter.EventBus
	printer *display.Printer
	store   *store.Store

	letterboxd *letterboxd.Client
	closers    []io.Closer
}

// loadApp reads configuration and sets up logging and hooks
func loadApp(opts *globalOptions) (*app, error) {
	cfg, err := adapter.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.Sync.Database = opts.dbPath
	}

	a := &app{cfg: cfg, printer: display.NewPrinter(os.Stdout)}

	logger, closer, err := adapter.SetupLogger(&cfg.Sync, opts.verbose)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		a.closers = append(a.closers, closer)
	}
	slog.SetDefault(logger)
	a.logger = logger

	events, err := adapter.NewEventBusFromConfig(cfg.Hooks, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.events = events

	return a, nil
}

func (a *app) openStore() error {
	st, err := store.Open(a.cfg.Sync.Database)
	if err != nil {
		return err
	}
	a.store = st
	a.closers = append(a.closers, st)
	return nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

// withApp builds the app, runs fn between command_start and command_end,
// and tears everything down afterwards
func withApp(cmd *cobra.Command, opts *globalOptions, needStore bool, fn func(ctx context.Context, a *app) error) error {
	a, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if needStore {
		if err := a.openStore(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	name := cmd.CommandPath()

	a.logger.Info("starting arrsync", "version", Version, "command", name)
	a.events.Emit(ctx, domain.EventCommandStart, map[string]any{"command": name})

	err = fn(ctx, a)

	payload := map[string]any{"command": name, "success": err == nil}
	if err != nil {
		payload["error"] = err.Error()
		a.logger.Error("command failed", "command", name, "error", err)
	}
	a.events.Emit(ctx, domain.EventCommandEnd, payload)
	return err
}

// sources returns every configured watchlist source, or only the one named
func (a *app) sources(only string) ([]domain.WatchlistSource, error) {
	switch only {
	case "", plex.SourceName, letterboxd.SourceName:
	default:
		return nil, fmt.Errorf("%w: unknown source %q (want plex or letterboxd)", domain.ErrConfiguration, only)
	}

	var out []domain.WatchlistSource
	if (only == "" || only == plex.SourceName) && a.cfg.HasPlex() {
		out = append(out, a.plexSource())
	}
	if (only == "" || only == letterboxd.SourceName) && a.cfg.HasLetterboxd() {
		out = append(out, a.letterboxdSource())
	}

	if len(out) == 0 {
		if only != "" {
			return nil, fmt.Errorf("%w: %s is not configured", domain.ErrConfiguration, only)
		}
		return nil, fmt.Errorf("%w: no watchlist sources configured", domain.ErrConfiguration)
	}
	return out, nil
}

// plexSource prefers the public RSS feed when one is configured. The
// token-backed source caches detail metadata in the store.
func (a *app) plexSource() *plex.Source {
	if a.cfg.Plex.RSSID != "" {
		return plex.NewRSSSource(plex.NewRSSFeed(a.cfg.Plex.RSSID, a.logger), a.logger)
	}
	client := plex.NewClient(a.cfg.Plex.Token, a.cfg.Plex.ClientIdentifier, a.logger)
	if a.store == nil {
		return plex.NewSource(client, nil, a.cfg.CacheMaxAge(), a.logger)
	}
	return plex.NewSource(client, a.store, a.cfg.CacheMaxAge(), a.logger)
}

// letterboxdClient is shared by the source and the resolver so both draw
// from the same request pacing
func (a *app) letterboxdClient() *letterboxd.Client {
	if a.letterboxd == nil {
		a.letterboxd = letterboxd.NewClient(a.logger)
	}
	return a.letterboxd
}

func (a *app) letterboxdSource() *letterboxd.Source {
	return letterboxd.NewSource(a.letterboxdClient(), letterboxd.Options{
		Usernames: a.cfg.Letterboxd.Usernames,
		Diary:     a.cfg.Letterboxd.RSS,
		Watchlist: a.cfg.Letterboxd.Watchlist,
		MinRating: a.cfg.Letterboxd.MinRating,
	}, a.logger)
}

// interval returns the follow-mode poll interval for a source
func (a *app) interval(source string) time.Duration {
	if source == plex.SourceName {
		return a.cfg.PlexInterval()
	}
	return a.cfg.LetterboxdInterval()
}

func (a *app) radarr() *destination.Radarr {
	c := a.cfg.Radarr
	return destination.NewRadarr(destination.Options{
		URL:            c.URL,
		APIKey:         c.APIKey,
		QualityProfile: c.QualityProfile,
		RootFolder:     c.RootFolder,
		Monitored:      c.Monitored,
		SearchOnAdd:    c.SearchOnAdd,
		Tags:           c.Tags,
	}, a.logger)
}

func (a *app) sonarr() *destination.Sonarr {
	c := a.cfg.Sonarr
	return destination.NewSonarr(destination.SonarrOptions{
		Options: destination.Options{
			URL:            c.URL,
			APIKey:         c.APIKey,
			QualityProfile: c.QualityProfile,
			RootFolder:     c.RootFolder,
			Monitored:      true,
			SearchOnAdd:    c.SearchOnAdd,
			Tags:           c.Tags,
		},
		SeriesType:   c.SeriesType,
		SeasonFolder: c.SeasonFolder,
		MonitorAll:   c.MonitorAll,
	}, a.logger)
}

// destinations returns the enabled destinations. Disabled ones stay nil.
func (a *app) destinations() service.Destinations {
	var d service.Destinations
	if a.cfg.Radarr.Enabled {
		d.Movies = a.radarr()
	}
	if a.cfg.Sonarr.Enabled {
		d.Series = a.sonarr()
	}
	return d
}

func (a *app) syncService(dest service.Destinations, dryRun bool) *service.SyncService {
	lookup := tmdb.NewClient(a.cfg.TMDB.APIKey, a.logger)
	resolver := service.NewResolver(a.store, lookup, a.letterboxdClient(), a.logger)
	return service.NewSyncService(a.store, resolver, dest, a.events, dryRun, a.logger)
}

// sourceLabel returns the display name for a source key
func sourceLabel(source string) string {
	switch source {
	case plex.SourceName:
		return "Plex"
	case letterboxd.SourceName:
		return "Letterboxd"
	default:
		return source
	}
}
