package main

import (
	"context"
	"strings"

	"github.com/mmcdole/arrsync/internal/adapter"
	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, connections and ledger counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, true, runStatus)
		},
	}
}

func runStatus(ctx context.Context, a *app) error {
	cfg := a.cfg
	p := a.printer

	p.Heading("Configuration")
	p.Check("Config", true, adapter.ConfigFileUsed())
	p.Check("Database", true, a.store.Path())
	if err := cfg.Validate(); err != nil {
		p.Check("Valid", false, err.Error())
	} else {
		p.Check("Valid", true, "ok")
	}
	if cfg.Sync.DryRun {
		p.Warn("sync.dry_run is enabled, nothing will be added")
	}

	p.Heading("Sources")
	if cfg.HasPlex() {
		mode := "token"
		if cfg.Plex.RSSID != "" {
			mode = "rss feed"
		}
		if err := a.plexSource().Ping(ctx); err != nil {
			p.Check("Plex", false, err.Error())
		} else {
			p.Check("Plex", true, "connected ("+mode+")")
		}
	} else {
		p.Check("Plex", false, "not configured")
	}
	if cfg.HasLetterboxd() {
		p.Check("Letterboxd", true, strings.Join(cfg.Letterboxd.Usernames, ", "))
	} else {
		p.Check("Letterboxd", false, "not configured")
	}
	if cfg.TMDB.APIKey != "" {
		p.Check("TMDB", true, "reverse lookups enabled")
	} else {
		p.Check("TMDB", false, "no api key, ids are not looked up")
	}

	p.Heading("Destinations")
	dest := a.destinations()
	for _, d := range []struct {
		name string
		dest domain.Destination
	}{
		{"Radarr", dest.Movies},
		{"Sonarr", dest.Series},
	} {
		if d.dest == nil {
			p.Check(d.name, false, "disabled")
			continue
		}
		if err := d.dest.TestConnection(ctx); err != nil {
			p.Check(d.name, false, err.Error())
			continue
		}
		p.Check(d.name, true, "connected")
	}

	p.Heading("Ledger")
	movies, err := a.store.SyncedCount(domain.ServiceRadarr)
	if err != nil {
		return err
	}
	shows, err := a.store.SyncedCount(domain.ServiceSonarr)
	if err != nil {
		return err
	}
	seen, err := a.store.SeenCount()
	if err != nil {
		return err
	}
	p.Info("  Movies synced:  %d", movies)
	p.Info("  Shows synced:   %d", shows)
	p.Info("  Items seen:     %d", seen)
	return nil
}
