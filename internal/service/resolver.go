package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

// Resolution reports whether the id a destination needs is now present
type Resolution struct {
	OK   bool
	Hint string // User-facing reason when OK is false
}

// Resolver fills in missing provider ids, cheapest source first:
// item fields, the external-id cache, one page scrape, then the reverse lookup.
type Resolver struct {
	ledger domain.Ledger
	lookup domain.ReverseLookup // optional
	pages  domain.PageResolver  // optional
	now    func() time.Time
	logger *slog.Logger
}

// NewResolver creates a resolver. lookup and pages may be nil.
func NewResolver(ledger domain.Ledger, lookup domain.ReverseLookup, pages domain.PageResolver, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		ledger: ledger,
		lookup: lookup,
		pages:  pages,
		now:    time.Now,
		logger: logger,
	}
}

// Resolve enriches item.IDs in place. The returned error is a storage
// failure; an unresolvable item is reported through Resolution.
func (r *Resolver) Resolve(ctx context.Context, item *domain.WatchlistItem) (Resolution, error) {
	if item.Kind == domain.KindSeries {
		return r.resolveSeries(ctx, item), nil
	}
	return r.resolveMovie(ctx, item)
}

func (r *Resolver) resolveMovie(ctx context.Context, item *domain.WatchlistItem) (Resolution, error) {
	if item.IDs.TMDB != "" {
		return Resolution{OK: true}, nil
	}

	if item.SourceSlug != "" {
		tmdbID, err := r.resolveFromSlug(ctx, item)
		if err != nil {
			return Resolution{}, err
		}
		if tmdbID != "" {
			item.IDs.TMDB = tmdbID
			return Resolution{OK: true}, nil
		}
	}

	hasOther := item.IDs.TVDB != "" || item.IDs.IMDB != ""
	if !r.lookupConfigured() {
		if hasOther {
			return Resolution{Hint: "No TMDB ID found - only have " + presentIDs(item.IDs) + " - required for Radarr (configure TMDB API key to enable lookups)"}, nil
		}
		return Resolution{Hint: "No TMDB ID or IMDB ID found - required for Radarr (configure TMDB API key to enable lookups)"}, nil
	}
	if !hasOther {
		return Resolution{Hint: "No TMDB ID or IMDB ID found - required for Radarr"}, nil
	}

	item.IDs = r.lookup.Resolve(ctx, item.IDs, domain.KindMovie)
	if item.IDs.TMDB != "" {
		r.logger.Debug("resolved tmdb id via lookup", "title", item.Title, "tmdb", item.IDs.TMDB)
		return Resolution{OK: true}, nil
	}
	return Resolution{Hint: "No TMDB ID found - required for Radarr (TMDB lookup failed)"}, nil
}

// resolveFromSlug consults the external-id cache and scrapes the film page
// at most once per item. Both hits and misses are persisted.
func (r *Resolver) resolveFromSlug(ctx context.Context, item *domain.WatchlistItem) (string, error) {
	entry, err := r.ledger.ExternalIDByItemID(item.SourceID)
	if err != nil {
		return "", err
	}
	if entry == nil {
		if entry, err = r.ledger.ExternalIDBySlug(item.SourceSlug); err != nil {
			return "", err
		}
	}

	if entry != nil && entry.TMDBID != "" {
		r.logger.Debug("using cached tmdb id", "slug", item.SourceSlug, "tmdb", entry.TMDBID)
		return entry.TMDBID, nil
	}
	if entry.Attempted() {
		r.logger.Debug("skipping scrape, previously unresolvable", "slug", item.SourceSlug)
		return "", nil
	}
	if r.pages == nil {
		return "", nil
	}

	tmdbID, scrapeErr := r.pages.ResolveTMDBID(ctx, item.SourceSlug)
	if scrapeErr != nil {
		r.logger.Warn("film page scrape failed", "slug", item.SourceSlug, "error", scrapeErr)
		tmdbID = ""
	}

	resolvedAt := r.now()
	if err := r.ledger.UpsertExternalID(domain.ExternalIDEntry{
		SourceItemID: item.SourceID,
		Slug:         item.SourceSlug,
		TMDBID:       tmdbID,
		Title:        item.Title,
		Year:         item.Year,
		ResolvedAt:   &resolvedAt,
	}); err != nil {
		return "", fmt.Errorf("failed to cache resolution for %s: %w", item.SourceSlug, err)
	}
	return tmdbID, nil
}

func (r *Resolver) resolveSeries(ctx context.Context, item *domain.WatchlistItem) Resolution {
	if item.IDs.TVDB != "" {
		return Resolution{OK: true}
	}

	hasOther := item.IDs.TMDB != "" || item.IDs.IMDB != ""
	if !r.lookupConfigured() {
		if hasOther {
			return Resolution{Hint: "No TVDB ID found - only have " + presentIDs(item.IDs) + " - required for Sonarr (configure TMDB API key to enable lookups)"}
		}
		return Resolution{Hint: "No TVDB ID found - required for Sonarr (configure TMDB API key to enable lookups)"}
	}
	if !hasOther {
		return Resolution{Hint: "No TVDB ID found - required for Sonarr"}
	}

	item.IDs = r.lookup.Resolve(ctx, item.IDs, domain.KindSeries)
	if item.IDs.TVDB != "" {
		r.logger.Debug("resolved tvdb id via lookup", "title", item.Title, "tvdb", item.IDs.TVDB)
		return Resolution{OK: true}
	}
	return Resolution{Hint: "No TVDB ID found - required for Sonarr (TMDB lookup failed)"}
}

// presentIDs names the ids an item does carry, e.g. "IMDB tt0133093, TVDB 81189"
func presentIDs(ids domain.ProviderIDs) string {
	var have []string
	if ids.TMDB != "" {
		have = append(have, "TMDB "+ids.TMDB)
	}
	if ids.IMDB != "" {
		have = append(have, "IMDB "+ids.IMDB)
	}
	if ids.TVDB != "" {
		have = append(have, "TVDB "+ids.TVDB)
	}
	return strings.Join(have, ", ")
}

func (r *Resolver) lookupConfigured() bool {
	return r.lookup != nil && r.lookup.Configured()
}
