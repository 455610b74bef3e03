package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

// BaselineSummary counts what a baseline run marked
type BaselineSummary struct {
	Total         int
	Marked        int
	AlreadySynced int
	Unconfigured  int
}

// BaselineService marks every currently visible watchlist item as synced
// without forwarding it, so a first run does not bulk-import an old watchlist.
type BaselineService struct {
	ledger domain.Ledger
	dest   Destinations
	dryRun bool
	now    func() time.Time
	logger *slog.Logger
}

func NewBaselineService(ledger domain.Ledger, dest Destinations, dryRun bool, logger *slog.Logger) *BaselineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaselineService{
		ledger: ledger,
		dest:   dest,
		dryRun: dryRun,
		now:    time.Now,
		logger: logger,
	}
}

// Establish records a success ledger row for every item with a configured
// destination that is not already synced. Dry run only counts.
func (b *BaselineService) Establish(ctx context.Context, items []*domain.WatchlistItem) (*BaselineSummary, error) {
	summary := &BaselineSummary{Total: len(items)}
	now := b.now()
	var seen []domain.SeenEntry

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		service := domain.ServiceFor(item.Kind)
		if b.dest.For(item.Kind) == nil {
			summary.Unconfigured++
			continue
		}

		synced, err := b.ledger.IsSynced(item.Key, service)
		if err != nil {
			return summary, err
		}
		if synced {
			summary.AlreadySynced++
			continue
		}

		summary.Marked++
		seen = append(seen, domain.SeenEntry{
			Key:       item.Key,
			Source:    item.Source,
			Title:     item.Title,
			Kind:      item.Kind,
			IDs:       item.IDs,
			FirstSeen: now,
		})
		if b.dryRun {
			continue
		}

		if err := b.ledger.RecordSync(domain.SyncRecord{
			Key:      item.Key,
			Service:  service,
			Status:   domain.StatusSuccess,
			Title:    item.Title,
			Kind:     item.Kind,
			IDs:      item.IDs,
			SyncedAt: now,
		}); err != nil {
			return summary, err
		}

		if err := b.rememberSlug(item); err != nil {
			return summary, err
		}
	}

	if !b.dryRun && len(seen) > 0 {
		if err := b.ledger.MarkSeen(seen); err != nil {
			return summary, err
		}
	}

	b.logger.Info("baseline established",
		"total", summary.Total,
		"marked", summary.Marked,
		"already_synced", summary.AlreadySynced,
		"unconfigured", summary.Unconfigured,
		"dry_run", b.dryRun)
	return summary, nil
}

// rememberSlug stores an unresolved external-id entry for slug-only items so a
// later real sync can still resolve them without the baseline paying the scrape.
func (b *BaselineService) rememberSlug(item *domain.WatchlistItem) error {
	if item.SourceSlug == "" {
		return nil
	}
	existing, err := b.ledger.ExternalIDByItemID(item.SourceID)
	if err != nil || existing != nil {
		return err
	}
	return b.ledger.UpsertExternalID(domain.ExternalIDEntry{
		SourceItemID: item.SourceID,
		Slug:         item.SourceSlug,
		TMDBID:       item.IDs.TMDB,
		Title:        item.Title,
		Year:         item.Year,
	})
}
