package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

// Destinations bundles the destination adapters configured for a run.
// A nil handle means that media kind has nowhere to go.
type Destinations struct {
	Movies domain.Destination
	Series domain.Destination
}

// For returns the destination that accepts kind, or nil
func (d Destinations) For(kind domain.MediaKind) domain.Destination {
	if kind == domain.KindSeries {
		return d.Series
	}
	return d.Movies
}

// SyncService drives one pass of watchlist items to the destinations.
// Items are processed sequentially; a per-item failure never aborts the pass.
type SyncService struct {
	ledger   domain.Ledger
	resolver *Resolver
	dest     Destinations
	events   domain.EventEmitter
	dryRun   bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewSyncService creates the orchestrator. events may be nil.
func NewSyncService(ledger domain.Ledger, resolver *Resolver, dest Destinations, events domain.EventEmitter, dryRun bool, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = nopEmitter{}
	}
	return &SyncService{
		ledger:   ledger,
		resolver: resolver,
		dest:     dest,
		events:   events,
		dryRun:   dryRun,
		now:      time.Now,
		logger:   logger,
	}
}

// Sync processes items in order. The returned error is a storage failure,
// in which case the summary holds the results produced before it.
func (s *SyncService) Sync(ctx context.Context, items []*domain.WatchlistItem) (*domain.SyncSummary, error) {
	summary := &domain.SyncSummary{Total: len(items)}

	for _, item := range items {
		result, err := s.syncItem(ctx, item)
		if err != nil {
			s.events.Emit(ctx, domain.EventSyncError, map[string]any{"error": err.Error()})
			return summary, err
		}

		summary.Results = append(summary.Results, result)
		switch result.Status {
		case domain.StatusSuccess:
			if item.Kind == domain.KindSeries {
				summary.ShowsAdded++
			} else {
				summary.MoviesAdded++
			}
		case domain.StatusFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	s.logger.Info("sync pass complete",
		"total", summary.Total,
		"movies_added", summary.MoviesAdded,
		"shows_added", summary.ShowsAdded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"dry_run", s.dryRun)

	s.events.Emit(ctx, domain.EventSyncComplete, map[string]any{
		"total":        summary.Total,
		"movies_added": summary.MoviesAdded,
		"shows_added":  summary.ShowsAdded,
		"skipped":      summary.Skipped,
		"failed":       summary.Failed,
		"dry_run":      s.dryRun,
	})
	return summary, nil
}

func (s *SyncService) syncItem(ctx context.Context, item *domain.WatchlistItem) (domain.SyncResult, error) {
	service := domain.ServiceFor(item.Kind)
	name := domain.ServiceDisplayName(service)
	result := domain.SyncResult{Item: item, Service: service}

	dest := s.dest.For(item.Kind)
	if dest == nil {
		result.Status = domain.StatusSkipped
		result.Message = fmt.Sprintf("%s not configured", name)
		result.Err = domain.ErrDestinationNotConfigured
		return result, nil
	}

	synced, err := s.ledger.IsSynced(item.Key, service)
	if err != nil {
		return result, err
	}
	if synced {
		result.Status = domain.StatusSkipped
		result.Message = fmt.Sprintf("Already synced to %s", name)
		result.Err = domain.ErrAlreadySynced
		return result, nil
	}

	resolution, err := s.resolver.Resolve(ctx, item)
	if err != nil {
		return result, err
	}
	if !resolution.OK {
		result.Status = domain.StatusFailed
		result.Message = resolution.Hint
		result.Err = domain.ErrMissingIdentifier
		s.logger.Warn("identifier missing", "key", item.Key, "title", item.Title, "hint", resolution.Hint)
		return result, s.record(item, service, domain.StatusFailed, resolution.Hint)
	}

	if s.dryRun {
		result.Status = domain.StatusSuccess
		result.Message = fmt.Sprintf("[DRY RUN] Would add to %s: %s", name, item.DisplayTitle())
		return result, nil
	}

	added, err := dest.Add(ctx, item.IDs, item.Title, item.Year)
	if err != nil {
		result.Status = domain.StatusFailed
		result.Message = err.Error()
		result.Err = classifyDestinationError(err)
		s.logger.Error("destination add failed", "key", item.Key, "service", service, "error", err)
		return result, s.record(item, service, domain.StatusFailed, err.Error())
	}

	result.Status = domain.StatusSuccess
	if added.AlreadyExisted {
		result.Message = fmt.Sprintf("Already exists in %s: %s", name, added.DisplayTitle)
	} else {
		result.Message = fmt.Sprintf("Added to %s: %s", name, added.DisplayTitle)
	}
	s.logger.Info("item synced", "key", item.Key, "service", service, "title", added.DisplayTitle, "existed", added.AlreadyExisted)
	return result, s.record(item, service, domain.StatusSuccess, "")
}

func (s *SyncService) record(item *domain.WatchlistItem, service string, status domain.SyncStatus, errText string) error {
	return s.ledger.RecordSync(domain.SyncRecord{
		Key:      item.Key,
		Service:  service,
		Status:   status,
		Title:    item.Title,
		Kind:     item.Kind,
		IDs:      item.IDs,
		SyncedAt: s.now(),
		Error:    errText,
	})
}

// classifyDestinationError maps an adapter error onto the sync taxonomy.
// Anything not explicitly rejected by the service counts as transport.
func classifyDestinationError(err error) error {
	if errors.Is(err, domain.ErrDestinationRejected) {
		return domain.ErrDestinationRejected
	}
	return domain.ErrTransport
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, map[string]any) {}
