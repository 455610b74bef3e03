package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

// Default poll intervals
const (
	DefaultPlexInterval       = 5 * time.Second
	DefaultLetterboxdInterval = 30 * time.Second
	defaultPollInterval       = 500 * time.Millisecond
)

// Syncer runs one orchestrator pass
type Syncer interface {
	Sync(ctx context.Context, items []*domain.WatchlistItem) (*domain.SyncSummary, error)
}

// TickReport describes one source pass inside follow mode
type TickReport struct {
	Source  string
	Initial bool
	At      time.Time
	Summary *domain.SyncSummary // nil when the fetch failed
	Err     error
}

type monitoredSource struct {
	source   domain.WatchlistSource
	interval time.Duration
	lastRun  time.Time
}

// Monitor re-polls each source on its own interval from a single
// goroutine, checking the timers every pollInterval.
type Monitor struct {
	syncer       Syncer
	sources      []*monitoredSource
	events       domain.EventEmitter
	forceRefresh bool
	onTick       func(TickReport)

	pollInterval time.Duration
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration)
	logger       *slog.Logger
}

// NewMonitor creates a follow-mode loop around syncer. events may be nil.
func NewMonitor(syncer Syncer, events domain.EventEmitter, forceRefresh bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = nopEmitter{}
	}
	return &Monitor{
		syncer:       syncer,
		events:       events,
		forceRefresh: forceRefresh,
		pollInterval: defaultPollInterval,
		now:          time.Now,
		sleep:        sleepContext,
		logger:       logger,
	}
}

// AddSource registers a source. A non-positive interval disables re-polling
// but the source still takes part in the initial sync.
func (m *Monitor) AddSource(src domain.WatchlistSource, interval time.Duration) {
	m.sources = append(m.sources, &monitoredSource{source: src, interval: interval})
}

// OnTick sets a callback invoked after every source pass
func (m *Monitor) OnTick(fn func(TickReport)) {
	m.onTick = fn
}

// Run performs the initial full sync and then polls until ctx is cancelled.
// Cancellation is only observed between passes; work in flight uses a
// context detached from ctx so a forward call is never cut off mid-item.
// Per-pass errors are logged; only storage failures end the loop.
func (m *Monitor) Run(ctx context.Context) error {
	if len(m.sources) == 0 {
		return fmt.Errorf("%w: no watchlist sources configured", domain.ErrConfiguration)
	}

	work := context.WithoutCancel(ctx)

	for _, src := range m.sources {
		if err := m.runSource(work, src, true); err != nil {
			return err
		}
		src.lastRun = m.now()
	}

	for {
		if ctx.Err() != nil {
			m.logger.Info("follow mode stopped")
			return nil
		}

		now := m.now()
		for _, src := range m.sources {
			if src.interval <= 0 || now.Sub(src.lastRun) < src.interval {
				continue
			}
			err := m.runSource(work, src, false)
			src.lastRun = now
			if err != nil {
				return err
			}
		}

		m.sleep(ctx, m.pollInterval)
	}
}

// runSource fetches and syncs one source. It returns an error only for
// storage failures.
func (m *Monitor) runSource(ctx context.Context, src *monitoredSource, initial bool) error {
	name := src.source.Name()
	report := TickReport{Source: name, Initial: initial, At: m.now()}

	items, err := src.source.FetchWatchlist(ctx, m.forceRefresh)
	if err != nil {
		m.events.Emit(ctx, domain.EventSyncError, map[string]any{
			"source": name,
			"error":  err.Error(),
		})
	} else {
		report.Summary, err = m.syncer.Sync(ctx, items)
	}

	if err != nil {
		report.Err = err
		m.logger.Error("follow pass failed", "source", name, "error", err)
	}

	if m.onTick != nil {
		m.onTick(report)
	}

	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
