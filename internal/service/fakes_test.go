package service

import (
	"context"
	"errors"
	"sync"

	"github.com/mmcdole/arrsync/internal/domain"
)

// memLedger is an in-memory domain.Ledger
type memLedger struct {
	mu       sync.Mutex
	records  map[string]domain.SyncRecord
	external map[string]domain.ExternalIDEntry
	slugs    map[string]string
	seen     map[string]domain.SeenEntry
	failWith error
}

func newMemLedger() *memLedger {
	return &memLedger{
		records:  make(map[string]domain.SyncRecord),
		external: make(map[string]domain.ExternalIDEntry),
		slugs:    make(map[string]string),
		seen:     make(map[string]domain.SeenEntry),
	}
}

func (l *memLedger) IsSynced(key, service string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return false, l.failWith
	}
	rec, ok := l.records[service+"|"+key]
	return ok && rec.Status == domain.StatusSuccess, nil
}

func (l *memLedger) RecordSync(rec domain.SyncRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return l.failWith
	}
	l.records[rec.Service+"|"+rec.Key] = rec
	return nil
}

func (l *memLedger) record(key, service string) (domain.SyncRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[service+"|"+key]
	return rec, ok
}

func (l *memLedger) ExternalIDByItemID(id string) (*domain.ExternalIDEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.external[id]
	if !ok || id == "" {
		return nil, nil
	}
	return &entry, nil
}

func (l *memLedger) ExternalIDBySlug(slug string) (*domain.ExternalIDEntry, error) {
	l.mu.Lock()
	id, ok := l.slugs[slug]
	l.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return l.ExternalIDByItemID(id)
}

func (l *memLedger) UpsertExternalID(entry domain.ExternalIDEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := entry.SourceItemID
	if id == "" {
		id = "slug:" + entry.Slug
	}
	l.external[id] = entry
	if entry.Slug != "" {
		l.slugs[entry.Slug] = id
	}
	return nil
}

func (l *memLedger) MarkSeen(entries []domain.SeenEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		if _, ok := l.seen[e.Key]; !ok {
			l.seen[e.Key] = e
		}
	}
	return nil
}

type addCall struct {
	IDs   domain.ProviderIDs
	Title string
	Year  int
}

// fakeDestination records Add calls and fails titles listed in failures
type fakeDestination struct {
	name     string
	calls    []addCall
	failures map[string]error
}

func newFakeDestination(name string) *fakeDestination {
	return &fakeDestination{name: name, failures: make(map[string]error)}
}

func (d *fakeDestination) Name() string                         { return d.name }
func (d *fakeDestination) TestConnection(context.Context) error { return nil }

func (d *fakeDestination) Add(_ context.Context, ids domain.ProviderIDs, title string, year int) (*domain.AddResult, error) {
	d.calls = append(d.calls, addCall{IDs: ids, Title: title, Year: year})
	if err, ok := d.failures[title]; ok {
		return nil, err
	}
	return &domain.AddResult{DisplayTitle: title}, nil
}

// fakeLookup resolves from a fixed table, keyed by the id it is given
type fakeLookup struct {
	configured bool
	movies     map[string]string // tvdb or imdb -> tmdb
	series     map[string]string // tmdb or imdb -> tvdb
	calls      int
}

func (f *fakeLookup) Configured() bool { return f.configured }

func (f *fakeLookup) Resolve(_ context.Context, ids domain.ProviderIDs, kind domain.MediaKind) domain.ProviderIDs {
	f.calls++
	if kind == domain.KindMovie {
		for _, k := range []string{ids.TVDB, ids.IMDB} {
			if v, ok := f.movies[k]; ok && k != "" {
				ids.TMDB = v
				return ids
			}
		}
		return ids
	}
	for _, k := range []string{ids.TMDB, ids.IMDB} {
		if v, ok := f.series[k]; ok && k != "" {
			ids.TVDB = v
			return ids
		}
	}
	return ids
}

// fakePages counts film page scrapes
type fakePages struct {
	ids   map[string]string
	err   error
	calls int
}

func (p *fakePages) ResolveTMDBID(_ context.Context, slug string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.ids[slug], nil
}

// recordingEmitter captures emitted events
type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Emit(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var errBoom = errors.New("boom")

func movie(key, title string, ids domain.ProviderIDs) *domain.WatchlistItem {
	return &domain.WatchlistItem{Key: key, Title: title, Kind: domain.KindMovie, IDs: ids, Source: "plex"}
}

func series(key, title string, ids domain.ProviderIDs) *domain.WatchlistItem {
	return &domain.WatchlistItem{Key: key, Title: title, Kind: domain.KindSeries, IDs: ids, Source: "plex"}
}
