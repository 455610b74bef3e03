package service

import (
	"context"
	"testing"

	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	ledger *memLedger
	radarr *fakeDestination
	sonarr *fakeDestination
	lookup *fakeLookup
	pages  *fakePages
	events *recordingEmitter
}

func newSyncFixture() *syncFixture {
	return &syncFixture{
		ledger: newMemLedger(),
		radarr: newFakeDestination("Radarr"),
		sonarr: newFakeDestination("Sonarr"),
		lookup: &fakeLookup{},
		pages:  &fakePages{ids: map[string]string{}},
		events: &recordingEmitter{},
	}
}

func (f *syncFixture) service(dryRun bool) *SyncService {
	resolver := NewResolver(f.ledger, f.lookup, f.pages, nil)
	dest := Destinations{Movies: f.radarr, Series: f.sonarr}
	return NewSyncService(f.ledger, resolver, dest, f.events, dryRun, nil)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newSyncFixture()
	svc := f.service(false)
	item := movie("k2", "The Matrix", domain.ProviderIDs{TMDB: "603"})

	first, err := svc.Sync(context.Background(), []*domain.WatchlistItem{item})
	require.NoError(t, err)
	assert.Equal(t, 1, first.MoviesAdded)

	second, err := svc.Sync(context.Background(), []*domain.WatchlistItem{item})
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.Equal(t, domain.StatusSkipped, second.Results[0].Status)
	assert.ErrorIs(t, second.Results[0].Err, domain.ErrAlreadySynced)
	assert.Equal(t, 1, second.Skipped)

	assert.Len(t, f.radarr.calls, 1)
}

func TestSyncForwardsKnownTMDBAndMarksSynced(t *testing.T) {
	f := newSyncFixture()
	svc := f.service(false)

	summary, err := svc.Sync(context.Background(), []*domain.WatchlistItem{
		movie("k2", "", domain.ProviderIDs{TMDB: "603"}),
	})
	require.NoError(t, err)

	require.Len(t, f.radarr.calls, 1)
	assert.Equal(t, "603", f.radarr.calls[0].IDs.TMDB)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, domain.StatusSuccess, summary.Results[0].Status)

	synced, err := f.ledger.IsSynced("k2", domain.ServiceRadarr)
	require.NoError(t, err)
	assert.True(t, synced)
}

func TestSyncMissingIdentifierRecordsFailure(t *testing.T) {
	f := newSyncFixture()
	svc := f.service(false)
	item := &domain.WatchlistItem{Key: "k1", Title: "Movie A", Year: 2020, Kind: domain.KindMovie}

	summary, err := svc.Sync(context.Background(), []*domain.WatchlistItem{item})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	result := summary.Results[0]
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.Message, "required for Radarr")
	assert.Contains(t, result.Message, "configure TMDB API key")
	assert.ErrorIs(t, result.Err, domain.ErrMissingIdentifier)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, f.radarr.calls)

	rec, ok := f.ledger.record("k1", domain.ServiceRadarr)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Empty(t, rec.IDs.TMDB)
	assert.Contains(t, rec.Error, "required for")
}

func TestSyncMissingIdentifierHintAfterFailedLookup(t *testing.T) {
	f := newSyncFixture()
	f.lookup.configured = true
	svc := f.service(false)

	summary, err := svc.Sync(context.Background(), []*domain.WatchlistItem{
		movie("m1", "Obscure", domain.ProviderIDs{IMDB: "tt000"}),
		series("s1", "Obscure Show", domain.ProviderIDs{IMDB: "tt001"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "No TMDB ID found - required for Radarr (TMDB lookup failed)", summary.Results[0].Message)
	assert.Equal(t, "No TVDB ID found - required for Sonarr (TMDB lookup failed)", summary.Results[1].Message)
	assert.Equal(t, 2, summary.Failed)
}

func TestSyncMissingIdentifierNamesKnownIDs(t *testing.T) {
	f := newSyncFixture()
	svc := f.service(false)

	summary, err := svc.Sync(context.Background(), []*domain.WatchlistItem{
		movie("m1", "The Matrix", domain.ProviderIDs{IMDB: "tt0133093"}),
		series("s1", "Severance", domain.ProviderIDs{TMDB: "95396"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "No TMDB ID found - only have IMDB tt0133093 - required for Radarr (configure TMDB API key to enable lookups)", summary.Results[0].Message)
	assert.Equal(t, "No TVDB ID found - only have TMDB 95396 - required for Sonarr (configure TMDB API key to enable lookups)", summary.Results[1].Message)
	assert.Zero(t, f.lookup.calls)
	assert.Equal(t, 2, summary.Failed)
}

func TestSyncDryRunDoesNotPersist(t *testing.T) {
	f := newSyncFixture()
	item := movie("k3", "Heat", domain.ProviderIDs{TMDB: "949"})

	summary, err := f.service(true).Sync(context.Background(), []*domain.WatchlistItem{item})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].Message, "[DRY RUN]")
	assert.Empty(t, f.radarr.calls)

	synced, err := f.ledger.IsSynced("k3", domain.ServiceRadarr)
	require.NoError(t, err)
	assert.False(t, synced)
	_, ok := f.ledger.record("k3", domain.ServiceRadarr)
	assert.False(t, ok)

	_, err = f.service(false).Sync(context.Background(), []*domain.WatchlistItem{item})
	require.NoError(t, err)
	assert.Len(t, f.radarr.calls, 1)
}

func TestSyncFailureIsolation(t *testing.T) {
	f := newSyncFixture()
	f.radarr.failures["Two"] = &domain.DestinationError{
		Kind:    domain.ErrTransport,
		Message: "Failed to add movie to Radarr: connection refused",
	}
	svc := f.service(false)

	summary, err := svc.Sync(context.Background(), []*domain.WatchlistItem{
		movie("1", "One", domain.ProviderIDs{TMDB: "1"}),
		movie("2", "Two", domain.ProviderIDs{TMDB: "2"}),
		movie("3", "Three", domain.ProviderIDs{TMDB: "3"}),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.MoviesAdded)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, "One", summary.Results[0].Item.Title)
	assert.Equal(t, domain.StatusSuccess, summary.Results[0].Status)
	assert.Equal(t, domain.StatusFailed, summary.Results[1].Status)
	assert.ErrorIs(t, summary.Results[1].Err, domain.ErrTransport)
	assert.Equal(t, domain.StatusSuccess, summary.Results[2].Status)

	rec, ok := f.ledger.record("2", domain.ServiceRadarr)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "connection refused")
}

func TestSyncFailedItemIsRetriedNextRun(t *testing.T) {
	f := newSyncFixture()
	f.radarr.failures["Flaky"] = &domain.DestinationError{Kind: domain.ErrDestinationRejected, Message: "Failed to add movie: bad path"}
	item := movie("f1", "Flaky", domain.ProviderIDs{TMDB: "5"})

	summary, err := f.service(false).Sync(context.Background(), []*domain.WatchlistItem{item})
	require.NoError(t, err)
	assert.ErrorIs(t, summary.Results[0].Err, domain.ErrDestinationRejected)

	delete(f.radarr.failures, "Flaky")
	summary, err = f.service(false).Sync(context.Background(), []*domain.WatchlistItem{item})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, summary.Results[0].Status)
	assert.Len(t, f.radarr.calls, 2)

	rec, _ := f.ledger.record("f1", domain.ServiceRadarr)
	assert.Equal(t, domain.StatusSuccess, rec.Status)
}

func TestSyncSkipsUnconfiguredDestination(t *testing.T) {
	f := newSyncFixture()
	resolver := NewResolver(f.ledger, nil, nil, nil)
	svc := NewSyncService(f.ledger, resolver, Destinations{Movies: f.radarr}, nil, false, nil)

	summary, err := svc.Sync(context.Background(), []*domain.WatchlistItem{
		series("s1", "Severance", domain.ProviderIDs{TVDB: "371980"}),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, summary.Results[0].Status)
	assert.ErrorIs(t, summary.Results[0].Err, domain.ErrDestinationNotConfigured)
	assert.Equal(t, "Sonarr not configured", summary.Results[0].Message)
	_, ok := f.ledger.record("s1", domain.ServiceSonarr)
	assert.False(t, ok)
}

func TestSyncAlreadySyncedMakesNoLookup(t *testing.T) {
	f := newSyncFixture()
	f.lookup.configured = true
	require.NoError(t, f.ledger.RecordSync(domain.SyncRecord{Key: "s1", Service: domain.ServiceSonarr, Status: domain.StatusSuccess}))

	_, err := f.service(false).Sync(context.Background(), []*domain.WatchlistItem{
		series("s1", "Severance", domain.ProviderIDs{IMDB: "tt11280740"}),
	})
	require.NoError(t, err)
	assert.Zero(t, f.lookup.calls)
	assert.Empty(t, f.sonarr.calls)
}

func TestSyncSeriesResolvedThroughLookup(t *testing.T) {
	f := newSyncFixture()
	f.lookup.configured = true
	f.lookup.series = map[string]string{"95396": "371980"}

	summary, err := f.service(false).Sync(context.Background(), []*domain.WatchlistItem{
		series("s1", "Severance", domain.ProviderIDs{TMDB: "95396"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ShowsAdded)
	require.Len(t, f.sonarr.calls, 1)
	assert.Equal(t, "371980", f.sonarr.calls[0].IDs.TVDB)

	rec, _ := f.ledger.record("s1", domain.ServiceSonarr)
	assert.Equal(t, "371980", rec.IDs.TVDB)
}

func TestSyncStorageFailureAborts(t *testing.T) {
	f := newSyncFixture()
	f.ledger.failWith = domain.ErrStorage

	summary, err := f.service(false).Sync(context.Background(), []*domain.WatchlistItem{
		movie("1", "One", domain.ProviderIDs{TMDB: "1"}),
		movie("2", "Two", domain.ProviderIDs{TMDB: "2"}),
	})
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, summary.Results)
	assert.Empty(t, f.radarr.calls)
	assert.Contains(t, f.events.names(), domain.EventSyncError)
}

func TestSyncEmitsCompletion(t *testing.T) {
	f := newSyncFixture()
	_, err := f.service(false).Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.EventSyncComplete}, f.events.names())
}
