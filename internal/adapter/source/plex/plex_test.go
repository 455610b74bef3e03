package plex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("tok", "client-1", nil)
	c.baseURL = srv.URL
	return c
}

func writeContainer(t *testing.T, w http.ResponseWriter, mc MediaContainer) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(APIResponse{MediaContainer: mc}))
}

func TestParseGuids(t *testing.T) {
	ids := ParseGuids([]string{"imdb://tt0133093", "tmdb://603", "tvdb://169", "tmdb://999"})
	assert.Equal(t, domain.ProviderIDs{TMDB: "603", TVDB: "169", IMDB: "tt0133093"}, ids)

	assert.True(t, ParseGuids([]string{"plex://movie/5d776"}).Empty())
}

func TestMapWatchlistDropsUnsupportedTypes(t *testing.T) {
	items := MapWatchlist([]Metadata{
		{RatingKey: "1", Type: "movie", Title: "The Matrix", Year: 1999, Guids: []Guid{{ID: "tmdb://603"}}, Genres: []Tag{{Tag: "Action"}}},
		{RatingKey: "2", Type: "show", Title: "Breaking Bad", Guids: []Guid{{ID: "tvdb://81189"}}},
		{RatingKey: "3", Type: "episode", Title: "Pilot"},
		{Type: "movie", Title: "No key"},
	})

	require.Len(t, items, 2)
	assert.Equal(t, domain.KindMovie, items[0].Kind)
	assert.Equal(t, "603", items[0].IDs.TMDB)
	assert.Equal(t, SourceName, items[0].Source)
	assert.Equal(t, []string{"Action"}, items[0].Genres)
	assert.Equal(t, domain.KindSeries, items[1].Kind)
	assert.Equal(t, "81189", items[1].IDs.TVDB)
}

func TestGetWatchlistPages(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/library/sections/watchlist/all", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-Plex-Token"))
		assert.Equal(t, "client-1", r.Header.Get("X-Plex-Client-Identifier"))

		start, _ := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Start"))
		size, _ := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Size"))
		assert.Equal(t, watchlistPageSize, size)
		assert.Equal(t, "1", r.URL.Query().Get("includeGuids"))

		total := 60
		var page []Metadata
		for i := start; i < min(start+size, total); i++ {
			page = append(page, Metadata{RatingKey: strconv.Itoa(i), Type: "movie", Title: "m"})
		}
		writeContainer(t, w, MediaContainer{Size: len(page), TotalSize: total, Metadata: page})
	})

	all, err := c.GetWatchlist(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 60)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAuthStatusMapping(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		err := c.Ping(context.Background())
		assert.ErrorIs(t, err, domain.ErrAuthFailed, "status %d", status)
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	assert.ErrorIs(t, c.Ping(context.Background()), domain.ErrConnectivity)
}

func TestConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient("tok", "client-1", nil)
	c.baseURL = srv.URL
	_, err := c.GetWatchlist(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestGetMetadataBatches(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		keys := strings.Split(strings.TrimPrefix(r.URL.Path, "/library/metadata/"), ",")
		var md []Metadata
		for _, k := range keys {
			md = append(md, Metadata{RatingKey: k, Type: "movie", Guids: []Guid{{ID: "tmdb://" + k}}})
		}
		writeContainer(t, w, MediaContainer{Size: len(md), Metadata: md})
	})

	keys := make([]string, 25)
	for i := range keys {
		keys[i] = strconv.Itoa(i + 1)
	}

	got, err := c.GetMetadata(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, got, 25)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 2)
	assert.Equal(t, 20, len(strings.Split(strings.TrimPrefix(paths[0], "/library/metadata/"), ",")))
	assert.Equal(t, "/library/metadata/21,22,23,24,25", paths[1])
}

type memCache struct {
	entries     map[string]domain.MetadataEntry
	sets        int
	staleChecks int
}

func (m *memCache) IsMetadataStale(key string, maxAge time.Duration) (bool, error) {
	m.staleChecks++
	e, ok := m.entries[key]
	return !ok || e.Stale(time.Now(), maxAge), nil
}

func (m *memCache) GetMetadata(keys []string) (map[string]domain.MetadataEntry, error) {
	out := make(map[string]domain.MetadataEntry)
	for _, k := range keys {
		if e, ok := m.entries[k]; ok {
			out[k] = e
		}
	}
	return out, nil
}

func (m *memCache) SetMetadata(blobs map[string]json.RawMessage) error {
	m.sets++
	for k, v := range blobs {
		m.entries[k] = domain.MetadataEntry{Key: k, Data: v, CachedAt: time.Now()}
	}
	return nil
}

func TestSourceEnrichesAndCaches(t *testing.T) {
	var detailCalls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/library/metadata/") {
			detailCalls.Add(1)
			writeContainer(t, w, MediaContainer{Size: 1, Metadata: []Metadata{
				{RatingKey: "m1", Type: "movie", Title: "The Matrix", Year: 1999, Guids: []Guid{{ID: "tmdb://603"}, {ID: "imdb://tt0133093"}}},
			}})
			return
		}
		writeContainer(t, w, MediaContainer{Size: 2, TotalSize: 2, Metadata: []Metadata{
			{RatingKey: "m1", Type: "movie", Title: "The Matrix"},
			{RatingKey: "s1", Type: "show", Title: "Severance", Guids: []Guid{{ID: "tvdb://371980"}}},
		}})
	})

	cache := &memCache{entries: map[string]domain.MetadataEntry{}}
	src := NewSource(c, cache, time.Hour, nil)
	assert.Equal(t, "plex", src.Name())

	items, err := src.FetchWatchlist(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "603", items[0].IDs.TMDB)
	assert.Equal(t, 1999, items[0].Year)
	assert.Equal(t, "371980", items[1].IDs.TVDB)
	assert.Equal(t, int32(1), detailCalls.Load())
	assert.Contains(t, cache.entries, "m1")

	// second run is served from the cache
	_, err = src.FetchWatchlist(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), detailCalls.Load())

	// force refresh bypasses it
	_, err = src.FetchWatchlist(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), detailCalls.Load())
}

func TestSourceRefetchesStaleMetadata(t *testing.T) {
	var detailCalls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/library/metadata/") {
			detailCalls.Add(1)
			writeContainer(t, w, MediaContainer{Metadata: []Metadata{
				{RatingKey: "m1", Type: "movie", Title: "Heat", Guids: []Guid{{ID: "tmdb://949"}}},
			}})
			return
		}
		writeContainer(t, w, MediaContainer{Size: 1, TotalSize: 1, Metadata: []Metadata{{RatingKey: "m1", Type: "movie", Title: "Heat"}}})
	})

	old, _ := json.Marshal(Metadata{RatingKey: "m1", Type: "movie", Title: "Heat", Guids: []Guid{{ID: "tmdb://1"}}})
	cache := &memCache{entries: map[string]domain.MetadataEntry{
		"m1": {Key: "m1", Data: old, CachedAt: time.Now().Add(-48 * time.Hour)},
	}}

	items, err := NewSource(c, cache, 24*time.Hour, nil).FetchWatchlist(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "949", items[0].IDs.TMDB)
	assert.Equal(t, int32(1), detailCalls.Load())
	assert.Equal(t, 1, cache.staleChecks)
	assert.Equal(t, 1, cache.sets)
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
<title>Watchlist</title>
<item>
  <title>The Matrix (1999)</title>
  <guid isPermaLink="false">tmdb://603</guid>
  <category>movie</category>
  <description>A hacker learns the truth.</description>
  <media:keywords>Action, Science Fiction</media:keywords>
  <media:rating scheme="urn:mpaa">R</media:rating>
</item>
<item>
  <title>Severance (2022)</title>
  <guid isPermaLink="false">tvdb://371980</guid>
  <category>show</category>
</item>
<item>
  <title>Some Clip</title>
  <guid isPermaLink="false">plex://clip/1</guid>
  <category>clip</category>
</item>
</channel>
</rss>`

func TestRSSSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feed-id", r.URL.Path)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	feed := NewRSSFeed("feed-id", nil)
	feed.url = srv.URL + "/feed-id"

	items, err := NewRSSSource(feed, nil).FetchWatchlist(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, items, 2)

	movie := items[0]
	assert.Equal(t, "tmdb_603", movie.Key)
	assert.Equal(t, "The Matrix", movie.Title)
	assert.Equal(t, 1999, movie.Year)
	assert.Equal(t, domain.KindMovie, movie.Kind)
	assert.Equal(t, "603", movie.IDs.TMDB)
	assert.Equal(t, []string{"Action", "Science Fiction"}, movie.Genres)
	assert.Equal(t, "R", movie.ContentRating)

	show := items[1]
	assert.Equal(t, "tvdb_371980", show.Key)
	assert.Equal(t, domain.KindSeries, show.Kind)
	assert.Equal(t, "371980", show.IDs.TVDB)
}

func TestSplitTitleYear(t *testing.T) {
	title, year := splitTitleYear("Blade Runner 2049 (2017)")
	assert.Equal(t, "Blade Runner 2049", title)
	assert.Equal(t, 2017, year)

	title, year = splitTitleYear("Untitled")
	assert.Equal(t, "Untitled", title)
	assert.Zero(t, year)
}

func TestPINFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/pins", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client-1", r.Header.Get("X-Plex-Client-Identifier"))
		assert.Equal(t, "false", r.URL.Query().Get("strong"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(PINResponse{ID: 42, Code: "ABCD"})
	})
	mux.HandleFunc("GET /api/v2/pins/42", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(PINCheckResponse{ID: 42, AuthToken: "new-token"})
	})
	mux.HandleFunc("GET /api/v2/pins/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/v2/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != "new-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(UserResponse{ID: 1, Username: "alice"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewAuthClient("client-1", nil)
	a.baseURL = srv.URL
	ctx := context.Background()

	pin, id, err := a.GetPIN(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", pin)
	assert.Equal(t, 42, id)

	token, claimed, err := a.CheckPIN(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "new-token", token)

	_, _, err = a.CheckPIN(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrPINExpired)

	user, err := a.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = a.ValidateToken(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}
