package letterboxd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(nil)
	c.baseURL = srv.URL
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.baseDelay = time.Millisecond
	return c
}

const diaryFixture = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:letterboxd="https://letterboxd.com" xmlns:tmdb="https://themoviedb.org" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
<title>Letterboxd - alice</title>
<item>
  <title>Heat, 1995 - ★★★★½</title>
  <guid isPermaLink="false">letterboxd-review-1</guid>
  <letterboxd:watchedDate>2024-05-01</letterboxd:watchedDate>
  <letterboxd:rewatch>Yes</letterboxd:rewatch>
  <letterboxd:filmTitle>Heat</letterboxd:filmTitle>
  <letterboxd:filmYear>1995</letterboxd:filmYear>
  <letterboxd:memberRating>4.5</letterboxd:memberRating>
  <tmdb:movieId>949</tmdb:movieId>
</item>
<item>
  <title>Cats, 2019</title>
  <guid isPermaLink="false">letterboxd-review-2</guid>
  <letterboxd:filmTitle>Cats</letterboxd:filmTitle>
  <letterboxd:filmYear>2019</letterboxd:filmYear>
  <letterboxd:memberRating>1.0</letterboxd:memberRating>
  <tmdb:movieId>536869</tmdb:movieId>
</item>
<item>
  <title>Paprika, 2006</title>
  <guid isPermaLink="false">letterboxd-watch-3</guid>
  <letterboxd:filmTitle>Paprika</letterboxd:filmTitle>
  <letterboxd:filmYear>2006</letterboxd:filmYear>
  <tmdb:movieId>4977</tmdb:movieId>
</item>
<item>
  <title>My favourite list</title>
  <guid isPermaLink="false">letterboxd-list-9</guid>
</item>
</channel>
</rss>`

func TestFetchDiary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/alice/rss/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(diaryFixture))
	})
	c := newTestClient(t, mux)

	items, err := c.FetchDiary(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 3)

	heat := items[0]
	assert.Equal(t, "letterboxd-alice-letterboxd-review-1", heat.Key)
	assert.Equal(t, "Heat", heat.Title)
	assert.Equal(t, 1995, heat.Year)
	assert.Equal(t, "949", heat.IDs.TMDB)
	assert.InDelta(t, 4.5, heat.Rating, 0.001)
	assert.Equal(t, "Watched on 2024-05-01 (Rewatch)", heat.Summary)
	assert.Equal(t, domain.KindMovie, heat.Kind)
	assert.Equal(t, SourceName, heat.Source)

	assert.Zero(t, items[2].Rating)
}

func TestSourceMinRatingKeepsUnrated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/alice/rss/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(diaryFixture))
	})
	c := newTestClient(t, mux)

	src := NewSource(c, Options{Usernames: []string{"alice"}, Diary: true, MinRating: 3.5}, nil)
	assert.Equal(t, "letterboxd", src.Name())

	items, err := src.FetchWatchlist(context.Background(), false)
	require.NoError(t, err)

	var titles []string
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	assert.Equal(t, []string{"Heat", "Paprika"}, titles)

	unfiltered := NewSource(c, Options{Usernames: []string{"alice"}, Diary: true}, nil)
	all, err := unfiltered.FetchWatchlist(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func posterDiv(slug, name, filmID string) string {
	return fmt.Sprintf(`<li><div class="react-component" data-component-class="LazyPoster" data-item-slug="%s" data-item-name="%s" data-film-id="%s" data-item-link="/film/%s/"></div></li>`,
		slug, name, filmID, slug)
}

func TestFetchWatchlistPaginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bob/watchlist/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><div data-num-entries="3"><ul>%s%s</ul>
<div class="pagination"><div class="paginate-nextprev"><a class="next" href="/bob/watchlist/page/2/">Older</a></div></div>
</div></body></html>`,
			posterDiv("the-thing", "The Thing (1982)", "51"),
			posterDiv("alien", "Alien &amp; Co (1979)", "52"))
	})
	mux.HandleFunc("/bob/watchlist/page/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><ul>%s%s</ul></body></html>`,
			posterDiv("alien", "Alien &amp; Co (1979)", "52"),
			posterDiv("stalker", "Stalker", ""))
	})
	c := newTestClient(t, mux)

	items, err := c.FetchWatchlist(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "letterboxd-watchlist-bob-51", items[0].Key)
	assert.Equal(t, "The Thing", items[0].Title)
	assert.Equal(t, 1982, items[0].Year)
	assert.Equal(t, "51", items[0].SourceID)
	assert.Equal(t, "the-thing", items[0].SourceSlug)
	assert.True(t, items[0].IDs.Empty())

	assert.Equal(t, "Alien & Co", items[1].Title)

	assert.Equal(t, "letterboxd-watchlist-bob-stalker", items[2].Key, "slug stands in for a missing film id")
	assert.Zero(t, items[2].Year)
}

func TestFetchWatchlistNotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	_, err := c.FetchWatchlist(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveTMDBID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/film/heat-1995/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head></head><body class="film" data-tmdb-id="949" data-tmdb-type="movie"></body></html>`))
	})
	mux.HandleFunc("/film/no-id/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body class="film"></body></html>`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	id, err := c.ResolveTMDBID(ctx, "heat-1995")
	require.NoError(t, err)
	assert.Equal(t, "949", id)

	id, err = c.ResolveTMDBID(ctx, "no-id")
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = c.ResolveTMDBID(ctx, "missing")
	require.NoError(t, err, "404 is a definitive miss")
	assert.Empty(t, id)
}

func TestRetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0.001")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`<html><body data-tmdb-id="603"></body></html>`))
	}))

	id, err := c.ResolveTMDBID(context.Background(), "the-matrix")
	require.NoError(t, err)
	assert.Equal(t, "603", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.ResolveTMDBID(context.Background(), "the-matrix")
	assert.ErrorIs(t, err, domain.ErrConnectivity)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.FetchDiary(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrConnectivity)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryDelay(t *testing.T) {
	c := NewClient(nil)

	assert.Equal(t, 2*time.Second, c.retryDelay(0, &statusError{Code: 429, RetryAfter: 2 * time.Second}, nil))
	assert.Equal(t, requestInterval, c.retryDelay(0, &statusError{Code: 429, RetryAfter: time.Millisecond}, nil))
	assert.Equal(t, 2*requestInterval, c.retryDelay(1, &statusError{Code: 429}, nil))
}
