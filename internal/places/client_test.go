package places

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"wanderplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParams(t *testing.T) {
	t.Run("local search rewrite", func(t *testing.T) {
		q := url.Values{
			"type":    {"search"},
			"q":       {"restaurant"},
			"ll":      {"@40.7128,-74.0060,14z"},
			"radius":  {"5"},
			"api_key": {"caller-key"},
		}
		p := BuildParams(q, "server-key")

		assert.Equal(t, "google_local", p.Get("engine"))
		assert.False(t, p.Has("type"))
		assert.Equal(t, "5000", p.Get("radius"))
		assert.Equal(t, "server-key", p.Get("api_key"))
		assert.Equal(t, "restaurant", p.Get("q"))
	})

	t.Run("large radius left as meters", func(t *testing.T) {
		p := BuildParams(url.Values{"type": {"search"}, "ll": {"1,2"}, "radius": {"800"}}, "k")
		assert.Equal(t, "800", p.Get("radius"))
	})

	t.Run("fractional km truncated", func(t *testing.T) {
		p := BuildParams(url.Values{"type": {"search"}, "ll": {"1,2"}, "radius": {"1.5"}}, "k")
		assert.Equal(t, "1500", p.Get("radius"))
	})

	t.Run("no ll keeps type", func(t *testing.T) {
		p := BuildParams(url.Values{"type": {"search"}, "radius": {"5"}}, "k")
		assert.Equal(t, "search", p.Get("type"))
		assert.Equal(t, "5", p.Get("radius"))
		assert.False(t, p.Has("engine"))
	})
}

func TestSearch_NormalizesLocalResults(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"search_metadata": {"id": "abc", "status": "Success"},
			"search_parameters": {"engine": "google_local"},
			"results": [
				{"place_id": "p1", "title": "Cafe", "latitude": 48.85, "longitude": 2.35, "rating": "4.5", "review_count": 120, "thumbnail": "https://img/1.jpg"},
				{"name": "Museum", "gps_coordinates": {"latitude": 48.86, "longitude": 2.33}, "snippet": "Art"},
				{"title": "Nowhere"}
			],
			"local_results": [{"title": "ignored", "lat": 1, "lng": 1}]
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	res, err := c.Search(context.Background(), url.Values{"q": {"cafe"}, "api_key": {"mine"}})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotQuery.Get("api_key"))
	require.Len(t, res.Places, 2)

	cafe := res.Places[0]
	assert.Equal(t, "p1", cafe.PlaceID)
	assert.Equal(t, 4.5, cafe.Rating)
	assert.Equal(t, 120, cafe.ReviewCount)
	assert.Equal(t, "https://img/1.jpg", cafe.Image)

	museum := res.Places[1]
	assert.Equal(t, "Museum", museum.Title)
	assert.Equal(t, "Art", museum.Description)
	assert.InDelta(t, 48.86, museum.Latitude, 1e-9)
	assert.Equal(t, "abc", res.SearchMetadata["id"])
	assert.Equal(t, "google_local", res.SearchParameters["engine"])
}

func TestSearch_FallsBackToOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"organic_results": [{"title": "Guide", "link": "https://guide", "coordinates": {"latitude": "10.5", "longitude": "20.25"}}]}`)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "k", time.Second).Search(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "https://guide", res.Places[0].PlaceID)
	assert.Equal(t, "https://guide", res.Places[0].Website)
	assert.Equal(t, 20.25, res.Places[0].Longitude)
	assert.NotNil(t, res.SearchMetadata)
}

func TestSearch_MissingKey(t *testing.T) {
	_, err := NewClient("http://unused", "", time.Second).Search(context.Background(), url.Values{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, models.StatusFor(err))
}

func TestSearch_RetriesTimeoutOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 50*time.Millisecond, WithRetryDelay(time.Millisecond))
	_, err := c.Search(context.Background(), url.Values{})
	require.Error(t, err)

	assert.Equal(t, int32(maxAttempts), calls.Load())
	assert.Equal(t, http.StatusGatewayTimeout, models.StatusFor(err))
}

func TestSearch_SecondAttemptSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-r.Context().Done():
			}
			return
		}
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 50*time.Millisecond, WithRetryDelay(time.Millisecond))
	res, err := c.Search(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.Empty(t, res.Places)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_UpstreamErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).Search(context.Background(), url.Values{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusBadGateway, models.StatusFor(err))
}

func TestNormalize_SkipsZeroCoordinates(t *testing.T) {
	out := Normalize([]any{
		map[string]any{"title": "a", "latitude": 0.0, "longitude": 2.0},
		map[string]any{"title": "b", "lat": "bad", "lng": 3.0},
		"not an object",
		map[string]any{"title": "c", "lat": 1.0, "lng": 2.0, "phone": 5551234.0},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].Title)
	assert.Equal(t, "5551234", out[0].Phone)
}
