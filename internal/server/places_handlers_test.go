package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wanderplan/internal/places"
	"wanderplan/internal/reviews"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPlaces(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google_local", r.URL.Query().Get("engine"))
		assert.Equal(t, "2000", r.URL.Query().Get("radius"))
		assert.Equal(t, "server-key", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"local_results":[{"place_id":"x","title":"Bakery","gps_coordinates":{"latitude":38.7,"longitude":-9.1}}]}`)
	}))
	defer upstream.Close()

	_, app := newTestApp(t, Deps{Places: places.NewClient(upstream.URL, "server-key", time.Second)})

	status, body := doJSON(t, app, http.MethodGet,
		"/api/places/search?type=search&q=bakery&ll=@38.7,-9.1,14z&radius=2&api_key=leak", "", nil)
	require.Equal(t, http.StatusOK, status, body)
	list := body["places"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Bakery", list[0].(map[string]any)["title"])
}

func TestSearchPlaces_NotConfigured(t *testing.T) {
	_, app := newTestApp(t, Deps{})
	status, body := doJSON(t, app, http.MethodGet, "/api/places/search?q=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SerpApi key is required", body["error"])
}

func TestReviews(t *testing.T) {
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"reviews":[{"text":"Great pastries"}]},"status":"OK"}`)
	}))
	defer google.Close()
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Loved for pastries."}]}}]}`)
	}))
	defer gemini.Close()

	svc := reviews.NewService(reviews.Config{
		GoogleAPIKey:  "g",
		GoogleMapsURL: google.URL,
		GeminiAPIKey:  "m",
		GeminiModel:   "gemini-test",
		GeminiBaseURL: gemini.URL + "/",
	})
	_, app := newTestApp(t, Deps{Reviews: svc})

	status, body := doJSON(t, app, http.MethodGet, "/api/reviews?place_id=abc", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])
	result := body["result"].(map[string]any)
	require.Len(t, result["reviews"], 1)

	status, _ = doJSON(t, app, http.MethodGet, "/api/reviews", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/reviews/summarize", "", map[string]any{
		"result": map[string]any{"reviews": []map[string]string{{"text": "Great pastries"}}},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Loved for pastries.", body["summary"])
	assert.Equal(t, float64(1), body["review_count"])

	status, body = doJSON(t, app, http.MethodPost, "/api/reviews/summarize", "", map[string]any{"reviews": []any{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No reviews found in JSON", body["error"])
}

func TestSummarizeReviews_FlagOff(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "review_summaries=off"
	_, app := newTestAppWithConfig(t, cfg, Deps{Reviews: reviews.NewService(reviews.Config{GeminiAPIKey: "m"})})

	status, body := doJSON(t, app, http.MethodPost, "/api/reviews/summarize", "", map[string]any{
		"reviews": []map[string]string{{"text": "ok"}},
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Review summaries are disabled", body["error"])
}
