package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wanderplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeInput_All(t *testing.T) {
	var flat SummarizeInput
	require.NoError(t, json.Unmarshal([]byte(`{"reviews":[{"text":"a"}]}`), &flat))
	assert.Len(t, flat.All(), 1)

	var details SummarizeInput
	require.NoError(t, json.Unmarshal([]byte(`{"result":{"reviews":[{"text":"a"},{"text":"b"}]},"status":"OK"}`), &details))
	assert.Len(t, details.All(), 2)

	assert.Empty(t, SummarizeInput{}.All())
}

func placeIDParam(r *http.Request) string {
	if id := r.URL.Query().Get("placeid"); id != "" {
		return id
	}
	return r.URL.Query().Get("place_id")
}

func TestPlaceDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/details/json", r.URL.Path)
		assert.Equal(t, "ChIJ123", placeIDParam(r))
		assert.Equal(t, "reviews", r.URL.Query().Get("fields"))
		assert.Equal(t, "gkey", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":{"reviews":[{"author_name":"Lea","rating":5,"text":"Lovely","time":1717200000}]},"status":"OK"}`)
	}))
	defer srv.Close()

	svc := NewService(Config{GoogleAPIKey: "gkey", GoogleMapsURL: srv.URL + "/"})
	details, err := svc.PlaceDetails(context.Background(), " ChIJ123 ")
	require.NoError(t, err)
	assert.Equal(t, "OK", details.Status)
	require.Len(t, details.Result.Reviews, 1)
	assert.Equal(t, Review{AuthorName: "Lea", Rating: 5, Text: "Lovely", Time: 1717200000}, details.Result.Reviews[0])

	// The body feeds straight back into the summarizer.
	raw, err := json.Marshal(details)
	require.NoError(t, err)
	var in SummarizeInput
	require.NoError(t, json.Unmarshal(raw, &in))
	assert.Len(t, in.All(), 1)
}

func TestPlaceDetails_Errors(t *testing.T) {
	svc := NewService(Config{GoogleAPIKey: "gkey", GoogleMapsURL: "http://unused"})
	_, err := svc.PlaceDetails(context.Background(), "  ")
	assert.Equal(t, http.StatusBadRequest, models.StatusFor(err))

	_, err = NewService(Config{}).PlaceDetails(context.Background(), "x")
	assert.Equal(t, http.StatusBadRequest, models.StatusFor(err))

	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`)
	}))
	defer denied.Close()

	svc = NewService(Config{GoogleAPIKey: "gkey", GoogleMapsURL: denied.URL})
	_, err = svc.PlaceDetails(context.Background(), "x")
	assert.Equal(t, http.StatusBadGateway, models.StatusFor(err))
}

func TestSummarize(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "mkey", r.Header.Get("x-goog-api-key"))

		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.Unmarshal(raw, &req))
		require.NotEmpty(t, req.Contents)
		prompt = req.Contents[0].Parts[0].Text

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Great coffee, "},{"text":"slow service. "}]}}]}`)
	}))
	defer srv.Close()

	svc := NewService(Config{
		GeminiAPIKey:  "mkey",
		GeminiModel:   "gemini-test",
		GeminiBaseURL: srv.URL + "/",
	})
	in := SummarizeInput{Reviews: []Review{{Text: "Great coffee"}, {Text: "Service was slow"}}}
	out, err := svc.Summarize(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Great coffee, slow service.", out.Summary)
	assert.Equal(t, 2, out.ReviewCount)
	assert.True(t, strings.HasPrefix(prompt, "Summarize these Google Maps reviews"))
	assert.True(t, strings.HasSuffix(prompt, "Great coffee\n\nService was slow"))
}

func TestSummarize_NoReviews(t *testing.T) {
	svc := NewService(Config{GeminiAPIKey: "k"})
	_, err := svc.Summarize(context.Background(), SummarizeInput{})
	assert.Equal(t, http.StatusBadRequest, models.StatusFor(err))

	_, err = NewService(Config{}).Summarize(context.Background(), SummarizeInput{Reviews: []Review{{Text: "ok"}}})
	assert.Equal(t, http.StatusBadRequest, models.StatusFor(err))
}

func TestSummarize_GeminiFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	svc := NewService(Config{GeminiAPIKey: "k", GeminiModel: "m", GeminiBaseURL: srv.URL + "/"})
	_, err := svc.Summarize(context.Background(), SummarizeInput{Reviews: []Review{{Text: "ok"}}})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, models.StatusFor(err))

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.NotContains(t, appErr.Message, "quota")
}

func TestSummarize_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	svc := NewService(Config{GeminiAPIKey: "k", GeminiModel: "m", GeminiBaseURL: srv.URL + "/", Timeout: time.Second})
	_, err := svc.Summarize(context.Background(), SummarizeInput{Reviews: []Review{{Text: "ok"}}})
	assert.Equal(t, http.StatusBadGateway, models.StatusFor(err))
}

func TestSummarize_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	svc := NewService(Config{GeminiAPIKey: "k", GeminiModel: "m", GeminiBaseURL: srv.URL + "/", Timeout: 50 * time.Millisecond})
	_, err := svc.Summarize(context.Background(), SummarizeInput{Reviews: []Review{{Text: "ok"}}})
	assert.Equal(t, http.StatusGatewayTimeout, models.StatusFor(err))
}
