// Package reviews fetches Google place reviews and summarizes them with Gemini.
package reviews

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/observability"

	"google.golang.org/genai"
	"googlemaps.github.io/maps"
)

const (
	googleService    = "google_places"
	geminiService    = "gemini"
	defaultTimeout   = 30 * time.Second
	geminiAPIVersion = "v1beta"

	summaryPrompt = "Summarize these Google Maps reviews in a few short sentences. " +
		"Focus only on the main opinions, strengths, weaknesses, and recurring themes. " +
		"Keep it concise and clear, no more than 40 words:\n\n"
)

// Review is one Google review. Only Text feeds the summary.
type Review struct {
	AuthorName string  `json:"author_name,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	Text       string  `json:"text"`
	Time       int64   `json:"time,omitempty"`
}

// SummarizeInput accepts either {reviews: [...]} or a Place Details body
// {result: {reviews: [...]}}.
type SummarizeInput struct {
	Reviews []Review `json:"reviews"`
	Result  *struct {
		Reviews []Review `json:"reviews"`
	} `json:"result"`
}

// All returns the top-level reviews, falling back to result.reviews.
func (in SummarizeInput) All() []Review {
	if len(in.Reviews) > 0 {
		return in.Reviews
	}
	if in.Result != nil {
		return in.Result.Reviews
	}
	return nil
}

// Details mirrors the Place Details body restricted to reviews, so it can
// be posted back to Summarize unchanged.
type Details struct {
	Result DetailsResult `json:"result"`
	Status string        `json:"status"`
}

// DetailsResult holds the reviews of one place.
type DetailsResult struct {
	PlaceID string   `json:"place_id"`
	Reviews []Review `json:"reviews"`
}

// Summary is the summarizer response.
type Summary struct {
	Summary     string `json:"summary"`
	ReviewCount int    `json:"review_count"`
}

// Config wires the upstream endpoints. The base URLs are only overridden
// in tests and for proxies.
type Config struct {
	GoogleAPIKey  string
	GoogleMapsURL string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Service talks to Google Place Details and Gemini.
type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.GoogleMapsURL = strings.TrimRight(cfg.GoogleMapsURL, "/")
	return &Service{cfg: cfg}
}

func (s *Service) mapsClient() (*maps.Client, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(s.cfg.GoogleAPIKey), maps.WithHTTPClient(s.cfg.HTTPClient)}
	if s.cfg.GoogleMapsURL != "" {
		opts = append(opts, maps.WithBaseURL(s.cfg.GoogleMapsURL))
	}
	return maps.NewClient(opts...)
}

// PlaceDetails returns the reviews Google holds for placeID.
func (s *Service) PlaceDetails(ctx context.Context, placeID string) (out *Details, err error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, models.NewValidationError("place_id missing")
	}
	if s.cfg.GoogleAPIKey == "" {
		return nil, models.NewValidationError("Google API key is required")
	}

	ctx, span := observability.StartClientSpan(ctx, googleService, "place_details")
	defer func() { observability.EndSpan(span, err) }()

	client, err := s.mapsClient()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	start := time.Now()
	res, err := client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  []maps.PlaceDetailsFieldMask{maps.PlaceDetailsFieldMaskReviews},
	})
	observability.UpstreamLatency.WithLabelValues(googleService).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, upstreamError("Google Places", err)
	}
	observability.UpstreamRequests.WithLabelValues(googleService, "ok").Inc()

	reviews := make([]Review, 0, len(res.Reviews))
	for _, r := range res.Reviews {
		reviews = append(reviews, Review{
			AuthorName: r.AuthorName,
			Rating:     float64(r.Rating),
			Text:       r.Text,
			Time:       int64(r.Time),
		})
	}
	return &Details{Result: DetailsResult{PlaceID: placeID, Reviews: reviews}, Status: "OK"}, nil
}

func (s *Service) geminiClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     s.cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    s.cfg.GeminiBaseURL,
			APIVersion: geminiAPIVersion,
		},
	})
}

// Summarize asks Gemini for a short summary of the review texts.
func (s *Service) Summarize(ctx context.Context, in SummarizeInput) (out *Summary, err error) {
	reviews := in.All()
	if len(reviews) == 0 {
		return nil, models.NewValidationError("No reviews found in JSON")
	}
	if s.cfg.GeminiAPIKey == "" {
		return nil, models.NewValidationError("Gemini API key is required")
	}

	ctx, span := observability.StartClientSpan(ctx, geminiService, "generate_content")
	defer func() { observability.EndSpan(span, err) }()

	client, err := s.geminiClient(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		texts = append(texts, r.Text)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, s.cfg.GeminiModel,
		genai.Text(summaryPrompt+strings.Join(texts, "\n\n")), nil)
	observability.UpstreamLatency.WithLabelValues(geminiService).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, upstreamError("Gemini", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		observability.UpstreamRequests.WithLabelValues(geminiService, "error").Inc()
		return nil, models.NewUpstreamError("Gemini", errors.New("empty completion"))
	}
	observability.UpstreamRequests.WithLabelValues(geminiService, "ok").Inc()

	middleware.Logger.InfoContext(ctx, "reviews summarized", slog.Int("review_count", len(reviews)))
	return &Summary{Summary: text, ReviewCount: len(reviews)}, nil
}

func upstreamError(service string, err error) error {
	label := strings.ToLower(strings.ReplaceAll(service, " ", "_"))
	if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
		observability.UpstreamRequests.WithLabelValues(label, "timeout").Inc()
		return models.NewTimeoutError(service, err)
	}
	observability.UpstreamRequests.WithLabelValues(label, "error").Inc()
	return models.NewUpstreamError(service, err)
}

func isClientTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
