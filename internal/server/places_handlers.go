package server

import (
	"net/url"

	"wanderplan/internal/featureflags"
	"wanderplan/internal/models"
	"wanderplan/internal/places"
	"wanderplan/internal/reviews"

	"github.com/gofiber/fiber/v2"
)

var (
	errReviewsUnavailable = models.NewValidationError("Reviews are not configured")
	errSummariesDisabled  = models.NewForbiddenError("Review summaries are disabled")
)

// SearchPlaces handles GET /api/places/search
// @Summary Search places
// @Description Proxies the query string to SerpApi. type=search with ll switches to the google_local engine; radius under 50 is read as km.
// @Tags places
// @Produce json
// @Param q query string false "Query"
// @Param type query string false "Search type"
// @Param ll query string false "@lat,lng,zoom"
// @Param radius query number false "Radius"
// @Success 200 {object} places.SearchResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /places/search [get]
func (s *Server) SearchPlaces(c *fiber.Ctx) error {
	if s.places == nil {
		return respondErr(c, places.ErrMissingKey)
	}

	query := url.Values{}
	for k, v := range c.Queries() {
		query.Set(k, v)
	}

	res, err := s.places.Search(c.UserContext(), query)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(res)
}

// GetPlaceReviews handles GET /api/reviews
// @Summary Google reviews for a place
// @Description Returns the place's Google reviews in Place Details form
// @Tags places
// @Produce json
// @Param place_id query string true "Google place ID"
// @Success 200 {object} reviews.Details
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /reviews [get]
func (s *Server) GetPlaceReviews(c *fiber.Ctx) error {
	if s.reviews == nil {
		return respondErr(c, errReviewsUnavailable)
	}
	details, err := s.reviews.PlaceDetails(c.UserContext(), c.Query("place_id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(details)
}

// SummarizeReviews handles POST /api/reviews/summarize
// @Summary Summarize reviews
// @Description Accepts {reviews:[...]} or a Place Details body and returns a short Gemini summary
// @Tags places
// @Accept json
// @Produce json
// @Param request body reviews.SummarizeInput true "Reviews"
// @Success 200 {object} reviews.Summary
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /reviews/summarize [post]
func (s *Server) SummarizeReviews(c *fiber.Ctx) error {
	if s.reviews == nil {
		return respondErr(c, errReviewsUnavailable)
	}
	if s.featureFlags != nil && !s.featureFlags.Enabled(featureflags.ReviewSummaries, s.viewerID(c)) {
		return respondErr(c, errSummariesDisabled)
	}

	var req reviews.SummarizeInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	out, err := s.reviews.Summarize(c.UserContext(), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}
