package server

import (
	"wanderplan/internal/models"
	"wanderplan/internal/service"

	"github.com/gofiber/fiber/v2"
)

var errTripIDRequired = models.NewValidationError("tripId is required")

// itineraryRequest is the body of both itinerary routes; TripID is only
// read by POST /api/itinerary.
type itineraryRequest struct {
	TripID uint               `json:"tripId"`
	Days   []service.DayInput `json:"days"`
}

// GetPublicPlans handles GET /api/plans
// @Summary List public plans
// @Tags plans
// @Produce json
// @Param exclude query int false "Author ID to leave out"
// @Success 200 {array} service.PlanSummary
// @Router /plans [get]
func (s *Server) GetPublicPlans(c *fiber.Ctx) error {
	out, err := s.plans.ListPublicPlans(c.UserContext(), uint(c.QueryInt("exclude", 0)))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// GetPlansByCity handles GET /api/plans/by-city
// @Summary Public plans for a city
// @Description Case-insensitive substring match on the plan city
// @Tags plans
// @Produce json
// @Param city query string true "City"
// @Param exclude query int false "Author ID to leave out"
// @Success 200 {array} service.PlanSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /plans/by-city [get]
func (s *Server) GetPlansByCity(c *fiber.Ctx) error {
	out, err := s.plans.ListPlansByCity(c.UserContext(), c.Query("city"), uint(c.QueryInt("exclude", 0)))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// CreatePlan handles POST /api/plans
// @Summary Create a plan
// @Tags plans
// @Accept json
// @Produce json
// @Param request body service.CreatePlanInput true "Plan"
// @Success 201 {object} service.PlanDetail
// @Failure 400 {object} models.ErrorResponse
// @Router /plans [post]
// @Security BearerAuth
func (s *Server) CreatePlan(c *fiber.Ctx) error {
	var req service.CreatePlanInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	plan, err := s.plans.CreatePlan(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// GetPlan handles GET /api/plans/:id
// @Summary Get a plan
// @Description Private plans are visible to their author only
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} service.PlanDetail
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /plans/{id} [get]
// @Security BearerAuth
func (s *Server) GetPlan(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	plan, err := s.plans.GetPlan(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(plan)
}

// UpdateBucket handles PUT /api/plans/:id/bucket
// @Summary Replace the place bucket
// @Tags plans
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param request body object{places=[]service.PlaceInput} true "Places"
// @Success 200 {object} object{place_bucket=[]models.Place}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /plans/{id}/bucket [put]
// @Security BearerAuth
func (s *Server) UpdateBucket(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Places []service.PlaceInput `json:"places"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	bucket, err := s.plans.UpdateBucket(c.UserContext(), id, currentUserID(c), service.ResolvePlaces(req.Places))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"place_bucket": bucket})
}

// SaveItinerary handles PUT /api/plans/:id/itinerary
// @Summary Replace the itinerary
// @Description Days take a date in DD/MM/YYYY or YYYY-MM-DD form and are indexed from 0
// @Tags plans
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param request body object{days=[]service.DayInput} true "Days"
// @Success 200 {object} object{itinerary=[]service.DayView}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /plans/{id}/itinerary [put]
// @Security BearerAuth
func (s *Server) SaveItinerary(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req itineraryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.saveItinerary(c, id, req.Days)
}

// SaveItineraryByTrip handles POST /api/itinerary
// @Summary Replace the itinerary (trip id in body)
// @Tags plans
// @Accept json
// @Produce json
// @Param request body object{tripId=int,days=[]service.DayInput} true "Trip and days"
// @Success 200 {object} object{itinerary=[]service.DayView}
// @Failure 400 {object} models.ErrorResponse
// @Router /itinerary [post]
// @Security BearerAuth
func (s *Server) SaveItineraryByTrip(c *fiber.Ctx) error {
	var req itineraryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.TripID == 0 {
		return respondErr(c, errTripIDRequired)
	}
	return s.saveItinerary(c, req.TripID, req.Days)
}

func (s *Server) saveItinerary(c *fiber.Ctx, planID uint, days []service.DayInput) error {
	out, err := s.plans.SaveItinerary(c.UserContext(), planID, currentUserID(c), days)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"itinerary": out})
}

// SharePlan handles POST /api/plans/:id/share
// @Summary Make a plan public
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} object{is_public=bool}
// @Failure 403 {object} models.ErrorResponse
// @Router /plans/{id}/share [post]
// @Security BearerAuth
func (s *Server) SharePlan(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.plans.SharePlan(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"is_public": true})
}

// UnsharePlan handles POST /api/plans/:id/unshare
// @Summary Make a plan private
// @Description Also withdraws every publication of the plan
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} object{is_public=bool,removed_publications=[]int}
// @Failure 403 {object} models.ErrorResponse
// @Router /plans/{id}/unshare [post]
// @Security BearerAuth
func (s *Server) UnsharePlan(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	removed, err := s.plans.UnsharePlan(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	if removed == nil {
		removed = []uint{}
	}
	return c.JSON(fiber.Map{"is_public": false, "removed_publications": removed})
}

// ClonePlan handles POST /api/plans/:id/clone
// @Summary Clone a plan
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 201 {object} service.CloneResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /plans/{id}/clone [post]
// @Security BearerAuth
func (s *Server) ClonePlan(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.plans.ClonePlan(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// PublishPlan handles POST /api/plans/:id/publish
// @Summary Publish a plan
// @Description Freezes the plan's current state into a new publication
// @Tags publications
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param request body object{description=string} false "Description"
// @Success 201 {object} service.PublicationDetail
// @Failure 403 {object} models.ErrorResponse
// @Router /plans/{id}/publish [post]
// @Security BearerAuth
func (s *Server) PublishPlan(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Description string `json:"description"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	pub, err := s.publications.PublishPlan(c.UserContext(), id, currentUserID(c), req.Description)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pub)
}
