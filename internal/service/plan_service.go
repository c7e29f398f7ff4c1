package service

import (
	"context"
	"log/slog"
	"strings"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/repository"
	"wanderplan/internal/validation"

	"gorm.io/datatypes"
)

// PlanService manages the lifecycle of a user's plans.
type PlanService struct {
	plans        repository.PlanRepository
	publications repository.PublicationRepository
	profiles     repository.ProfileRepository
	notifier     *NotificationService
	index        PublicationIndex
}

// CreatePlanInput is the body of a new plan.
type CreatePlanInput struct {
	City     string `json:"city" validate:"notblank,max=255"`
	FromDate string `json:"from_date" validate:"required"`
	ToDate   string `json:"to_date" validate:"required"`
	IsPublic bool   `json:"is_public"`
}

// CloneResult reports a finished clone.
type CloneResult struct {
	PlanID      uint `json:"plan_id"`
	ClonedCount int  `json:"cloned_count"`
}

func NewPlanService(
	plans repository.PlanRepository,
	publications repository.PublicationRepository,
	profiles repository.ProfileRepository,
	notifier *NotificationService,
	index PublicationIndex,
) *PlanService {
	return &PlanService{
		plans:        plans,
		publications: publications,
		profiles:     profiles,
		notifier:     notifier,
		index:        index,
	}
}

func (s *PlanService) CreatePlan(ctx context.Context, authorID uint, in CreatePlanInput) (*PlanDetail, error) {
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	from, err := ParseDate(in.FromDate)
	if err != nil {
		return nil, models.NewValidationError("from_date must be DD/MM/YYYY or YYYY-MM-DD")
	}
	to, err := ParseDate(in.ToDate)
	if err != nil {
		return nil, models.NewValidationError("to_date must be DD/MM/YYYY or YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, models.NewValidationError("to_date must be on or after from_date")
	}

	author, err := s.profiles.GetByUserID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	plan := &models.Plan{
		AuthorID:    authorID,
		AuthorName:  author.Username,
		City:        strings.TrimSpace(in.City),
		FromDate:    from,
		ToDate:      to,
		IsPublic:    in.IsPublic,
		PlaceBucket: datatypes.JSONSlice[models.Place]{},
		Itinerary:   datatypes.JSONSlice[models.ItineraryDay]{},
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return s.detail(ctx, plan, authorID)
}

// GetPlan returns a plan to its author, or to anyone once it is public.
func (s *PlanService) GetPlan(ctx context.Context, planID, viewerID uint) (*PlanDetail, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsPublic && plan.AuthorID != viewerID {
		return nil, models.NewForbiddenError("This plan is private")
	}
	return s.detail(ctx, plan, viewerID)
}

func (s *PlanService) detail(ctx context.Context, p *models.Plan, viewerID uint) (*PlanDetail, error) {
	ev, err := buildEngagementView(ctx, s.profiles, &p.Engagement, viewerID)
	if err != nil {
		return nil, err
	}
	bucket := []models.Place(p.PlaceBucket)
	if bucket == nil {
		bucket = []models.Place{}
	}
	return &PlanDetail{
		ID:               p.ID,
		AuthorID:         p.AuthorID,
		Author:           p.AuthorName,
		City:             p.City,
		FromDate:         p.FromDate,
		ToDate:           p.ToDate,
		IsPublic:         p.IsPublic,
		PlaceBucket:      bucket,
		Itinerary:        RenderItinerary(p.Itinerary),
		ClonedFrom:       p.ClonedFrom,
		ClonedFromPlanID: p.ClonedFromPlanID,
		CreatedAt:        p.CreatedAt,
		EngagementView:   ev,
	}, nil
}

func (s *PlanService) ownedPlan(ctx context.Context, planID, actorID uint) (*models.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.AuthorID != actorID {
		return nil, models.NewForbiddenError("Only the author can modify this plan")
	}
	return plan, nil
}

// UpdateBucket replaces the plan's saved places.
func (s *PlanService) UpdateBucket(ctx context.Context, planID, actorID uint, places []models.Place) ([]models.Place, error) {
	bucket, err := ValidateBucket(places)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedPlan(ctx, planID, actorID); err != nil {
		return nil, err
	}
	if err := s.plans.UpdateFields(ctx, planID, map[string]any{
		"place_bucket": datatypes.JSONSlice[models.Place](bucket),
	}); err != nil {
		return nil, err
	}
	return bucket, nil
}

// SaveItinerary replaces the plan's itinerary and echoes it back with
// canonical dates.
func (s *PlanService) SaveItinerary(ctx context.Context, planID, actorID uint, days []DayInput) ([]DayView, error) {
	parsed, err := ParseItinerary(days)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedPlan(ctx, planID, actorID); err != nil {
		return nil, err
	}
	if err := s.plans.UpdateFields(ctx, planID, map[string]any{
		"itinerary": datatypes.JSONSlice[models.ItineraryDay](parsed),
	}); err != nil {
		return nil, err
	}
	return RenderItinerary(parsed), nil
}

func (s *PlanService) SharePlan(ctx context.Context, planID, actorID uint) error {
	if _, err := s.ownedPlan(ctx, planID, actorID); err != nil {
		return err
	}
	return s.plans.UpdateFields(ctx, planID, map[string]any{"is_public": true})
}

// UnsharePlan makes the plan private and withdraws every publication of it.
func (s *PlanService) UnsharePlan(ctx context.Context, planID, actorID uint) ([]uint, error) {
	if _, err := s.ownedPlan(ctx, planID, actorID); err != nil {
		return nil, err
	}
	if err := s.plans.UpdateFields(ctx, planID, map[string]any{"is_public": false}); err != nil {
		return nil, err
	}
	removed, err := s.publications.DeleteBySharedPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 && s.index != nil {
		if err := s.index.Remove(ctx, removed...); err != nil {
			middleware.Logger.WarnContext(ctx, "search index removal failed",
				slog.Uint64("plan_id", uint64(planID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return removed, nil
}

// ClonePlan copies a plan the actor can see into a new private plan.
func (s *PlanService) ClonePlan(ctx context.Context, sourceID, actorID uint) (*CloneResult, error) {
	source, err := s.plans.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !source.IsPublic && source.AuthorID != actorID {
		return nil, models.NewForbiddenError("This plan is private")
	}
	return s.clone(ctx, source, actorID)
}

// clone performs the copy without a visibility check; publications reach
// their plan through it even when the plan itself is private.
func (s *PlanService) clone(ctx context.Context, source *models.Plan, actorID uint) (*CloneResult, error) {
	actor, err := s.profiles.GetByUserID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	sourceAuthor := source.AuthorID
	sourcePlan := source.ID
	copied := &models.Plan{
		AuthorID:         actorID,
		AuthorName:       actor.Username,
		City:             source.City,
		FromDate:         source.FromDate,
		ToDate:           source.ToDate,
		IsPublic:         false,
		PlaceBucket:      models.ClonePlaces(source.PlaceBucket),
		Itinerary:        models.CloneItinerary(source.Itinerary),
		ClonedFrom:       &sourceAuthor,
		ClonedFromPlanID: &sourcePlan,
	}
	if err := s.plans.Create(ctx, copied); err != nil {
		return nil, err
	}

	updated, err := s.plans.MutateEngagement(ctx, source.ID, func(e *models.Engagement) (bool, error) {
		return e.AddCloner(actorID, false), nil
	})
	if err != nil {
		return nil, err
	}
	recordEngagement(models.TargetPlan, "clone")

	if s.notifier == nil {
		return &CloneResult{PlanID: copied.ID, ClonedCount: len(updated.ClonedBy)}, nil
	}
	if _, err := s.notifier.Notify(ctx, NotifyInput{
		RecipientID: source.AuthorID,
		SenderID:    actorID,
		SenderName:  actor.Username,
		Action:      models.ActionClone,
		Target:      models.TargetPlan,
		TargetID:    source.ID,
	}); err != nil {
		logNotifyFailure(ctx, err, models.ActionClone, source.ID)
	}

	return &CloneResult{PlanID: copied.ID, ClonedCount: len(updated.ClonedBy)}, nil
}

func (s *PlanService) ListPublicPlans(ctx context.Context, excludeUserID uint) ([]PlanSummary, error) {
	plans, err := s.plans.ListPublic(ctx, excludeUserID)
	if err != nil {
		return nil, err
	}
	return summarizePlans(plans), nil
}

func (s *PlanService) ListPlansByCity(ctx context.Context, city string, excludeUserID uint) ([]PlanSummary, error) {
	if strings.TrimSpace(city) == "" {
		return nil, models.NewValidationError("city is required")
	}
	plans, err := s.plans.ListPublicByCity(ctx, city, excludeUserID)
	if err != nil {
		return nil, err
	}
	return summarizePlans(plans), nil
}

func (s *PlanService) ListPrivatePlans(ctx context.Context, userID uint) ([]PlanSummary, error) {
	plans, err := s.plans.ListPrivateByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarizePlans(plans), nil
}

func (s *PlanService) ListClonedPlans(ctx context.Context, userID uint) ([]PlanSummary, error) {
	plans, err := s.plans.ListClonedByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarizePlans(plans), nil
}
