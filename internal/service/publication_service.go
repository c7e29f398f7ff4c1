package service

import (
	"context"
	"log/slog"
	"strings"

	"wanderplan/internal/featureflags"
	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/repository"

	"gorm.io/datatypes"
)

const maxDescriptionRunes = 5000

// PublicationService publishes plan snapshots and serves the feed.
type PublicationService struct {
	publications repository.PublicationRepository
	plans        repository.PlanRepository
	profiles     repository.ProfileRepository
	planService  *PlanService
	index        PublicationIndex
	flags        FlagChecker
}

func NewPublicationService(
	publications repository.PublicationRepository,
	plans repository.PlanRepository,
	profiles repository.ProfileRepository,
	planService *PlanService,
	index PublicationIndex,
	flags FlagChecker,
) *PublicationService {
	return &PublicationService{
		publications: publications,
		plans:        plans,
		profiles:     profiles,
		planService:  planService,
		index:        index,
		flags:        flags,
	}
}

// PublishPlan freezes the plan's current trip data into a new publication.
func (s *PublicationService) PublishPlan(ctx context.Context, planID, actorID uint, description string) (*PublicationDetail, error) {
	description = strings.TrimSpace(description)
	if len([]rune(description)) > maxDescriptionRunes {
		return nil, models.NewValidationError("description is too long")
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.AuthorID != actorID {
		return nil, models.NewForbiddenError("Only the author can publish this plan")
	}
	author, err := s.profiles.GetByUserID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	snapshot := plan.Snapshot()
	pub := &models.Publication{
		SharedPlanID: plan.ID,
		AuthorID:     actorID,
		AuthorName:   author.Username,
		Description:  description,
		City:         snapshot.City,
		PlanSnapshot: datatypes.NewJSONType(snapshot),
	}
	if err := s.publications.Create(ctx, pub); err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.Index(ctx, pub); err != nil {
			middleware.Logger.WarnContext(ctx, "search indexing failed",
				slog.Uint64("publication_id", uint64(pub.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.detail(ctx, pub, actorID)
}

// Feed lists publications newest first: by one author when authorID is
// set, otherwise everyone but the viewer.
func (s *PublicationService) Feed(ctx context.Context, viewerID, authorID uint, limit, offset int) ([]FeedItem, error) {
	exclude := viewerID
	if authorID != 0 {
		exclude = 0
	}
	pubs, err := s.publications.List(ctx, authorID, exclude, limit, offset)
	if err != nil {
		return nil, err
	}
	return feedItems(pubs, viewerID), nil
}

// ByCity matches the snapshot city as a case-insensitive substring. The
// search index answers when enabled; the database is the fallback.
func (s *PublicationService) ByCity(ctx context.Context, city string, viewerID uint, limit, offset int) ([]FeedItem, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, models.NewValidationError("city is required")
	}

	if s.index != nil && s.flags != nil && s.flags.Enabled(featureflags.SearchIndex, viewerID) {
		ids, err := s.index.SearchByCity(ctx, city, viewerID, limit, offset)
		if err == nil {
			pubs, err := s.publications.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return feedItems(pubs, viewerID), nil
		}
		middleware.Logger.WarnContext(ctx, "search index unavailable, querying database",
			slog.String("city", city),
			slog.String("error", err.Error()),
		)
	}

	pubs, err := s.publications.ListByCity(ctx, city, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return feedItems(pubs, viewerID), nil
}

func (s *PublicationService) Detail(ctx context.Context, pubID, viewerID uint) (*PublicationDetail, error) {
	pub, err := s.publications.GetByID(ctx, pubID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, pub, viewerID)
}

func (s *PublicationService) detail(ctx context.Context, pub *models.Publication, viewerID uint) (*PublicationDetail, error) {
	ev, err := buildEngagementView(ctx, s.profiles, &pub.Engagement, viewerID)
	if err != nil {
		return nil, err
	}
	return &PublicationDetail{
		ID:             pub.ID,
		SharedPlanID:   pub.SharedPlanID,
		AuthorID:       pub.AuthorID,
		Author:         pub.AuthorName,
		Description:    pub.Description,
		CreatedAt:      pub.CreatedAt,
		PlanSnapshot:   snapshotView(pub.PlanSnapshot.Data()),
		EngagementView: ev,
	}, nil
}

// ClonePublication clones the live plan behind the publication. The actor
// is counted once per publication however many times they clone it.
func (s *PublicationService) ClonePublication(ctx context.Context, pubID, actorID uint) (*CloneResult, error) {
	pub, err := s.publications.GetByID(ctx, pubID)
	if err != nil {
		return nil, err
	}
	source, err := s.plans.GetByID(ctx, pub.SharedPlanID)
	if err != nil {
		return nil, err
	}

	res, err := s.planService.clone(ctx, source, actorID)
	if err != nil {
		return nil, err
	}

	updated, err := s.publications.MutateEngagement(ctx, pubID, func(e *models.Engagement) (bool, error) {
		return e.AddCloner(actorID, true), nil
	})
	if err != nil {
		return nil, err
	}
	recordEngagement(models.TargetPublication, "clone")

	return &CloneResult{PlanID: res.PlanID, ClonedCount: len(updated.ClonedBy)}, nil
}

func feedItems(pubs []models.Publication, viewerID uint) []FeedItem {
	out := make([]FeedItem, 0, len(pubs))
	for i := range pubs {
		out = append(out, feedItem(&pubs[i], viewerID))
	}
	return out
}
