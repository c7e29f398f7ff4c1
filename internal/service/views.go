package service

import (
	"context"
	"time"

	"wanderplan/internal/models"
	"wanderplan/internal/repository"
)

const unknownUsername = "Unknown user"

// UserRef is a user id with its current display name.
type UserRef struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// EngagementView is the social state of a plan or publication as seen by
// one viewer.
type EngagementView struct {
	Likes         []UserRef        `json:"likes"`
	LikesCount    int              `json:"likes_count"`
	IsLiked       bool             `json:"is_liked"`
	Comments      []models.Comment `json:"comments"`
	CommentsCount int              `json:"comments_count"`
	ClonedBy      []UserRef        `json:"cloned_by"`
	ClonedCount   int              `json:"cloned_count"`
}

// PlanSummary is the list form of a plan.
type PlanSummary struct {
	ID          uint      `json:"id"`
	City        string    `json:"city"`
	Author      string    `json:"author"`
	AuthorID    uint      `json:"author_id"`
	FromDate    time.Time `json:"from_date"`
	ToDate      time.Time `json:"to_date"`
	IsPublic    bool      `json:"is_public"`
	PlacesCount int       `json:"places_count"`
	DaysCount   int       `json:"days_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func summarizePlan(p *models.Plan) PlanSummary {
	return PlanSummary{
		ID:          p.ID,
		City:        p.City,
		Author:      p.AuthorName,
		AuthorID:    p.AuthorID,
		FromDate:    p.FromDate,
		ToDate:      p.ToDate,
		IsPublic:    p.IsPublic,
		PlacesCount: len(p.PlaceBucket),
		DaysCount:   len(p.Itinerary),
		CreatedAt:   p.CreatedAt,
	}
}

func summarizePlans(plans []models.Plan) []PlanSummary {
	out := make([]PlanSummary, 0, len(plans))
	for i := range plans {
		out = append(out, summarizePlan(&plans[i]))
	}
	return out
}

// PlanDetail is a full plan with its engagement.
type PlanDetail struct {
	ID               uint           `json:"id"`
	AuthorID         uint           `json:"author_id"`
	Author           string         `json:"author"`
	City             string         `json:"city"`
	FromDate         time.Time      `json:"from_date"`
	ToDate           time.Time      `json:"to_date"`
	IsPublic         bool           `json:"is_public"`
	PlaceBucket      []models.Place `json:"place_bucket"`
	Itinerary        []DayView      `json:"itinerary"`
	ClonedFrom       *uint          `json:"cloned_from,omitempty"`
	ClonedFromPlanID *uint          `json:"cloned_from_plan_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	EngagementView
}

// SnapshotView is a publication's frozen plan as returned to clients.
type SnapshotView struct {
	City        string         `json:"city"`
	FromDate    time.Time      `json:"from_date"`
	ToDate      time.Time      `json:"to_date"`
	PlaceBucket []models.Place `json:"place_bucket"`
	Itinerary   []DayView      `json:"itinerary"`
	PlacesCount int            `json:"places_count"`
	DaysCount   int            `json:"days_count"`
}

func snapshotView(s models.PlanSnapshot) SnapshotView {
	bucket := s.PlaceBucket
	if bucket == nil {
		bucket = []models.Place{}
	}
	return SnapshotView{
		City:        s.City,
		FromDate:    s.FromDate,
		ToDate:      s.ToDate,
		PlaceBucket: bucket,
		Itinerary:   RenderItinerary(s.Itinerary),
		PlacesCount: len(s.PlaceBucket),
		DaysCount:   len(s.Itinerary),
	}
}

// FeedItem is the list form of a publication.
type FeedItem struct {
	ID            uint         `json:"id"`
	AuthorID      uint         `json:"author_id"`
	Author        string       `json:"author"`
	Description   string       `json:"description"`
	CreatedAt     time.Time    `json:"created_at"`
	Likes         int          `json:"likes"`
	LikedBy       []string     `json:"liked_by"`
	CommentsCount int          `json:"comments_count"`
	IsLiked       bool         `json:"is_liked"`
	ClonedBy      int          `json:"cloned_by"`
	PlanSnapshot  SnapshotView `json:"plan_snapshot"`
}

func feedItem(p *models.Publication, viewerID uint) FeedItem {
	likedBy := make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		likedBy = append(likedBy, l.UserName)
	}
	return FeedItem{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		Author:        p.AuthorName,
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
		Likes:         len(p.Likes),
		LikedBy:       likedBy,
		CommentsCount: len(p.Comments),
		IsLiked:       viewerID != 0 && p.HasLiked(viewerID),
		ClonedBy:      len(p.ClonedBy),
		PlanSnapshot:  snapshotView(p.PlanSnapshot.Data()),
	}
}

// PublicationDetail is one publication with its full engagement.
type PublicationDetail struct {
	ID           uint         `json:"id"`
	SharedPlanID uint         `json:"shared_plan_id"`
	AuthorID     uint         `json:"author_id"`
	Author       string       `json:"author"`
	Description  string       `json:"description"`
	CreatedAt    time.Time    `json:"created_at"`
	PlanSnapshot SnapshotView `json:"plan_snapshot"`
	EngagementView
}

// buildEngagementView resolves cloner names against current profiles.
// Likers keep the name cached on the like.
func buildEngagementView(ctx context.Context, profiles repository.ProfileRepository, e *models.Engagement, viewerID uint) (EngagementView, error) {
	likes := make([]UserRef, 0, len(e.Likes))
	for _, l := range e.Likes {
		likes = append(likes, UserRef{UserID: l.UserID, Username: l.UserName})
	}

	byID, err := profiles.GetByUserIDs(ctx, e.ClonedBy)
	if err != nil {
		return EngagementView{}, err
	}
	cloners := make([]UserRef, 0, len(e.ClonedBy))
	for _, id := range e.ClonedBy {
		name := unknownUsername
		if p, ok := byID[id]; ok {
			name = p.Username
		}
		cloners = append(cloners, UserRef{UserID: id, Username: name})
	}

	comments := []models.Comment(e.Comments)
	if comments == nil {
		comments = []models.Comment{}
	}
	for i := range comments {
		if comments[i].Replies == nil {
			comments[i].Replies = []models.Reply{}
		}
		if comments[i].Reactions == nil {
			comments[i].Reactions = []models.Reaction{}
		}
	}

	return EngagementView{
		Likes:         likes,
		LikesCount:    len(likes),
		IsLiked:       viewerID != 0 && e.HasLiked(viewerID),
		Comments:      comments,
		CommentsCount: len(comments),
		ClonedBy:      cloners,
		ClonedCount:   len(cloners),
	}, nil
}
