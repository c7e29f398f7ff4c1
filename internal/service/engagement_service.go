package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/observability"
	"wanderplan/internal/repository"

	"github.com/google/uuid"
)

const (
	maxCommentRunes  = 2000
	maxReactionRunes = 32
)

// Target identifies the plan or publication an action applies to.
type Target struct {
	Kind models.TargetKind
	ID   uint
}

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// EngagementService applies likes, comments, replies and reactions to
// plans and publications alike.
type EngagementService struct {
	plans        repository.PlanRepository
	publications repository.PublicationRepository
	profiles     repository.ProfileRepository
	notifier     *NotificationService
	now          func() time.Time
}

func NewEngagementService(
	plans repository.PlanRepository,
	publications repository.PublicationRepository,
	profiles repository.ProfileRepository,
	notifier *NotificationService,
) *EngagementService {
	return &EngagementService{
		plans:        plans,
		publications: publications,
		profiles:     profiles,
		notifier:     notifier,
		now:          time.Now,
	}
}

// mutated carries what a notification needs about the written target.
// description quotes the target: a publication's description, a plan's city.
type mutated struct {
	ownerID     uint
	description string
	engagement  *models.Engagement
}

func (s *EngagementService) mutate(ctx context.Context, t Target, actorID uint, fn repository.EngagementMutator) (*mutated, error) {
	switch t.Kind {
	case models.TargetPlan:
		if err := s.requireVisiblePlan(ctx, t.ID, actorID); err != nil {
			return nil, err
		}
		p, err := s.plans.MutateEngagement(ctx, t.ID, fn)
		if err != nil {
			return nil, err
		}
		return &mutated{ownerID: p.AuthorID, description: p.City, engagement: &p.Engagement}, nil
	case models.TargetPublication:
		p, err := s.publications.MutateEngagement(ctx, t.ID, fn)
		if err != nil {
			return nil, err
		}
		return &mutated{ownerID: p.AuthorID, description: p.Description, engagement: &p.Engagement}, nil
	default:
		return nil, models.NewValidationError("target must be plan or publication")
	}
}

// requireVisiblePlan applies the GetPlan rule: a private plan is only
// open to its author.
func (s *EngagementService) requireVisiblePlan(ctx context.Context, planID, actorID uint) error {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return err
	}
	if !plan.IsPublic && plan.AuthorID != actorID {
		return models.NewForbiddenError("This plan is private")
	}
	return nil
}

func (s *EngagementService) actorName(ctx context.Context, actorID uint) (string, error) {
	p, err := s.profiles.GetByUserID(ctx, actorID)
	if err != nil {
		return "", err
	}
	return p.Username, nil
}

// LikeToggle likes the target, or unlikes it if the actor already does.
func (s *EngagementService) LikeToggle(ctx context.Context, t Target, actorID uint) (*LikeResult, error) {
	name, err := s.actorName(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var liked bool
	m, err := s.mutate(ctx, t, actorID, func(e *models.Engagement) (bool, error) {
		liked = e.ToggleLike(actorID, name, s.now().UTC())
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if liked {
		recordEngagement(t.Kind, "like")
		s.notify(ctx, m, t, actorID, name, models.ActionLike, m.description)
	} else {
		recordEngagement(t.Kind, "unlike")
	}
	return &LikeResult{Liked: liked, LikesCount: len(m.engagement.Likes)}, nil
}

// AddComment appends a top-level comment.
func (s *EngagementService) AddComment(ctx context.Context, t Target, actorID uint, text string) (*models.Comment, error) {
	text, err := cleanText(text, "text", maxCommentRunes)
	if err != nil {
		return nil, err
	}
	name, err := s.actorName(ctx, actorID)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:         uuid.NewString(),
		AuthorID:   actorID,
		AuthorName: name,
		Text:       text,
		CreatedAt:  s.now().UTC(),
		Replies:    []models.Reply{},
		Reactions:  []models.Reaction{},
	}
	m, err := s.mutate(ctx, t, actorID, func(e *models.Engagement) (bool, error) {
		e.Comments = append(e.Comments, comment)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	recordEngagement(t.Kind, "comment")
	s.notify(ctx, m, t, actorID, name, models.ActionComment, m.description)
	return &comment, nil
}

// AddReply appends a reply under commentID.
func (s *EngagementService) AddReply(ctx context.Context, t Target, commentID string, actorID uint, text string) (*models.Reply, error) {
	text, err := cleanText(text, "text", maxCommentRunes)
	if err != nil {
		return nil, err
	}
	name, err := s.actorName(ctx, actorID)
	if err != nil {
		return nil, err
	}

	reply := models.Reply{
		ID:         uuid.NewString(),
		AuthorID:   actorID,
		AuthorName: name,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	}
	if _, err := s.mutate(ctx, t, actorID, func(e *models.Engagement) (bool, error) {
		if !e.AddReply(commentID, reply) {
			return false, models.NewNotFoundError("Comment", commentID)
		}
		return true, nil
	}); err != nil {
		return nil, err
	}

	recordEngagement(t.Kind, "reply")
	return &reply, nil
}

// ToggleReaction adds or removes the actor's emoji on a comment and
// returns the comment's reactions.
func (s *EngagementService) ToggleReaction(ctx context.Context, t Target, commentID string, actorID uint, emoji string) ([]models.Reaction, error) {
	emoji, err := cleanText(emoji, "type", maxReactionRunes)
	if err != nil {
		return nil, err
	}
	name, err := s.actorName(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var reactions []models.Reaction
	if _, err := s.mutate(ctx, t, actorID, func(e *models.Engagement) (bool, error) {
		r := models.Reaction{
			ID:         uuid.NewString(),
			AuthorID:   actorID,
			AuthorName: name,
			Type:       emoji,
			CreatedAt:  s.now().UTC(),
		}
		out, ok := e.ToggleReaction(commentID, r)
		if !ok {
			return false, models.NewNotFoundError("Comment", commentID)
		}
		reactions = append([]models.Reaction{}, out...)
		return true, nil
	}); err != nil {
		return nil, err
	}

	recordEngagement(t.Kind, "reaction")
	return reactions, nil
}

func (s *EngagementService) notify(ctx context.Context, m *mutated, t Target, actorID uint, actorName string, action models.ActionType, description string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, NotifyInput{
		RecipientID: m.ownerID,
		SenderID:    actorID,
		SenderName:  actorName,
		Action:      action,
		Target:      t.Kind,
		TargetID:    t.ID,
		Description: description,
	}); err != nil {
		logNotifyFailure(ctx, err, action, t.ID)
	}
}

func cleanText(s, field string, maxRunes int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", models.NewValidationError(field + " is required")
	}
	if utf8.RuneCountInString(s) > maxRunes {
		return "", models.NewValidationError(field + " is too long")
	}
	return s, nil
}

func recordEngagement(kind models.TargetKind, action string) {
	observability.EngagementActions.WithLabelValues(string(kind), action).Inc()
}

// Notification failures never undo the action that triggered them.
func logNotifyFailure(ctx context.Context, err error, action models.ActionType, targetID uint) {
	middleware.Logger.WarnContext(ctx, "notification failed",
		slog.String("action", string(action)),
		slog.Uint64("target_id", uint64(targetID)),
		slog.String("error", err.Error()),
	)
}
