package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/observability"
	"wanderplan/internal/repository"
)

const (
	descriptionPreviewRunes = 50
	notificationEventType   = "notification"
)

// NotificationService persists social notifications and pushes them to the
// recipient's realtime channel.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher EventPublisher
}

// NotifyInput describes one social action to report.
type NotifyInput struct {
	RecipientID uint
	SenderID    uint
	SenderName  string
	Action      models.ActionType
	Target      models.TargetKind
	TargetID    uint
	Description string
}

func NewNotificationService(repo repository.NotificationRepository, publisher EventPublisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// FormatMessage renders the human readable line stored on a notification.
func FormatMessage(sender string, action models.ActionType, target models.TargetKind, description string) string {
	noun := "publication"
	if target == models.TargetPlan {
		noun = "plan"
	}

	var base string
	switch action {
	case models.ActionLike:
		base = fmt.Sprintf("%s liked your %s", sender, noun)
	case models.ActionComment:
		base = fmt.Sprintf("%s commented on your %s", sender, noun)
	case models.ActionClone:
		base = fmt.Sprintf("%s cloned your plan", sender)
	default:
		base = fmt.Sprintf("%s interacted with your %s", sender, noun)
	}

	if description == "" {
		return base
	}
	return fmt.Sprintf("%s: \"%s\"", base, previewText(description))
}

func previewText(s string) string {
	if utf8.RuneCountInString(s) <= descriptionPreviewRunes {
		return s
	}
	return string([]rune(s)[:descriptionPreviewRunes]) + "..."
}

// Notify records in and pushes it to the recipient. Self-actions produce
// nothing. Push failures are logged; the stored notification stands.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	if in.RecipientID == 0 || in.RecipientID == in.SenderID {
		return nil, nil
	}

	n := &models.Notification{
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		SenderName:  in.SenderName,
		ActionType:  in.Action,
		TargetType:  in.Target,
		TargetID:    in.TargetID,
		Description: in.Description,
		Message:     FormatMessage(in.SenderName, in.Action, in.Target, in.Description),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	observability.NotificationsCreated.WithLabelValues(string(in.Action)).Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishEvent(ctx, n.RecipientID, notificationEventType, n); err != nil {
			middleware.Logger.WarnContext(ctx, "notification push failed",
				slog.Uint64("notification_id", uint64(n.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return n, nil
}

// CreateInput is the body of a manually created notification.
type CreateInput struct {
	RecipientID uint
	Action      models.ActionType
	Target      models.TargetKind
	TargetID    uint
	Description string
}

// Create builds a notification on behalf of the caller.
func (s *NotificationService) Create(ctx context.Context, senderID uint, senderName string, in CreateInput) (*models.Notification, error) {
	if in.RecipientID == 0 {
		return nil, models.NewValidationError("recipient_id is required")
	}
	switch in.Action {
	case models.ActionLike, models.ActionComment, models.ActionClone:
	default:
		return nil, models.NewValidationError("action_type must be one of: like, comment, clone")
	}
	if in.Target == "" {
		in.Target = models.TargetPublication
	}
	if !in.Target.Valid() {
		return nil, models.NewValidationError("target_type must be plan or publication")
	}
	if in.RecipientID == senderID {
		return nil, models.NewValidationError("Cannot notify yourself")
	}
	return s.Notify(ctx, NotifyInput{
		RecipientID: in.RecipientID,
		SenderID:    senderID,
		SenderName:  strings.TrimSpace(senderName),
		Action:      in.Action,
		Target:      in.Target,
		TargetID:    in.TargetID,
		Description: in.Description,
	})
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByRecipient(ctx, userID, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
