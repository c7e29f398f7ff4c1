package service

import (
	"context"

	"wanderplan/internal/models"
)

// EventPublisher pushes a realtime event to one user's connections.
type EventPublisher interface {
	PublishEvent(ctx context.Context, userID uint, eventType string, payload any) error
}

// PublicationIndex mirrors publications into a search index. Implementations
// must be safe to call when the index backend is down.
type PublicationIndex interface {
	Index(ctx context.Context, pub *models.Publication) error
	Remove(ctx context.Context, ids ...uint) error
	SearchByCity(ctx context.Context, city string, excludeAuthorID uint, limit, offset int) ([]uint, error)
}

// CascadeDispatcher schedules a name cascade for userID.
type CascadeDispatcher interface {
	DispatchRename(ctx context.Context, userID uint, username string) error
}

// AvatarStore persists processed avatar images and returns their public URL.
type AvatarStore interface {
	PutAvatar(ctx context.Context, userID uint, data []byte, contentType string) (string, error)
}

// FlagChecker reports whether a feature flag is enabled for a user.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}
