package repository

import (
	"context"
	"errors"

	"wanderplan/internal/models"
	"wanderplan/internal/observability"

	"gorm.io/gorm"
)

const maxEngagementAttempts = 5

// EngagementMutator edits e in place and reports whether anything changed.
// Returning false skips the write.
type EngagementMutator func(e *models.Engagement) (bool, error)

// ErrEngagementConflict is wrapped in the Conflict error returned after the
// last lost race.
var ErrEngagementConflict = errors.New("engagement version conflict")

// mutateEngagement runs fn against a fresh copy of the row and writes the
// engagement columns back only if the version it read is still current.
func mutateEngagement[T any](
	ctx context.Context,
	db *gorm.DB,
	kind models.TargetKind,
	resource string,
	id uint,
	state func(*T) *models.Engagement,
	fn EngagementMutator,
) (*T, error) {
	for attempt := 0; attempt < maxEngagementAttempts; attempt++ {
		var row T
		if err := db.WithContext(ctx).First(&row, id).Error; err != nil {
			return nil, mapError(err, resource, id)
		}

		e := state(&row)
		changed, err := fn(e)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &row, nil
		}
		e.Normalize()

		res := db.WithContext(ctx).Model(new(T)).
			Where("id = ? AND version = ?", id, e.Version).
			Updates(map[string]any{
				"likes":     e.Likes,
				"comments":  e.Comments,
				"cloned_by": e.ClonedBy,
				"version":   e.Version + 1,
			})
		if res.Error != nil {
			return nil, models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 1 {
			e.Version++
			return &row, nil
		}
		observability.EngagementConflicts.WithLabelValues(string(kind)).Inc()
	}
	return nil, models.NewConflictError("The "+string(kind)+" was modified concurrently, please retry", ErrEngagementConflict)
}
