package repository

import (
	"context"

	"wanderplan/internal/cache"
	"wanderplan/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository defines persistence operations for user profiles.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.UserProfile, error)
	GetByUserIDs(ctx context.Context, userIDs []uint) (map[uint]models.UserProfile, error)
	ListExcept(ctx context.Context, userID uint, limit, offset int) ([]models.UserProfile, error)
	UpdateAvatar(ctx context.Context, userID uint, url string) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := cache.Aside(ctx, cache.ProfileKey(userID), &profile, cache.ProfileTTL, func() error {
		return mapError(r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error, "Profile", userID)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByUserIDs returns the profiles that exist among userIDs, keyed by id.
func (r *profileRepository) GetByUserIDs(ctx context.Context, userIDs []uint) (map[uint]models.UserProfile, error) {
	out := make(map[uint]models.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []models.UserProfile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

// ListExcept lists profiles other than userID, oldest first. userID 0 lists everyone.
func (r *profileRepository) ListExcept(ctx context.Context, userID uint, limit, offset int) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	q := r.db.WithContext(ctx).Order("user_id ASC").Limit(clampLimit(limit)).Offset(offset)
	if userID != 0 {
		q = q.Where("user_id <> ?", userID)
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

func (r *profileRepository) UpdateAvatar(ctx context.Context, userID uint, url string) error {
	res := r.db.WithContext(ctx).Model(&models.UserProfile{}).Where("user_id = ?", userID).Update("avatar_url", url)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", userID)
	}
	cache.InvalidateProfile(ctx, userID)
	return nil
}
